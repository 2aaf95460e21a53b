package views

import (
	"fmt"

	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/model"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo shows a conversation with the details the server knows
// about its peer.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates the view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

func (ci *ConversationInfo) Name() string { return "Details" }

// Update renders conv followed by details.
func (ci *ConversationInfo) Update(conv store.Conversation, details []model.Detail) {
	ci.Clear()

	lastActive := formatTimestamp(conv.LastMessageAt)
	if lastActive == "" {
		lastActive = "-"
	}
	rows := append([]model.Detail{
		{Label: "Name", Value: displayName(conv)},
		{Label: "Type", Value: kindLabel(conv.Kind)},
		{Label: "ID", Value: fmt.Sprint(conv.Peer)},
		{Label: "Unread", Value: fmt.Sprint(conv.UnreadCount)},
		{Label: "Last active", Value: lastActive},
	}, details...)

	label := ui.ColorTag(ci.theme.FgColor)
	value := ui.ColorTag(ci.theme.CounterColor)
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", label, r.Label+":", value, cell(r.Value))
	}
	ci.SetTitle(fmt.Sprintf(" %s ", cell(displayName(conv))))
}
