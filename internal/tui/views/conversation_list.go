package views

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// SortMode orders the conversation list.
type SortMode int

const (
	SortRecent SortMode = iota
	SortUnread
	SortName
)

func (m SortMode) String() string {
	switch m {
	case SortUnread:
		return "unread"
	case SortName:
		return "name"
	}
	return "recent"
}

// ConversationList is the table of conversations with message activity.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	convs   []store.Conversation
	visible []store.Conversation
	filter  string
	sort    SortMode
}

// NewConversationList creates the table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme}
	cl.render()
	return cl
}

func (cl *ConversationList) Name() string { return "Conversations" }

// Update replaces the conversations, keeping the selected one selected.
func (cl *ConversationList) Update(convs []store.Conversation) {
	selected, ok := cl.Selected()
	cl.convs = convs
	cl.render()
	if !ok {
		return
	}
	for i, c := range cl.visible {
		if c.Kind == selected.Kind && c.Peer == selected.Peer {
			cl.Select(i+1, 0)
			return
		}
	}
}

// SetFilter shows only conversations whose name or preview contains
// filter, ignoring case. An empty filter shows everything.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
	cl.Select(1, 0)
}

func (cl *ConversationList) Filter() string { return cl.filter }

// CycleSort switches to the next sort mode and returns it.
func (cl *ConversationList) CycleSort() SortMode {
	cl.sort = (cl.sort + 1) % 3
	cl.render()
	return cl.sort
}

// Selected returns the conversation under the cursor.
func (cl *ConversationList) Selected() (store.Conversation, bool) {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the nth visible conversation, counting from 1.
func (cl *ConversationList) ByIndex(n int) (store.Conversation, bool) {
	if n < 1 || n > len(cl.visible) {
		return store.Conversation{}, false
	}
	return cl.visible[n-1], true
}

// Find returns the first conversation whose display name contains name,
// preferring an exact match.
func (cl *ConversationList) Find(name string) (store.Conversation, bool) {
	var partial *store.Conversation
	for i, c := range cl.convs {
		label := displayName(c)
		if strings.EqualFold(label, name) {
			return c, true
		}
		if partial == nil && containsFold(label, name) {
			partial = &cl.convs[i]
		}
	}
	if partial != nil {
		return *partial, true
	}
	return store.Conversation{}, false
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, c := range cl.convs {
		if cl.filter == "" || containsFold(displayName(c), cl.filter) || containsFold(c.LastMessagePreview, cl.filter) {
			cl.visible = append(cl.visible, c)
		}
	}
	slices.SortStableFunc(cl.visible, cl.compare)

	for i, c := range cl.visible {
		row := i + 1
		name := cell(displayName(c))
		color := cl.theme.FgColor
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", c.UnreadCount, name)
			color = cl.theme.CounterColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", row)).SetTextColor(cl.theme.NumericKeyColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(color))
		cl.SetCell(row, 2, tview.NewTableCell(" "+cell(c.LastMessagePreview)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastMessageAt)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(" "+kindLabel(c.Kind)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	title := fmt.Sprintf(" Conversations (%d) ", len(cl.convs))
	if cl.filter != "" {
		title = fmt.Sprintf(" Conversations (%d/%d) /%s ", len(cl.visible), len(cl.convs), tview.Escape(cl.filter))
	}
	if cl.sort != SortRecent {
		title += "by " + cl.sort.String() + " "
	}
	cl.SetTitle(title)
}

func (cl *ConversationList) compare(a, b store.Conversation) int {
	switch cl.sort {
	case SortUnread:
		if c := cmp.Compare(b.UnreadCount, a.UnreadCount); c != 0 {
			return c
		}
	case SortName:
		return cmp.Compare(strings.ToLower(displayName(a)), strings.ToLower(displayName(b)))
	}
	return cmp.Compare(b.LastMessageAt, a.LastMessageAt)
}

func displayName(c store.Conversation) string {
	if c.Name != "" {
		return c.Name
	}
	return peerLabel(c.Kind, c.Peer)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
