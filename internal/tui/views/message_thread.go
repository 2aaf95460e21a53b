package views

import (
	"fmt"
	"strconv"

	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// MessageThread shows one conversation with a composer below it.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	conv     store.Conversation
	onSend   func(text string)
	onEscape func()
}

// NewMessageThread creates the view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := composer.GetText()
			if text != "" && mt.onSend != nil {
				mt.onSend(text)
				composer.SetText("")
			}
		case tcell.KeyEscape:
			if mt.onEscape != nil {
				mt.onEscape()
			}
		}
	})

	return mt
}

func (mt *MessageThread) Name() string {
	if mt.conv.Kind == "" {
		return "Messages"
	}
	return displayName(mt.conv)
}

// Open switches the thread to conv and clears the old messages.
func (mt *MessageThread) Open(conv store.Conversation) {
	mt.conv = conv
	mt.messages.Clear()
	mt.messages.SetTitle(fmt.Sprintf(" %s (%s) ", cell(displayName(conv)), kindLabel(conv.Kind)))
}

// Conversation returns the open conversation.
func (mt *MessageThread) Conversation() store.Conversation {
	return mt.conv
}

func (mt *MessageThread) SetOnSend(fn func(text string)) { mt.onSend = fn }

// SetOnEscape sets what Esc does inside the composer.
func (mt *MessageThread) SetOnEscape(fn func()) { mt.onEscape = fn }

// Update renders msgs, given newest first, oldest at the top.
func (mt *MessageThread) Update(msgs []store.Message) {
	mt.messages.Clear()

	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender, color := m.SenderName, mt.theme.PeerColor
		if sender == "" {
			sender = strconv.FormatInt(m.Sender, 10)
		}
		if m.FromMe {
			sender, color = "You", mt.theme.SelfColor
		}

		_, _ = fmt.Fprintf(mt.messages, "[%s::b]%s[-:-:-] [::d]%s%s[-:-:-]\n%s\n\n",
			ui.ColorTag(color), cell(sender),
			formatTimestamp(m.Timestamp), deliveryMark(m),
			cell(m.Body))
	}

	mt.messages.ScrollToEnd()
}

func deliveryMark(m store.Message) string {
	if !m.FromMe {
		return ""
	}
	switch m.Status {
	case store.StatusPending:
		return " (sending)"
	case store.StatusFailed:
		return " (failed)"
	}
	return ""
}

// Messages returns the message pane.
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the input field.
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
