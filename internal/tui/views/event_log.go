package views

import (
	"fmt"
	"time"

	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/rivo/tview"
)

const eventLogLines = 500

// EventLog tails the daemon's event stream.
type EventLog struct {
	*tview.TextView
	theme *ui.Theme
	count int
}

// NewEventLog creates the view.
func NewEventLog(theme *ui.Theme) *EventLog {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(eventLogLines)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Events ")
	tv.SetTitleColor(theme.TitleColor)

	return &EventLog{TextView: tv, theme: theme}
}

func (el *EventLog) Name() string { return "Events" }

// Append adds one event line.
func (el *EventLog) Append(env api.Envelope) {
	el.count++
	payload := string(env.Payload)
	if len([]rune(payload)) > 160 {
		payload = string([]rune(payload)[:160]) + "..."
	}
	_, _ = fmt.Fprintf(el, "[::d]%s[-:-:-] [%s]%-24s[-] %s\n",
		time.UnixMilli(env.TimestampMs).Format("15:04:05"),
		ui.ColorTag(el.theme.MenuKeyColor), env.Kind, cell(payload))
	el.SetTitle(fmt.Sprintf(" Events (%d) ", el.count))
	el.ScrollToEnd()
}
