package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rivo/tview"
)

// SessionData is what the header shows about the daemon.
type SessionData struct {
	Session       string
	Account       int64
	Nick          string
	Status        string
	Polling       bool
	Conversations int
	Messages      int64
	Contacts      int64
	Uptime        time.Duration
}

// SessionInfo is the header panel with session details.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates the panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data; nil clears the panel.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := ColorTag(si.theme.FgColor)
	val := ColorTag(si.theme.CounterColor)

	account := "-"
	if data.Account != 0 {
		account = strconv.FormatInt(data.Account, 10)
		if data.Nick != "" {
			account += " (" + tview.Escape(data.Nick) + ")"
		}
	}
	polling := "off"
	if data.Polling {
		polling = "on"
	}

	rows := []struct{ label, value string }{
		{"Session:", tview.Escape(data.Session)},
		{"QQ:", account},
		{"Status:", fmt.Sprintf("[%s]%s", ColorTag(si.theme.StatusColor(data.Status)), data.Status)},
		{"Polling:", polling},
		{"Chats:", strconv.Itoa(data.Conversations)},
		{"Msgs:", strconv.FormatInt(data.Messages, 10)},
		{"Contacts:", strconv.FormatInt(data.Contacts, 10)},
		{"Uptime:", FormatDuration(data.Uptime)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(si, "\n")
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-9s[-:-:-] [%s]%s[-]", fg, r.label, val, r.value)
	}
}

// FormatDuration renders d as 3h7m, or 7m under an hour.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
