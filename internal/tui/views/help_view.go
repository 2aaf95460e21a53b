package views

import (
	"fmt"
	"strings"

	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView lists keys and commands.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	_, _ = fmt.Fprint(tv, helpText(ui.ColorTag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

func (hv *HelpView) Name() string { return "Help" }

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"Esc", "Cancel / go back"},
		{"?", "This help"},
		{"Ctrl-C", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"/", "Filter by name or last message"},
		{"1-9", "Open the nth conversation"},
		{"s", "Cycle sort: recent, unread, name"},
		{"c", "Contacts"},
		{"e", "Event log"},
		{"q", "Quit"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus the composer"},
		{"Enter", "Send (in the composer)"},
		{"d", "Details"},
	}},
	{"Contacts", [][2]string{
		{"f / g / d", "Friends, groups, discussions"},
		{"Enter", "Open conversation"},
		{"R", "Refresh from the server"},
	}},
	{"Commands", [][2]string{
		{":search <query>", "Search messages"},
		{":chat <name>", "Open a conversation by name"},
		{":send <kind> <id> <text>", "Send without opening"},
		{":contacts [kind]", "Contacts"},
		{":events", "Event log"},
		{":refresh [kind]", "Refresh cached contacts"},
		{":login", "Start a QR login"},
		{":stop", "Stop polling"},
		{":quit / :q", "Quit"},
	}},
}

func helpText(keyColor string) string {
	var sb strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&sb, "  [%s]%-26s[-:-:-] %s\n", keyColor, tview.Escape(k[0]), k[1])
		}
	}
	return sb.String()
}
