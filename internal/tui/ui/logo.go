package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the header logo.
type Logo struct {
	*tview.TextView
}

// NewLogo creates the logo.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := ColorTag(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b] ╔═╗╔╦╗╔═╗╦═╗╔╦╗[-:-:-]\n"+
			"[%s::b] ╚═╗║║║╠═╣╠╦╝ ║ [-:-:-]\n"+
			"[%s::b] ╚═╝╩ ╩╩ ╩╩╚═ ╩ [-:-:-]\n"+
			"[%s]   QQ in a terminal[-:-:-]",
		title, title, title, ColorTag(theme.FgColor),
	)
	return &Logo{TextView: tv}
}
