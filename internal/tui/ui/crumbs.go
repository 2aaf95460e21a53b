package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail, highlighting the last crumb.
func (c *Crumbs) Update(crumbs []string) {
	c.Clear()
	if len(crumbs) == 0 {
		return
	}

	parts := make([]string, 0, len(crumbs))
	for i, name := range crumbs {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(crumbs)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			ColorTag(fg), ColorTag(bg), attr, tview.Escape(strings.ToLower(name))))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
