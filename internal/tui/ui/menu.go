package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// menuRows is how many hints stack in one column before the next starts.
const menuRows = 5

// Menu shows the key hints of the current page in columns.
type Menu struct {
	*tview.Table
	theme *Theme
}

// NewMenu creates a menu.
func NewMenu(theme *Theme) *Menu {
	t := tview.NewTable().
		SetBorders(false).
		SetSelectable(false, false)
	t.SetBackgroundColor(theme.BgColor)
	t.SetBorderPadding(1, 0, 2, 0)

	return &Menu{Table: t, theme: theme}
}

// Update lays hints out top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	for i, h := range hints {
		kc := m.theme.MenuKeyColor
		if h.Numeric {
			kc = m.theme.NumericKeyColor
		}
		text := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", ColorTag(kc), tview.Escape(h.Key), h.Description)
		m.SetCell(i%menuRows, i/menuRows, tview.NewTableCell(text).
			SetTextColor(m.theme.FgColor).
			SetExpansion(0).
			SetAlign(tview.AlignLeft))
	}
}
