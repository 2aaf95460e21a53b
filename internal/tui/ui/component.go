package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 shortcuts use their own color
}

// Component is a page of the TUI.
type Component interface {
	tview.Primitive
	// Name is the breadcrumb label. It may change while the page is shown.
	Name() string
}
