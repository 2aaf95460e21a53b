package views

import (
	"fmt"
	"strconv"

	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ContactsView is the table of cached friends, groups or discussions.
type ContactsView struct {
	*tview.Table
	theme    *ui.Theme
	kind     string
	contacts []store.Contact
}

// NewContactsView creates the view showing friends.
func NewContactsView(theme *ui.Theme) *ContactsView {
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

	cv := &ContactsView{Table: table, theme: theme, kind: store.KindFriend}
	cv.render()
	return cv
}

func (cv *ContactsView) Name() string { return "Contacts" }

// Kind returns the kind on display.
func (cv *ContactsView) Kind() string { return cv.kind }

// Update shows contacts of kind.
func (cv *ContactsView) Update(kind string, contacts []store.Contact) {
	if kind != cv.kind {
		cv.Select(1, 0)
	}
	cv.kind, cv.contacts = kind, contacts
	cv.render()
}

// Selected returns the contact under the cursor.
func (cv *ContactsView) Selected() (store.Contact, bool) {
	row, _ := cv.GetSelection()
	if row < 1 || row > len(cv.contacts) {
		return store.Contact{}, false
	}
	return cv.contacts[row-1], true
}

var contactTitles = map[string]string{
	store.KindFriend:  "Friends",
	store.KindGroup:   "Groups",
	store.KindDiscuss: "Discussions",
}

func (cv *ContactsView) render() {
	cv.Clear()

	extra := ""
	switch cv.kind {
	case store.KindFriend:
		extra = " CATEGORY"
	case store.KindGroup:
		extra = " CODE"
	}
	for col, h := range []string{" ID", " NAME", " MARKNAME", extra} {
		header := tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(cv.theme.TableHeaderFg).
			SetBackgroundColor(cv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold)
		if col == 1 {
			header.SetExpansion(1)
		}
		cv.SetCell(0, col, header)
	}

	for i, c := range cv.contacts {
		row := i + 1
		var value string
		switch cv.kind {
		case store.KindFriend:
			value = strconv.Itoa(c.Category)
		case store.KindGroup:
			value = strconv.FormatInt(c.Code, 10)
		}
		cv.SetCell(row, 0, tview.NewTableCell(" "+strconv.FormatInt(c.ID, 10)).SetTextColor(cv.theme.FgColor))
		cv.SetCell(row, 1, tview.NewTableCell(" "+cell(c.Name)).SetExpansion(1).SetTextColor(cv.theme.FgColor))
		cv.SetCell(row, 2, tview.NewTableCell(" "+cell(c.Markname)).SetTextColor(cv.theme.FgColor))
		cv.SetCell(row, 3, tview.NewTableCell(" "+value).SetTextColor(cv.theme.FgColor))
	}
	cv.SetTitle(fmt.Sprintf(" %s (%d) ", contactTitles[cv.kind], len(cv.contacts)))
}
