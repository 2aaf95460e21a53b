package views

import (
	"strconv"

	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// SearchView is a query input over a result table.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []store.SearchResult
	names   func(kind string, peer int64) string
}

// NewSearchView creates the view. names resolves conversation names for
// the result table and may be nil.
func NewSearchView(theme *ui.Theme, names func(kind string, peer int64) string) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
		names:   names,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil && sv.input.GetText() != "" {
			sv.onQuery(sv.input.GetText())
		}
	})
	return sv
}

func (sv *SearchView) Name() string { return "Search" }

func (sv *SearchView) SetOnQuery(fn func(query string)) { sv.onQuery = fn }

// Query fills the input with q and runs it.
func (sv *SearchView) Query(q string) {
	sv.input.SetText(q)
	if sv.onQuery != nil {
		sv.onQuery(q)
	}
}

// Update renders results.
func (sv *SearchView) Update(results []store.SearchResult) {
	sv.data = results
	sv.results.Clear()

	for col, h := range []string{" CHAT", " FROM", " SNIPPET", " TIME"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range results {
		row := i + 1
		m := r.Message
		chat := peerLabel(m.Kind, m.Peer)
		if sv.names != nil {
			if n := sv.names(m.Kind, m.Peer); n != "" {
				chat = n
			}
		}
		from := m.SenderName
		if m.FromMe {
			from = "You"
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+cell(chat)).SetMaxWidth(25).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+cell(from)).SetMaxWidth(16).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+cell(r.Snippet)).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 3, tview.NewTableCell(" "+formatTimestamp(m.Timestamp)).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
	sv.results.SetTitle(" Results (" + strconv.Itoa(len(results)) + ") ")
	sv.results.Select(1, 0)
}

// Selected returns the message of the selected result.
func (sv *SearchView) Selected() (store.Message, bool) {
	row, _ := sv.results.GetSelection()
	if row < 1 || row > len(sv.data) {
		return store.Message{}, false
	}
	return sv.data[row-1].Message, true
}

// Input returns the query field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the result table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
