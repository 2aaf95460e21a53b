package ui

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
)

type page struct {
	*tview.Box
	name string
}

func (p *page) Name() string { return p.name }

func newPage(name string) Component {
	return &page{Box: tview.NewBox(), name: name}
}

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, n := range []string{"list", "chat", "info"} {
		p.Add(n, newPage(n+"-label"))
	}
	var (
		tops   []string
		crumbs []string
	)
	p.SetOnChange(func(top Component, c []string) {
		tops = append(tops, top.Name())
		crumbs = c
	})

	p.Reset("list")
	p.Push("chat")
	p.Push("info")
	if got := p.Current(); got != "info" {
		t.Fatalf("current = %q", got)
	}
	if want := []string{"list-label", "chat-label", "info-label"}; !slices.Equal(crumbs, want) {
		t.Errorf("crumbs = %v, want %v", crumbs, want)
	}
	if name, _ := p.GetFrontPage(); name != "info" {
		t.Errorf("front page = %q", name)
	}

	if popped := p.Pop(); popped != "info" {
		t.Errorf("popped %q", popped)
	}
	if name, _ := p.GetFrontPage(); name != "chat" {
		t.Errorf("front page after pop = %q", name)
	}

	p.Push("list")
	if want := []string{"chat-label", "list-label"}; !slices.Equal(p.Crumbs(), want) {
		t.Errorf("re-pushing moved page: crumbs = %v, want %v", p.Crumbs(), want)
	}

	p.Pop()
	if p.Pop() != "" || p.Depth() != 1 {
		t.Errorf("bottom page popped; depth = %d", p.Depth())
	}

	p.Push("missing")
	if p.Current() != "chat" {
		t.Errorf("unknown page pushed: current = %q", p.Current())
	}
	if tops[len(tops)-1] != "chat-label" {
		t.Errorf("last change top = %q", tops[len(tops)-1])
	}
}

func TestFlashExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model has a message")
	}
	f.Warn("careful")
	if m := f.Current(); m == nil || m.Text != "careful" || m.Level != FlashWarn {
		t.Fatalf("current = %+v", m)
	}
	now = now.Add(9 * time.Second)
	if m := f.Current(); m != nil {
		t.Errorf("message outlived its expiry: %+v", m)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Minute, "59m"},
		{3*time.Hour + 7*time.Minute, "3h7m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	var hints []MenuHint
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		hints = append(hints, MenuHint{Key: k, Description: "do " + k})
	}
	m.Update(hints)

	if rows, cols := m.GetRowCount(), m.GetColumnCount(); rows != menuRows || cols != 2 {
		t.Fatalf("menu is %dx%d", rows, cols)
	}
	if got := m.GetCell(1, 1).Text; !strings.Contains(got, "<g>") || !strings.HasSuffix(got, "do g") {
		t.Errorf("cell (1,1) = %q", got)
	}

	m.Update(hints[:1])
	if rows, cols := m.GetRowCount(), m.GetColumnCount(); rows != 1 || cols != 1 {
		t.Errorf("menu not cleared: %dx%d", rows, cols)
	}
}
