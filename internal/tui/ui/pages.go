package ui

import "github.com/rivo/tview"

// Pages is a stack of named components on top of tview.Pages. Pushing a
// page hides the one below it; popping reveals it again.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func(top Component, crumbs []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Add registers a component under a page name without showing it.
func (p *Pages) Add(name string, c Component) {
	p.components[name] = c
	p.AddPage(name, c, true, false)
}

// SetOnChange sets a callback fired whenever the stack changes.
func (p *Pages) SetOnChange(fn func(top Component, crumbs []string)) {
	p.onChange = fn
}

// Push shows the named page on top. Pushing the current page only
// refreshes the crumbs; a page already deeper in the stack is moved up.
func (p *Pages) Push(name string) {
	if _, ok := p.components[name]; !ok {
		return
	}
	if p.Current() != name {
		if len(p.stack) > 0 {
			p.HidePage(p.Current())
		}
		p.remove(name)
		p.stack = append(p.stack, name)
		p.ShowPage(name)
		p.SendToFront(name)
	}
	p.notify()
}

// Pop removes the top page and returns its name. The bottom page is never
// popped.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	current := p.Current()
	p.ShowPage(current)
	p.SendToFront(current)
	p.notify()
	return top
}

// Reset clears the stack down to the named page.
func (p *Pages) Reset(name string) {
	if _, ok := p.components[name]; !ok {
		return
	}
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Current returns the name of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Top returns the component on top, or nil.
func (p *Pages) Top() Component {
	return p.components[p.Current()]
}

// Crumbs returns the component names from the bottom of the stack up.
func (p *Pages) Crumbs() []string {
	crumbs := make([]string, 0, len(p.stack))
	for _, n := range p.stack {
		crumbs = append(crumbs, p.components[n].Name())
	}
	return crumbs
}

// Depth returns the stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Refresh re-fires the change callback, e.g. after a component renamed
// itself.
func (p *Pages) Refresh() {
	p.notify()
}

func (p *Pages) remove(name string) {
	for i, n := range p.stack {
		if n == name {
			p.stack = append(p.stack[:i], p.stack[i+1:]...)
			return
		}
	}
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Top(), p.Crumbs())
	}
}
