package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/status"
	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/client"
	"github.com/ArkBriar/smartqq/internal/tui/keys"
	"github.com/ArkBriar/smartqq/internal/tui/model"
	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/ArkBriar/smartqq/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Page names.
const (
	pageConversations = "conversations"
	pageThread        = "thread"
	pageDetails       = "details"
	pageSearch        = "search"
	pageContacts      = "contacts"
	pageEvents        = "events"
	pageAuth          = "auth"
	pageHelp          = "help"
)

const statusInterval = 5 * time.Second

// App is the terminal client of one session daemon.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	vm       *model.ViewModel
	backend  model.Backend
	registry *keys.Registry
	flash    *ui.FlashModel
	session  string

	root     *tview.Flex
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	prompt   *ui.Prompt
	flashBar *ui.FlashBar

	convList *views.ConversationList
	thread   *views.MessageThread
	details  *views.ConversationInfo
	search   *views.SearchView
	contacts *views.ContactsView
	events   *views.EventLog
	auth     *views.AuthView
	help     *views.HelpView

	authMu     sync.Mutex
	authCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp builds the UI for a daemon reached through b.
func NewApp(b model.Backend, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	vm := model.NewViewModel(b)

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		vm:       vm,
		backend:  b,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		session:  sessionName,
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		prompt:   ui.NewPrompt(theme),
		flashBar: ui.NewFlashBar(theme),
		convList: views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		details:  views.NewConversationInfo(theme),
		contacts: views.NewContactsView(theme),
		events:   views.NewEventLog(theme),
		auth:     views.NewAuthView(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.search = views.NewSearchView(theme, vm.Name)

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	r := a.registry
	onRune := func(ch rune, label, desc string, fn func()) *keys.Action {
		return &keys.Action{Key: tcell.KeyRune, Rune: ch, Label: label, Description: desc, Handler: fn, Visible: label != ""}
	}
	onKey := func(k tcell.Key, label, desc string, fn func()) *keys.Action {
		return &keys.Action{Key: k, Label: label, Description: desc, Handler: fn, Visible: label != ""}
	}

	r.AddGlobal(onRune(':', ":", "Command", func() { a.showPrompt(ui.PromptCommand) }))
	r.AddGlobal(onRune('?', "?", "Help", func() { a.pages.Push(pageHelp) }))
	r.AddGlobal(onKey(tcell.KeyEscape, "Esc", "Back", a.back))

	r.AddView(pageConversations, onKey(tcell.KeyEnter, "Enter", "Open", func() {
		if conv, ok := a.convList.Selected(); ok {
			a.openConversation(conv)
		}
	}))
	r.AddView(pageConversations, onRune('/', "/", "Filter", func() { a.showPrompt(ui.PromptFilter) }))
	r.AddView(pageConversations, onRune('s', "s", "Sort", func() {
		a.flash.Info("sorted by " + a.convList.CycleSort().String())
		a.renderFlash()
	}))
	r.AddView(pageConversations, onRune('c', "c", "Contacts", func() { a.showContacts(store.KindFriend) }))
	r.AddView(pageConversations, onRune('e', "e", "Events", func() { a.pages.Push(pageEvents) }))
	r.AddView(pageConversations, onRune('q', "q", "Quit", a.Stop))
	for n := 1; n <= 9; n++ {
		label := ""
		if n == 1 {
			label = "1-9"
		}
		action := onRune(rune('0'+n), label, "Jump", func() {
			if conv, ok := a.convList.ByIndex(n); ok {
				a.openConversation(conv)
			}
		})
		action.Numeric = true
		r.AddView(pageConversations, action)
	}

	r.AddView(pageThread, onRune('i', "i", "Compose", func() { a.app.SetFocus(a.thread.Composer()) }))
	r.AddView(pageThread, onRune('d', "d", "Details", a.showDetails))

	r.AddView(pageSearch, onKey(tcell.KeyEnter, "Enter", "Open", func() {
		if m, ok := a.search.Selected(); ok {
			a.openConversation(a.vm.Conversation(m.Kind, m.Peer))
		}
	}))
	r.AddView(pageSearch, onKey(tcell.KeyTab, "Tab", "Query", func() { a.app.SetFocus(a.search.Input()) }))

	r.AddView(pageContacts, onKey(tcell.KeyEnter, "Enter", "Open", func() {
		if c, ok := a.contacts.Selected(); ok {
			a.openConversation(a.vm.Conversation(c.Kind, c.ID))
		}
	}))
	r.AddView(pageContacts, onRune('f', "f", "Friends", func() { a.showContacts(store.KindFriend) }))
	r.AddView(pageContacts, onRune('g', "g", "Groups", func() { a.showContacts(store.KindGroup) }))
	r.AddView(pageContacts, onRune('d', "d", "Discussions", func() { a.showContacts(store.KindDiscuss) }))
	r.AddView(pageContacts, onRune('R', "R", "Refresh", func() { a.refreshContacts(a.contacts.Kind()) }))

	r.AddView(pageAuth, onRune('r', "r", "Restart login", a.startAuth))
}

func (a *App) setupCallbacks() {
	a.thread.SetOnSend(a.send)
	a.thread.SetOnEscape(func() { a.app.SetFocus(a.thread.Messages()) })

	a.search.SetOnQuery(func(query string) {
		go func() {
			results, err := a.vm.Search(a.ctx, query)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.flash.Err("search", err)
					a.renderFlash()
					return
				}
				a.search.Update(results)
				a.app.SetFocus(a.search.Results())
			})
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.convList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(top ui.Component, crumbs []string) {
		a.crumbs.Update(crumbs)
		a.menu.Update(a.registry.Hints(a.pages.Current()))
		a.focusPage()
	})
}

func (a *App) setupLayout() {
	a.pages.Add(pageConversations, a.convList)
	a.pages.Add(pageThread, a.thread)
	a.pages.Add(pageDetails, a.details)
	a.pages.Add(pageSearch, a.search)
	a.pages.Add(pageContacts, a.contacts)
	a.pages.Add(pageEvents, a.events)
	a.pages.Add(pageAuth, a.auth)
	a.pages.Add(pageHelp, a.help)

	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 20, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 10, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
	a.pages.Reset(pageConversations)
	a.renderInfo()
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if field, ok := a.app.GetFocus().(*tview.InputField); ok {
		if field == a.search.Input() {
			switch ev.Key() {
			case tcell.KeyEscape:
				a.back()
				return nil
			case tcell.KeyTab:
				a.app.SetFocus(a.search.Results())
				return nil
			}
		}
		return ev
	}
	if a.registry.HandleEvent(a.pages.Current(), ev) {
		return nil
	}
	return ev
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.search.Input())
	default:
		if top := a.pages.Top(); top != nil {
			a.app.SetFocus(top)
		}
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.convList.Filter())
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusPage()
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageThread:
		a.vm.Close()
	case pageAuth:
		a.cancelAuth()
	}
	a.pages.Pop()
	a.render()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.pages.Push(pageHelp)
	case "search":
		a.pages.Push(pageSearch)
		if cmd.Args != "" {
			a.search.Query(cmd.Args)
		}
	case "chat":
		a.openByName(cmd.Args)
	case "send":
		kind, peer, text, err := sendArgs(cmd.Args)
		if err != nil {
			a.flash.Warn(err.Error())
			break
		}
		go func() {
			id, err := a.vm.Send(a.ctx, kind, peer, text)
			if err != nil {
				a.flash.Err("send", err)
			} else {
				a.flash.Info("queued " + id)
			}
			a.app.QueueUpdateDraw(a.renderFlash)
		}()
	case "contacts":
		kind, err := contactKind(cmd.Args)
		if err != nil {
			a.flash.Warn(err.Error())
			break
		}
		a.showContacts(kind)
	case "events":
		a.pages.Push(pageEvents)
	case "refresh":
		a.refreshContacts(cmd.Args)
	case "login":
		a.startAuth()
	case "stop":
		go func() {
			stopped, err := a.vm.StopPolling(a.ctx)
			switch {
			case err != nil:
				a.flash.Err("stop polling", err)
			case stopped:
				a.flash.Info("polling stopped")
			default:
				a.flash.Info("polling was not running")
			}
			a.app.QueueUpdateDraw(a.renderFlash)
		}()
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
	a.renderFlash()
}

// openByName opens the conversation, or else the contact, matching name.
func (a *App) openByName(name string) {
	if name == "" {
		a.flash.Warn("usage: chat <name>")
		return
	}
	if conv, ok := a.convList.Find(name); ok {
		a.openConversation(conv)
		return
	}
	for _, kind := range []string{store.KindFriend, store.KindGroup, store.KindDiscuss} {
		for _, c := range a.vm.Contacts(kind) {
			if strings.EqualFold(c.DisplayName(), name) || strings.EqualFold(c.Name, name) {
				a.openConversation(a.vm.Conversation(kind, c.ID))
				return
			}
		}
	}
	a.flash.Warn(fmt.Sprintf("no conversation named %q", name))
}

func (a *App) openConversation(conv store.Conversation) {
	a.thread.Open(conv)
	a.pages.Push(pageThread)
	go func() {
		if err := a.vm.Open(a.ctx, conv); err != nil {
			a.flash.Err("load messages", err)
			a.app.QueueUpdateDraw(a.renderFlash)
		}
	}()
}

func (a *App) send(text string) {
	conv := a.thread.Conversation()
	go func() {
		if _, err := a.vm.Send(a.ctx, conv.Kind, conv.Peer, text); err != nil {
			a.flash.Err("send", err)
			a.app.QueueUpdateDraw(a.renderFlash)
			return
		}
		if err := a.vm.LoadMessages(a.ctx); err != nil {
			a.flash.Err("load messages", err)
		}
	}()
}

func (a *App) showDetails() {
	conv := a.thread.Conversation()
	a.details.Update(conv, nil)
	a.pages.Push(pageDetails)
	go func() {
		details, err := a.vm.Details(a.ctx, conv)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.Err("details", err)
				a.renderFlash()
				return
			}
			a.details.Update(conv, details)
		})
	}()
}

func (a *App) showContacts(kind string) {
	a.contacts.Update(kind, a.vm.Contacts(kind))
	a.pages.Push(pageContacts)
	go func() {
		if err := a.vm.LoadContacts(a.ctx, kind); err != nil {
			a.flash.Err("load contacts", err)
			a.app.QueueUpdateDraw(a.renderFlash)
		}
	}()
}

func (a *App) refreshContacts(kind string) {
	a.flash.Info("refreshing contacts...")
	go func() {
		refreshed, err := a.vm.RefreshContacts(a.ctx, kind)
		if err != nil {
			a.flash.Err("refresh contacts", err)
		} else {
			a.flash.Info("refreshed " + strings.Join(refreshed, ", "))
			for _, k := range refreshed {
				_ = a.vm.LoadContacts(a.ctx, k)
			}
		}
		a.app.QueueUpdateDraw(a.renderFlash)
	}()
}

// startAuth shows the login page and runs a QR login, replacing one
// already running. Leaving the page aborts the login.
func (a *App) startAuth() {
	a.cancelAuth()
	ctx, cancel := context.WithCancel(a.ctx)
	a.authMu.Lock()
	a.authCancel = cancel
	a.authMu.Unlock()

	a.auth.Reset("Requesting a QR code...")
	a.pages.Push(pageAuth)
	go a.runAuth(ctx)
}

func (a *App) cancelAuth() {
	a.authMu.Lock()
	defer a.authMu.Unlock()
	if a.authCancel != nil {
		a.authCancel()
		a.authCancel = nil
	}
}

func (a *App) authenticating() bool {
	a.authMu.Lock()
	defer a.authMu.Unlock()
	return a.authCancel != nil
}

func (a *App) runAuth(ctx context.Context) {
	show := func(fn func()) { a.app.QueueUpdateDraw(fn) }

	stream, err := a.backend.Auth(ctx)
	if err != nil {
		show(func() { a.auth.ShowMessage("Login failed to start: " + err.Error()) })
		return
	}
	for {
		evt, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				show(func() { a.auth.ShowMessage("Login stream: " + err.Error() + " (r to retry)") })
			}
			return
		}
		switch evt.Type {
		case adapter.AuthEventQRCode:
			show(func() { a.auth.ShowQR(evt.QRPath) })
		case adapter.AuthEventStage:
			show(func() { a.auth.AddStage(evt.Stage) })
		case adapter.AuthEventAuthenticated:
			a.cancelAuth()
			a.flash.Info("logged in as " + evt.Message)
			_ = a.vm.LoadStatus(a.ctx)
			_ = a.vm.LoadConversations(a.ctx)
			show(func() {
				if a.pages.Current() == pageAuth {
					a.pages.Pop()
				}
				a.render()
			})
			return
		case adapter.AuthEventAuthFailed:
			msg := evt.Message
			if msg == "" {
				msg = "login failed"
			}
			show(func() { a.auth.ShowMessage(msg + " (r to retry)") })
		}
	}
}

// Run loads the initial state and blocks until the UI exits.
func (a *App) Run() error {
	go func() {
		if err := a.vm.LoadStatus(a.ctx); err != nil {
			a.flash.Err("daemon status", err)
		}
		if err := a.vm.LoadConversations(a.ctx); err != nil {
			a.flash.Err("conversations", err)
		}
		for _, kind := range []string{store.KindFriend, store.KindGroup, store.KindDiscuss} {
			_ = a.vm.LoadContacts(a.ctx, kind)
		}
		if st := a.vm.Status(); st != nil && st.Status == string(status.AuthRequired) {
			a.app.QueueUpdateDraw(a.startAuth)
		}
	}()
	go a.watchEvents()
	go a.refreshLoop()

	defer a.cancel()
	return a.app.Run()
}

// refreshLoop redraws on view model changes and polls the status for the
// uptime counter.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case <-ticker.C:
			_ = a.vm.LoadStatus(a.ctx)
		case <-a.ctx.Done():
			return
		}
	}
}

// watchEvents tails the daemon's event stream into the event log and the
// view model, reconnecting with backoff.
func (a *App) watchEvents() {
	backoff := time.Second
	for {
		stream, err := a.backend.Events(a.ctx, "")
		if err == nil {
			backoff = time.Second
			err = a.consumeEvents(stream)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.flash.Warn("event stream: " + err.Error())
		select {
		case <-time.After(backoff):
		case <-a.ctx.Done():
			return
		}
		backoff = min(2*backoff, 30*time.Second)
	}
}

func (a *App) consumeEvents(stream client.Stream[api.Envelope]) error {
	for {
		env, err := stream.Recv()
		if err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.events.Append(*env) })
		if _, err := a.vm.Apply(a.ctx, *env); err != nil {
			a.flash.Err("refresh", err)
		}
		if strings.HasPrefix(env.Kind, "session.") && !a.authenticating() {
			if st := a.vm.Status(); st != nil && st.Status == string(status.AuthRequired) {
				a.flash.Warn("login required: run :login")
			}
		}
	}
}

func (a *App) render() {
	a.convList.Update(a.vm.Conversations())
	if conv, ok := a.vm.Active(); ok {
		open := a.thread.Conversation()
		if conv.Kind == open.Kind && conv.Peer == open.Peer {
			a.thread.Update(a.vm.Messages())
		}
	}
	if a.pages.Current() == pageContacts {
		a.contacts.Update(a.contacts.Kind(), a.vm.Contacts(a.contacts.Kind()))
	}
	a.renderInfo()
	a.renderFlash()
}

func (a *App) renderInfo() {
	data := &ui.SessionData{Session: a.session, Status: "CONNECTING"}
	if st := a.vm.Status(); st != nil {
		data.Status = st.Status
		data.Account = st.Account
		data.Nick = st.Nick
		data.Polling = st.Polling
		data.Messages = st.MessageCount
		data.Contacts = st.ContactCount
		data.Uptime = time.Duration(st.UptimeMs) * time.Millisecond
	}
	data.Conversations = len(a.vm.Conversations())
	a.info.Update(data)
}

func (a *App) renderFlash() {
	a.flashBar.Update(a.flash.Current())
}

// Stop ends the UI and every stream it holds.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
