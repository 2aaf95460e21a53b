package qq

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const pollEvents = `{"retcode":0,"result":[
	{"poll_type":"message","value":{"msg_id":1,"from_uin":10,"to_uin":1234,"time":1,
		"content":[["font",{"name":"宋体","size":10,"style":[0,0,0],"color":"000000"}],"hello"]}},
	{"poll_type":"group_message","value":{"msg_id":2,"from_uin":20,"group_code":21,"send_uin":10,"to_uin":1234,"time":2,
		"content":[["font",{"name":"宋体","size":10,"style":[0,0,0],"color":"000000"}],"hi ",["face",14]]}},
	{"poll_type":"unknown","value":{"whatever":true}}
]}`

// recorder collects dispatched events as strings, in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	seen   chan struct{}
}

func newRecorder() *recorder { return &recorder{seen: make(chan struct{}, 100)} }

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func (r *recorder) OnMessage(m Message)             { r.add("message:" + m.Content.Text) }
func (r *recorder) OnGroupMessage(m GroupMessage)   { r.add("group_message:" + m.Content.Text) }
func (r *recorder) OnDiscussMessage(DiscussMessage) { r.add("discu_message") }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestPollOnceDispatchesInOrder(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := formPayload(t, r)
		if p["psessionid"] != "ps" || p["ptwebqq"] != "ptw" || p["key"] != "" {
			t.Errorf("poll payload = %v", p)
		}
		writeBody(w, pollEvents)
	})
	c, _ := newTestClient(t, h, Config{})
	establishSession(c)
	rec := newRecorder()

	if err := c.NewPoller(rec).PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := rec.snapshot()
	want := []string{"message:hello", "group_message:hi [face:14]"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPollOnceIdleTimeout(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"retcode":0,"errmsg":"error!!!"}`)
	})
	c, _ := newTestClient(t, h, Config{})
	establishSession(c)
	rec := newRecorder()

	if err := c.NewPoller(rec).PollOnce(context.Background()); err != nil {
		t.Fatalf("idle poll should not fail: %v", err)
	}
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("dispatched %d events on idle poll", n)
	}
}

func TestPollerRequiresSession(t *testing.T) {
	c := NewClient(Config{})
	p := c.NewPoller(HandlerFuncs{})
	if err := p.Start(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Start err = %v, want ErrNotLoggedIn", err)
	}
	if p.Running() {
		t.Error("poller running without a session")
	}
}

func TestPollerSurvivesFailures(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch n := calls.Add(1); {
		case n == 1:
			w.WriteHeader(http.StatusBadGateway)
		case n == 2:
			writeBody(w, "not json")
		case n == 3:
			writeBody(w, `{"retcode":100001}`)
		default:
			writeBody(w, pollEvents)
		}
	})
	c, _ := newTestClient(t, h, Config{})
	establishSession(c)
	rec := newRecorder()
	p := c.NewPoller(rec)
	p.delay = time.Millisecond

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Errorf("second Start err = %v, want ErrPollerRunning", err)
	}

	select {
	case <-rec.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after failures")
	}

	p.Stop()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}
	if p.Running() {
		t.Error("Running = true after Stop")
	}
	if calls.Load() < 4 {
		t.Errorf("poll calls = %d, want at least 4", calls.Load())
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"retcode":0,"errmsg":"error!!!"}`)
	})
	c, _ := newTestClient(t, h, Config{})
	establishSession(c)
	p := c.NewPoller(HandlerFuncs{})
	p.delay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancel")
	}
	if p.Running() {
		t.Error("Running = true after cancel")
	}
}

func TestPollerRestartWaitsForPreviousLoop(t *testing.T) {
	var calls, inFlight, maxInFlight atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		writeBody(w, `{"retcode":0,"errmsg":"error!!!"}`)
	})
	c, _ := newTestClient(t, h, Config{})
	t.Cleanup(unblock)
	establishSession(c)
	p := c.NewPoller(HandlerFuncs{})
	p.delay = time.Millisecond

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := p.Done()
	<-entered
	p.Stop()

	restarted := make(chan error, 1)
	go func() { restarted <- p.Start(context.Background()) }()
	select {
	case err := <-restarted:
		t.Fatalf("Start returned %v while the previous call was in flight", err)
	case <-time.After(100 * time.Millisecond):
	}

	unblock()
	select {
	case err := <-restarted:
		if err != nil {
			t.Fatalf("restart: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restart never returned")
	}
	select {
	case <-first:
	default:
		t.Error("restart returned before the first loop exited")
	}
	if !p.Running() {
		t.Error("restarted loop not running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	<-p.Done()

	if calls.Load() < 3 {
		t.Errorf("poll calls = %d, restarted loop did not poll", calls.Load())
	}
	if m := maxInFlight.Load(); m != 1 {
		t.Errorf("max concurrent poll calls = %d, want 1", m)
	}
}

func TestPollerRestartCanceled(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		writeBody(w, `{"retcode":0,"errmsg":"error!!!"}`)
	})
	c, _ := newTestClient(t, h, Config{})
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })
	establishSession(c)
	p := c.NewPoller(HandlerFuncs{})
	p.delay = time.Millisecond

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-entered
	p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start err = %v, want DeadlineExceeded", err)
	}
	if p.Running() {
		t.Error("Running = true after a canceled restart")
	}

	releaseOnce.Do(func() { close(release) })
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first loop did not exit")
	}
}

// gatedRecorder holds the first friend message until release is closed.
type gatedRecorder struct {
	*recorder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRecorder) OnMessage(m Message) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.recorder.OnMessage(m)
}

func TestPollerStopFinishesInFlightCall(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeBody(w, pollEvents)
			return
		}
		writeBody(w, `{"retcode":0,"errmsg":"error!!!"}`)
	})
	c, _ := newTestClient(t, h, Config{})
	establishSession(c)
	rec := &gatedRecorder{recorder: newRecorder(), entered: make(chan struct{}), release: make(chan struct{})}
	var releaseOnce sync.Once
	t.Cleanup(func() { releaseOnce.Do(func() { close(rec.release) }) })
	p := c.NewPoller(rec)
	p.delay = time.Millisecond

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rec.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
	}
	p.Stop()

	select {
	case <-p.Done():
		t.Fatal("loop exited in the middle of dispatching")
	case <-time.After(50 * time.Millisecond):
	}

	releaseOnce.Do(func() { close(rec.release) })
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}

	got := rec.snapshot()
	want := []string{"message:hello", "group_message:hi [face:14]"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("poll calls = %d after Stop, want 1", n)
	}
}
