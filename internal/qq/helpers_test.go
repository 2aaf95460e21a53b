package qq

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient points every endpoint of a fresh client at h.
func newTestClient(t *testing.T, h http.Handler, cfg Config) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	eps := DefaultEndpoints().Rebase(srv.URL)
	cfg.Endpoints = &eps
	c := NewClient(cfg)
	c.qrCheckInterval = time.Millisecond
	return c, srv
}

// establishSession fills the session as a completed Login would.
func establishSession(c *Client) {
	c.setSession(func(s *Session) {
		*s = Session{Ptwebqq: "ptw", Vfwebqq: "vf", Psessionid: "ps", Uin: 1234}
	})
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, body)
}

// formPayload decodes the JSON carried in the "r" form field.
func formPayload(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	if err := r.ParseForm(); err != nil {
		t.Errorf("parse form: %v", err)
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(r.PostForm.Get("r")), &payload); err != nil {
		t.Errorf("form field r = %q: %v", r.PostForm.Get("r"), err)
		return nil
	}
	return payload
}
