package qq

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// CookieJar accumulates Set-Cookie state across every call of a session.
// Values are keyed by name only; a newer value for a name replaces the older
// one. Nothing expires locally: the remote service is the only authority on
// whether a cookie is still valid.
type CookieJar struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCookieJar creates an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{values: make(map[string]string)}
}

// Merge unions the given cookies into the jar, overwriting by name.
func (j *CookieJar) Merge(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		j.values[c.Name] = c.Value
	}
}

// Get returns the value stored for name.
func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v, ok := j.values[name]
	return v, ok
}

// Len returns the number of cookies held.
func (j *CookieJar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.values)
}

// Cookies returns a snapshot of the jar as request cookies, sorted by name.
func (j *CookieJar) Cookies() []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]*http.Cookie, 0, len(j.values))
	for _, name := range j.sortedNames() {
		out = append(out, &http.Cookie{Name: name, Value: j.values[name]})
	}
	return out
}

// Encode serializes the jar into a Cookie header value.
func (j *CookieJar) Encode() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	parts := make([]string, 0, len(j.values))
	for _, name := range j.sortedNames() {
		parts = append(parts, name+"="+j.values[name])
	}
	return strings.Join(parts, "; ")
}

func (j *CookieJar) sortedNames() []string {
	names := make([]string, 0, len(j.values))
	for name := range j.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
