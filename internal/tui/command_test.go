package tui

import (
	"testing"

	"github.com/ArkBriar/smartqq/internal/store"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"q", Command{Name: "q"}},
		{"  Search   hello world ", Command{Name: "search", Args: "hello world"}},
		{"chat book club", Command{Name: "chat", Args: "book club"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSendArgs(t *testing.T) {
	kind, peer, text, err := sendArgs("Group 5 see you at  eight")
	if err != nil {
		t.Fatal(err)
	}
	if kind != store.KindGroup || peer != 5 || text != "see you at  eight" {
		t.Errorf("got %s %d %q", kind, peer, text)
	}

	for _, bad := range []string{"", "friend 10", "friend 10  ", "buddy 10 hi", "friend ten hi"} {
		if _, _, _, err := sendArgs(bad); err == nil {
			t.Errorf("sendArgs(%q) accepted", bad)
		}
	}
}

func TestContactKind(t *testing.T) {
	tests := map[string]string{
		"":       store.KindFriend,
		"groups": store.KindGroup,
		"D":      store.KindDiscuss,
	}
	for in, want := range tests {
		if got, err := contactKind(in); err != nil || got != want {
			t.Errorf("contactKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := contactKind("recent"); err == nil {
		t.Error("contactKind accepted recent")
	}
}
