package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ArkBriar/smartqq/internal/store"
)

// Command is a parsed prompt command, without the leading ':'.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits input into a lower-cased name and the rest.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// sendArgs parses "<kind> <id> <text>".
func sendArgs(args string) (kind string, peer int64, text string, err error) {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 3 || strings.TrimSpace(fields[2]) == "" {
		return "", 0, "", fmt.Errorf("usage: send <friend|group|discuss> <id> <text>")
	}
	kind = strings.ToLower(fields[0])
	if !store.ValidKind(kind) {
		return "", 0, "", fmt.Errorf("unknown kind %q", fields[0])
	}
	peer, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("bad id %q", fields[1])
	}
	return kind, peer, fields[2], nil
}

// contactKind maps the argument of :contacts, defaulting to friends.
func contactKind(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "", "f", "friend", "friends":
		return store.KindFriend, nil
	case "g", "group", "groups":
		return store.KindGroup, nil
	case "d", "discuss", "discussions":
		return store.KindDiscuss, nil
	}
	return "", fmt.Errorf("unknown contact kind %q", arg)
}
