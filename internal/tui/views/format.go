package views

import (
	"strconv"
	"time"

	"github.com/ArkBriar/smartqq/internal/store"
)

var now = time.Now

// formatTimestamp shows the time for today and the date otherwise. ms is
// in milliseconds; zero renders empty.
func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	n := now()
	if t.Year() == n.Year() && t.YearDay() == n.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func kindLabel(kind string) string {
	switch kind {
	case store.KindFriend:
		return "FRIEND"
	case store.KindGroup:
		return "GROUP"
	case store.KindDiscuss:
		return "DISCUSS"
	}
	return kind
}

// peerLabel is the fallback name of a conversation without one.
func peerLabel(kind string, peer int64) string {
	return kind + ":" + strconv.FormatInt(peer, 10)
}
