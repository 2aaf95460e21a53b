package views

import (
	"strings"

	"github.com/rivo/tview"
)

// sanitizeForTerminal drops code points tcell renders badly: emoji skin
// tone modifiers, zero width joiners and variation selectors. A 👍🏻
// becomes a plain two-cell 👍.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if isProblematicRune(r) {
			return -1
		}
		return r
	}, s)
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	default:
		return false
	}
}

// cell prepares user text for a table cell or text view.
func cell(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}
