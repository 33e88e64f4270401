package generate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

// sanitizeMessage makes provider text safe to forward: control characters
// are dropped, whitespace runs become one space, and the result is cut to
// at most limit runes including the trailing ellipsis.
func sanitizeMessage(msg string, limit int) string {
	var b strings.Builder
	b.Grow(len(msg))

	pendingSpace := false
	for _, r := range msg {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}

	out := b.String()
	if limit <= 0 || utf8.RuneCountInString(out) <= limit {
		return out
	}

	runes := []rune(out)
	return strings.TrimRight(string(runes[:limit-1]), " ") + ellipsis
}
