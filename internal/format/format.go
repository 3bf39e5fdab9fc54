// Package format handles text hygiene at the relay's two boundaries:
// captured terminal output headed for chat, and chat text headed for the
// terminal as keystrokes.
package format

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ANSI escape sequences: CSI (colors, cursor movement), OSC (terminal
// title, hyperlinks), and any stray ESC-introduced sequence.
var (
	csiRe      = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscRe      = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	strayEscRe = regexp.MustCompile(`\x1b.`)
)

// StripANSI removes terminal escape sequences from captured output so the
// digest extractor and chat transport see plain text.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	s = csiRe.ReplaceAllString(s, "")
	s = oscRe.ReplaceAllString(s, "")
	s = strayEscRe.ReplaceAllString(s, "")
	return s
}

// SanitizeKeystrokes prepares chat text for injection into a terminal.
// Escape sequences and control/format characters are removed (newline and
// tab survive) so a message can't redraw or retitle the pane, and the text
// is NFC-normalized so composed characters arrive in a single form.
func SanitizeKeystrokes(s string) string {
	s = StripANSI(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// other C0 controls and DEL dropped
		case unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r):
			// C1 controls and invisible format runes dropped
		default:
			b.WriteRune(r)
		}
	}
	return norm.NFC.String(b.String())
}

// EscapeHTML escapes text for Telegram's HTML parse mode. Applied exactly
// once, at the send boundary; extraction upstream never escapes.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Pre wraps already-escaped-free raw text as a monospace block, escaping
// its content.
func Pre(s string) string {
	return "<pre>" + html.EscapeString(s) + "</pre>"
}

// Split breaks text into chunks of at most max bytes for transport,
// preferring to split after a newline, then after a space, past the
// halfway point. A hard cut backs up to a rune boundary so multi-byte
// characters are never torn apart.
func Split(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}
	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		if len(remaining) <= max {
			chunks = append(chunks, remaining)
			break
		}
		splitAt := max
		if idx := strings.LastIndex(remaining[:max], "\n"); idx > max/2 {
			splitAt = idx + 1
		} else if idx := strings.LastIndex(remaining[:max], " "); idx > max/2 {
			splitAt = idx + 1
		} else {
			for splitAt > 0 && !utf8.RuneStart(remaining[splitAt]) {
				splitAt--
			}
			// A max smaller than one rune still has to make progress.
			if splitAt == 0 {
				splitAt = max
			}
		}
		chunks = append(chunks, strings.TrimRight(remaining[:splitAt], " \n"))
		remaining = remaining[splitAt:]
	}
	return chunks
}
