package digest

import "strings"

// DefaultMaxChars is the default extraction budget. It keeps push
// notifications to a couple of phone screens at most.
const DefaultMaxChars = 500

// minYield is the threshold below which an extraction result is considered
// too thin to be useful and the bottom-anchored fallback kicks in.
const minYield = 10

type classifiedLine struct {
	line  string
	class LineClass
}

// Extract returns the natural-language context from formatted terminal
// output: questions, summaries, bullets and numbered options, working
// backward from the end of the text. Code blocks, diffs, file paths,
// terminal chrome and prompt lines are omitted.
//
// The result is at most maxChars long, except when the only content
// available to the fallback is a single line longer than the budget; whole
// lines are never split. Returns "" for empty or whitespace-only input.
// Extract never fails: degraded input degrades the output, not the call.
func Extract(text string, maxChars int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	classified := make([]classifiedLine, len(lines))
	for i, line := range lines {
		classified[i] = classifiedLine{line, Classify(line)}
	}

	// Strip the trailing prompt and blank padding below it.
	remaining := classified
	for len(remaining) > 0 {
		c := remaining[len(remaining)-1].class
		if c != ClassPrompt && c != ClassEmpty {
			break
		}
		remaining = remaining[:len(remaining)-1]
	}

	// Strip trailing terminal chrome. Status bars and key-hint lines sit
	// at the bottom of the pane and usually contain brackets or parens,
	// so they classify as code; left in place they would either survive
	// into the result or falsely stop the backward scan.
	for len(remaining) > 0 {
		c := remaining[len(remaining)-1].class
		if !c.IsNoise() && c != ClassEmpty {
			break
		}
		remaining = remaining[:len(remaining)-1]
	}

	if len(remaining) == 0 {
		// Nothing but prompt and noise. Return as much of the end of the
		// raw text as fits; the most recent lines are the relevant ones.
		trimmed := strings.TrimSpace(text)
		if len(trimmed) <= maxChars {
			return trimmed
		}
		return tailLines(lines, maxChars)
	}

	// Walk backward collecting natural-language lines under the budget.
	// Blank lines are kept (uncounted) as separators between blocks, but
	// only once something has been collected so the final result never
	// opens with padding. A code/diff/filepath line stops the scan: the
	// content above it belongs to a different, older exchange.
	var collected []string
	total := 0
	hitNoise := false
scan:
	for i := len(remaining) - 1; i >= 0; i-- {
		cl := remaining[i]
		switch {
		case cl.class.IsNoise():
			hitNoise = true
			break scan
		case cl.class == ClassEmpty:
			if len(collected) > 0 {
				collected = append(collected, cl.line)
			}
		case cl.class.IsNatural():
			n := len(cl.line) + 1 // +1 for the newline
			if total+n > maxChars {
				break scan
			}
			collected = append(collected, cl.line)
			total += n
		}
		// Prompt lines were trimmed above; skip if one slips through.
	}

	// A line like "I've made the following changes:" directly above a
	// code block introduces that block; without its referent it reads as
	// a dangling sentence, so drop it.
	if hitNoise && len(collected) > 0 {
		last := strings.TrimSpace(collected[len(collected)-1])
		if strings.HasSuffix(last, ":") {
			collected = collected[:len(collected)-1]
		}
	}

	// Restore original top-to-bottom order.
	reverse(collected)

	// Trim blank edges, then collapse runs of blank lines to one.
	collected = trimBlankEdges(collected)
	collapsed := collected[:0]
	prevBlank := false
	for _, line := range collected {
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		collapsed = append(collapsed, line)
		prevBlank = blank
	}

	result := strings.TrimSpace(strings.Join(collapsed, "\n"))

	// Too little extracted to be worth sending; fall back to the tail of
	// everything except prompt lines (code and diffs included this time).
	if len(result) < minYield {
		fallback := make([]string, 0, len(classified))
		for _, cl := range classified {
			if cl.class != ClassPrompt {
				fallback = append(fallback, cl.line)
			}
		}
		return tailLines(fallback, maxChars)
	}

	return result
}

// tailLines accumulates whole lines from the end of lines until the next
// line would exceed maxChars (each line costs len+1 for its newline), then
// returns them in original order. Lines are never split mid-way: an
// over-budget line is returned whole only when it is the sole content,
// otherwise nothing is kept.
func tailLines(lines []string, maxChars int) string {
	var kept []string
	total := 0
	for i := len(lines) - 1; i >= 0; i-- {
		n := len(lines[i]) + 1
		if total+n > maxChars {
			break
		}
		kept = append(kept, lines[i])
		total += n
	}
	if len(kept) == 0 {
		var only string
		count := 0
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				only = line
				count++
			}
		}
		if count == 1 {
			return strings.TrimSpace(only)
		}
		return ""
	}
	reverse(kept)
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func trimBlankEdges(s []string) []string {
	for len(s) > 0 && strings.TrimSpace(s[0]) == "" {
		s = s[1:]
	}
	for len(s) > 0 && strings.TrimSpace(s[len(s)-1]) == "" {
		s = s[:len(s)-1]
	}
	return s
}
