// Package digest extracts the natural-language portion of terminal output
// for use in chat notifications.
//
// Raw agent output is mostly noise from a notification's point of view:
// code blocks, diffs, file listings, status chrome, the input prompt. The
// extractor classifies each line, then walks backward from the end of the
// output (most recent = most relevant) collecting only questions, summaries,
// bullets and numbered options, bounded by a character budget.
//
// Input is expected to be ANSI-stripped already (see internal/format); the
// output is never escaped here, that is the sender's job.
package digest

import (
	"regexp"
	"strings"
	"unicode"
)

// LineClass is the semantic category assigned to one line of output.
type LineClass string

const (
	ClassEmpty    LineClass = "empty"    // blank or whitespace-only
	ClassPrompt   LineClass = "prompt"   // the interactive > prompt
	ClassOption   LineClass = "option"   // numbered item: 1. / 1) / #1 / (1)
	ClassBullet   LineClass = "bullet"   // - or * at column 0 or 1
	ClassDiff     LineClass = "diff"     // +line / -line / @@ / diff --git
	ClassFilePath LineClass = "filepath" // src/app.js - Added auth
	ClassCode     LineClass = "code"     // indented line with code signals
	ClassText     LineClass = "text"     // everything else: natural language
)

// IsNatural reports whether the class carries content worth surfacing in a
// notification.
func (c LineClass) IsNatural() bool {
	switch c {
	case ClassText, ClassBullet, ClassOption:
		return true
	default:
		return false
	}
}

// IsNoise reports whether the class both gets dropped and halts the
// backward scan.
func (c LineClass) IsNoise() bool {
	switch c {
	case ClassCode, ClassDiff, ClassFilePath:
		return true
	default:
		return false
	}
}

// Classification patterns. Order of evaluation matters and is fixed in
// Classify; these are compiled once at package init.
var (
	// The agent's input prompt: ">", "> ", "> _".
	promptRe = regexp.MustCompile(`^>\s*[_\s]*$`)

	// Numbered options, optionally behind a selection cursor (ASCII > or
	// the ❯ / › glyphs some CLI menus draw): "1. Token bucket",
	// "#2 Sliding window", "(3) Fixed window", "❯ 1. Yes (Recommended)".
	optionRe = regexp.MustCompile(`^\s*(?:[>\x{276F}\x{203A}]\s*)?(?:\d+[.)]\s+|#\d+\s+|\(\d+\)\s+).+$`)

	// "- text" (dash space) is a bullet; "-text" is diff removal syntax.
	// The space after the marker is the discriminator.
	bulletRe = regexp.MustCompile(`^\s?[-*]\s`)

	// +added / -removed content lines, +++/--- headers, @@ hunks, and the
	// diff --git header line.
	diffRe = regexp.MustCompile(`^[+][^\s]|^-[^\s]|^[+]{2,3}\s|^-{2,3}\s|^@@\s|^diff --git`)

	// A path token with a separator and extension followed by a dash,
	// em-dash, or paren: "src/app.js - Added auth". Plain prose that
	// happens to mention a path does not match.
	filePathRe = regexp.MustCompile(`^\s*\S+/\S+\.\w+\s*[-\x{2014}(]`)

	// Code signals: bracket/paren/brace/semicolon characters, common
	// keywords, or operator tokens.
	codeSignalsRe = regexp.MustCompile(`[{}\[\]();]|\b(import|from|def|class|function|const|let|var|return|if|else|for|while)\b|=>|->|::|&&|\|\|`)
)

// Classify assigns a single class to one line of terminal output.
// It is a pure function of the line's content; first matching rule wins.
//
// Rule order is load-bearing: OPTION must precede BULLET and DIFF because
// a cursor- or number-prefixed line shares their leading characters, and
// BULLET must precede DIFF so "- text" is not read as a removal line.
func Classify(line string) LineClass {
	stripped := strings.TrimRightFunc(line, unicode.IsSpace)

	if stripped == "" {
		return ClassEmpty
	}
	if promptRe.MatchString(stripped) {
		return ClassPrompt
	}
	if optionRe.MatchString(stripped) {
		return ClassOption
	}
	if bulletRe.MatchString(stripped) {
		return ClassBullet
	}
	if diffRe.MatchString(stripped) {
		return ClassDiff
	}
	if filePathRe.MatchString(stripped) {
		return ClassFilePath
	}
	if leadingSpace(stripped) >= 2 && codeSignalsRe.MatchString(stripped) {
		return ClassCode
	}
	return ClassText
}

// leadingSpace counts leading whitespace runes.
func leadingSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}
