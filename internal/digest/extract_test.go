package digest

import (
	"fmt"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Extract — main path
// ---------------------------------------------------------------------------

func TestExtractFullExample(t *testing.T) {
	text := "I've made the following changes:\n" +
		"\n" +
		"  src/app.js - Added auth middleware\n" +
		"  src/routes/login.js - New endpoint\n" +
		"\n" +
		"  function authenticate(req, res, next) {\n" +
		"    const token = req.headers.authorization;\n" +
		"    if (!token) return res.status(401);\n" +
		"  }\n" +
		"\n" +
		"All 12 tests pass. The implementation includes:\n" +
		"- JWT token validation\n" +
		"- Session management\n" +
		"\n" +
		"Which approach for the rate limiter?\n" +
		"1. Token bucket\n" +
		"2. Sliding window\n" +
		"3. Fixed window\n" +
		"\n" +
		"> _"
	result := Extract(text, DefaultMaxChars)

	for _, want := range []string{
		"All 12 tests pass",
		"- JWT token validation",
		"- Session management",
		"Which approach for the rate limiter?",
		"1. Token bucket",
		"2. Sliding window",
		"3. Fixed window",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("result missing %q\nresult:\n%s", want, result)
		}
	}
	for _, unwanted := range []string{
		"function authenticate",
		"src/app.js",
		"I've made the following changes:",
		">",
	} {
		if strings.Contains(result, unwanted) {
			t.Errorf("result should not contain %q\nresult:\n%s", unwanted, result)
		}
	}
}

func TestExtractQuestionOnly(t *testing.T) {
	result := Extract("What would you like to do next?\n> _", DefaultMaxChars)
	if !strings.Contains(result, "What would you like to do next?") {
		t.Errorf("missing question, got %q", result)
	}
	if strings.Contains(result, ">") {
		t.Errorf("prompt leaked into result: %q", result)
	}
}

func TestExtractOptionsPreserved(t *testing.T) {
	text := "Choose:\n1. Option A\n2. Option B\n3. Option C\n> "
	result := Extract(text, DefaultMaxChars)
	for _, want := range []string{"1. Option A", "2. Option B", "3. Option C"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in %q", want, result)
		}
	}
}

func TestExtractOptionsWithCursor(t *testing.T) {
	text := "Choose:\n❯ 1. Option A\n  2. Option B\n  3. Option C\n> "
	result := Extract(text, DefaultMaxChars)
	for _, want := range []string{"1. Option A", "2. Option B", "3. Option C"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in %q", want, result)
		}
	}
}

func TestExtractNoiseOmitted(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		unwanted string
	}{
		{
			"code block",
			"  const x = 5;\n  function foo() {\n    return x;\n  }\n\nDoes this look correct?\n> ",
			"Does this look correct?",
			"const x",
		},
		{
			"diff block",
			"+added line\n-removed line\n@@ -1,3 +1,4 @@\n\nShould I apply these changes?\n> ",
			"Should I apply",
			"+added line",
		},
		{
			"file listing",
			"src/app.js - Modified\nsrc/test.js - Added\n\nReady to deploy?\n> ",
			"Ready to deploy?",
			"src/app.js",
		},
		{
			"code above tail",
			"  if (err) {\n    throw err;\n  }\n\nDone. Want to continue?\n> ",
			"Done. Want to continue?",
			"throw err",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Extract(tt.text, DefaultMaxChars)
			if !strings.Contains(result, tt.want) {
				t.Errorf("missing %q in %q", tt.want, result)
			}
			if strings.Contains(result, tt.unwanted) {
				t.Errorf("%q leaked into %q", tt.unwanted, result)
			}
		})
	}
}

func TestExtractIntroAboveBlockOmitted(t *testing.T) {
	text := "I've made the following changes:\n" +
		"src/app.js - Added auth\n" +
		"\n" +
		"All tests pass.\n" +
		"> "
	result := Extract(text, DefaultMaxChars)
	if !strings.Contains(result, "All tests pass") {
		t.Errorf("missing tail text in %q", result)
	}
	if strings.Contains(result, "I've made the following changes") {
		t.Errorf("intro line should not survive without its block: %q", result)
	}
}

func TestExtractDanglingIntroPopped(t *testing.T) {
	// A colon-terminated line directly against the noise block is an
	// introduction to that block and is dropped with it.
	text := "  apply_migrations();\n" +
		"The plan is as follows:\n" +
		"Do A then B then C. Then stop.\n" +
		"> "
	result := Extract(text, DefaultMaxChars)
	if !strings.Contains(result, "Do A then B then C. Then stop.") {
		t.Errorf("missing tail text in %q", result)
	}
	if strings.Contains(result, "The plan is as follows:") {
		t.Errorf("dangling intro should be popped: %q", result)
	}
	if strings.Contains(result, "apply_migrations") {
		t.Errorf("code leaked into %q", result)
	}
}

func TestExtractOrderPreserved(t *testing.T) {
	result := Extract("First line\nSecond line\nThird line\n> ", DefaultMaxChars)
	lines := strings.Split(result, "\n")
	if len(lines) != 3 || lines[0] != "First line" || lines[1] != "Second line" || lines[2] != "Third line" {
		t.Errorf("order not preserved: %q", lines)
	}
}

func TestExtractTrailingChromeStripped(t *testing.T) {
	text := "Some old text\n" +
		"Want to continue?\n" +
		"  ➜  my-repo git:(main) [Opus 4.5] [37%]\n" +
		"  ⏵⏵ accept edits (shift+Tab)\n" +
		"> _"
	result := Extract(text, DefaultMaxChars)
	if !strings.Contains(result, "Want to continue?") {
		t.Errorf("missing question in %q", result)
	}
	if strings.Contains(result, "Opus 4.5") || strings.Contains(result, "accept edits") {
		t.Errorf("status chrome leaked into %q", result)
	}
}

// ---------------------------------------------------------------------------
// Extract — budget
// ---------------------------------------------------------------------------

func TestExtractBudgetRespected(t *testing.T) {
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = fmt.Sprintf("Line %d: some text here", i)
	}
	text := strings.Join(lines, "\n") + "\n> "
	result := Extract(text, 500)
	if len(result) > 500 {
		t.Errorf("result length %d exceeds budget 500", len(result))
	}
	// Recency: the budget keeps the bottom of the text.
	if !strings.Contains(result, "Line 199") {
		t.Errorf("most recent line missing from %q", result)
	}
	if strings.Contains(result, "Line 0:") {
		t.Errorf("oldest line should not fit in budget: %q", result)
	}
}

func TestExtractSingleOversizedLine(t *testing.T) {
	// A single line longer than the budget is returned whole; lines are
	// never split mid-way.
	text := strings.Repeat("A", 1000) + "\n> "
	result := Extract(text, 100)
	if result != strings.Repeat("A", 1000) {
		t.Errorf("oversized line should be returned whole, got %d chars", len(result))
	}
}

func TestExtractOversizedLineAmongOthersNotReturned(t *testing.T) {
	// The whole-line budget exception applies only when that line is the
	// only content; with more lines present, nothing over budget leaks out.
	text := strings.Repeat("A", 1000) + "\n" + strings.Repeat("B", 1000) + "\n> "
	result := Extract(text, 100)
	if result != "" {
		t.Errorf("expected empty result, got %d chars", len(result))
	}
}

// ---------------------------------------------------------------------------
// Extract — fallbacks
// ---------------------------------------------------------------------------

func TestExtractFallbackOnAllCode(t *testing.T) {
	text := "  const a = 1;\n" +
		"  const b = 2;\n" +
		"  function foo() {\n" +
		"    return a + b;\n" +
		"  }\n"
	result := Extract(text, DefaultMaxChars)
	if result == "" {
		t.Error("fallback should return something for all-code input")
	}
}

func TestExtractFallbackRecencyBias(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("  const x%d = %d;", i, i)
	}
	text := strings.Join(lines, "\n")
	result := Extract(text, 200)
	if !strings.Contains(result, "x29") {
		t.Errorf("fallback should keep the last line, got %q", result)
	}
	if strings.Contains(result, "x0 ") || strings.Contains(result, "x0 =") {
		t.Errorf("fallback should drop the first line, got %q", result)
	}
}

func TestExtractLowYieldFallbackKeepsNoise(t *testing.T) {
	// The collected result ("Ok.") is under the yield threshold, so the
	// fallback returns the tail of everything except prompt lines — code
	// included this time.
	text := "  const a = 1;\n  const b = 2;\nOk.\n> "
	result := Extract(text, DefaultMaxChars)
	if !strings.Contains(result, "Ok.") {
		t.Errorf("missing tail text in %q", result)
	}
	if !strings.Contains(result, "const b = 2;") {
		t.Errorf("low-yield fallback should keep code lines, got %q", result)
	}
	if strings.Contains(result, ">") {
		t.Errorf("prompt should never appear in fallback: %q", result)
	}
}

// ---------------------------------------------------------------------------
// Extract — edge cases
// ---------------------------------------------------------------------------

func TestExtractEmptyInput(t *testing.T) {
	if got := Extract("", DefaultMaxChars); got != "" {
		t.Errorf("Extract(\"\") = %q, want \"\"", got)
	}
	if got := Extract("   ", DefaultMaxChars); got != "" {
		t.Errorf("Extract(\"   \") = %q, want \"\"", got)
	}
}

func TestExtractOnlyPromptLine(t *testing.T) {
	// Never panics; whatever comes back is a plain string.
	_ = Extract("> _", DefaultMaxChars)
}

func TestExtractUnicodePreserved(t *testing.T) {
	text := "\U0001f514 Alert fired\n✅ Tests passed\n> "
	result := Extract(text, DefaultMaxChars)
	if !strings.Contains(result, "\U0001f514 Alert fired") {
		t.Errorf("unicode content mangled: %q", result)
	}
	if !strings.Contains(result, "✅ Tests passed") {
		t.Errorf("unicode content mangled: %q", result)
	}
}

func TestExtractNoTrailingNewline(t *testing.T) {
	result := Extract("Simple message\n> ", DefaultMaxChars)
	if strings.HasSuffix(result, "\n") {
		t.Errorf("result should be stripped: %q", result)
	}
}

func TestExtractNoHTMLEscaping(t *testing.T) {
	result := Extract("Use <b>bold</b> & stuff\n> ", DefaultMaxChars)
	if !strings.Contains(result, "<b>") || !strings.Contains(result, "&") {
		t.Errorf("content must pass through unescaped: %q", result)
	}
}

func TestExtractBlankRunsCollapsed(t *testing.T) {
	result := Extract("First\n\n\n\nSecond\n> ", DefaultMaxChars)
	if strings.Contains(result, "\n\n\n") {
		t.Errorf("blank runs should collapse to one: %q", result)
	}
	if !strings.Contains(result, "First") || !strings.Contains(result, "Second") {
		t.Errorf("content lost while collapsing: %q", result)
	}
}

func TestExtractDeterministic(t *testing.T) {
	text := "Summary of the run.\n- one\n- two\n> "
	first := Extract(text, DefaultMaxChars)
	for i := 0; i < 5; i++ {
		if got := Extract(text, DefaultMaxChars); got != first {
			t.Fatalf("run %d differs: %q vs %q", i, got, first)
		}
	}
}
