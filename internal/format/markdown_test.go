package format

import (
	"strings"
	"testing"
)

func wa() Profile { return WhatsApp(1600) }

func TestTranslateInlineMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold", "This is **important** news", "This is *important* news"},
		{"italic", "This is *emphasized* text", "This is _emphasized_ text"},
		{"strikethrough", "This is ~~removed~~ text", "This is ~removed~ text"},
		{"inline code", "Run `systemctl status` first", "Run `systemctl status` first"},
		{"bold italic nesting", "a ***both*** b", "a _*both*_ b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Translate(tt.input, wa()); got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTranslateHeading(t *testing.T) {
	got := Translate("## Patrol Summary\n\nAll clear.", wa())
	want := "*Patrol Summary*\n\nAll clear."
	if got != want {
		t.Errorf("Translate heading = %q, want %q", got, want)
	}
}

func TestTranslateList(t *testing.T) {
	input := "- Site Alpha\n- Site Beta\n  - North gate\n- Site Gamma"
	got := Translate(input, wa())
	want := "- Site Alpha\n- Site Beta\n  - North gate\n- Site Gamma"
	if got != want {
		t.Errorf("Translate list = %q, want %q", got, want)
	}
}

func TestTranslateOrderedListBecomesDashes(t *testing.T) {
	got := Translate("1. First\n2. Second", wa())
	if !strings.HasPrefix(got, "- First") {
		t.Errorf("Expected dash lines, got %q", got)
	}
}

func TestTranslateLink(t *testing.T) {
	got := Translate("See [the report](https://example.com/r/42) for details", wa())
	want := "See the report (https://example.com/r/42) for details"
	if got != want {
		t.Errorf("Translate link = %q, want %q", got, want)
	}
}

func TestTranslateBareLink(t *testing.T) {
	got := Translate("Open <https://example.com> now", wa())
	want := "Open https://example.com now"
	if got != want {
		t.Errorf("Translate autolink = %q, want %q", got, want)
	}
}

func TestTranslateTableBecomesCards(t *testing.T) {
	input := "| Guard | Shift |\n| --- | --- |\n| Abdi | Night |\n| Joan | Day |"
	got := Translate(input, wa())

	for _, want := range []string{"*Guard*: Abdi", "*Shift*: Night", "*Guard*: Joan", "*Shift*: Day"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected table card line %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "|") {
		t.Errorf("Expected no pipe characters in translated table:\n%s", got)
	}
	if strings.Count(got, divider) != 3 {
		t.Errorf("Expected a divider around each row, got:\n%s", got)
	}
}

func TestTranslateCodeFencePreserved(t *testing.T) {
	input := "Before\n\n```json\n{\"site\": 12}\n```\n\nAfter"
	got := Translate(input, wa())
	if !strings.Contains(got, "```json\n{\"site\": 12}\n```") {
		t.Errorf("Expected fence to survive translation, got:\n%s", got)
	}
}

func TestTranslateBlockquote(t *testing.T) {
	got := Translate("> Stay alert\n> at all times", wa())
	if !strings.HasPrefix(got, "> Stay alert") {
		t.Errorf("Expected quoted lines, got %q", got)
	}
}

func TestTranslateStripsHTML(t *testing.T) {
	got := Translate("Hello <b>there</b> friend", wa())
	if strings.Contains(got, "<b>") || strings.Contains(got, "</b>") {
		t.Errorf("Expected raw HTML to be stripped, got %q", got)
	}
}

func TestTranslateDeterministic(t *testing.T) {
	input := "## Report\n\n| A | B |\n| - | - |\n| 1 | 2 |\n\n- item **one**\n- item _two_"
	first := Translate(input, wa())
	for i := 0; i < 5; i++ {
		if got := Translate(input, wa()); got != first {
			t.Fatalf("Translate is not deterministic: %q vs %q", first, got)
		}
	}
}

func TestFormatPassthroughSkipsTranslation(t *testing.T) {
	input := "## Heading\n\n**bold** and | table | pipes |"
	chunks := Format(input, Web(8000))
	if len(chunks) != 1 || chunks[0] != input {
		t.Errorf("Expected passthrough to keep markdown intact, got %v", chunks)
	}
}

func TestProfileAllows(t *testing.T) {
	p := WhatsApp(1600)
	if !p.Allows(MarkupBold) || !p.Allows(MarkupCodeFences) {
		t.Error("Expected WhatsApp profile to allow bold and fences")
	}
	if p.Allows(MarkupTables) || p.Allows(MarkupHeaders) {
		t.Error("Expected WhatsApp profile to reject tables and headers")
	}
	if !Web(8000).Allows(MarkupTables) {
		t.Error("Expected web profile to allow tables")
	}
}
