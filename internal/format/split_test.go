package format

import (
	"strings"
	"testing"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := split("All clear on site Alpha.", 1600)
	if len(chunks) != 1 || chunks[0] != "All clear on site Alpha." {
		t.Errorf("Expected single untouched chunk, got %v", chunks)
	}
}

func TestSplitEmpty(t *testing.T) {
	if chunks := split("", 1600); chunks != nil {
		t.Errorf("Expected nil for empty input, got %v", chunks)
	}
}

func TestSplitLongReportRespectsLimit(t *testing.T) {
	para := strings.Repeat("The guard completed the patrol on schedule. ", 20)
	table := "*Guard*: Abdi\n*Shift*: Night\n*Score*: 97"
	text := strings.Join([]string{para, table, para, para, para}, "\n\n")
	if runeLen(text) < 3500 {
		t.Fatalf("Test input too short: %d runes", runeLen(text))
	}

	chunks := split(text, 1600)
	if len(chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 1600 {
			t.Errorf("Chunk %d exceeds limit: %d runes", i, runeLen(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("Chunk %d is empty", i)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	a := strings.Repeat("a", 900)
	b := strings.Repeat("b", 900)
	chunks := split(a+"\n\n"+b, 1600)
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != a || chunks[1] != b {
		t.Error("Expected the split to land on the paragraph boundary")
	}
}

func TestSplitSentenceFallback(t *testing.T) {
	sentence := "The patrol passed checkpoint nine without incident. "
	text := strings.TrimSpace(strings.Repeat(sentence, 80))

	chunks := split(text, 1600)
	for i, chunk := range chunks {
		if runeLen(chunk) > 1600 {
			t.Errorf("Chunk %d exceeds limit: %d runes", i, runeLen(chunk))
		}
	}
	// Reassembled text keeps every sentence.
	joined := strings.Join(chunks, " ")
	if strings.Count(joined, "checkpoint nine") != 80 {
		t.Errorf("Expected all 80 sentences to survive, found %d", strings.Count(joined, "checkpoint nine"))
	}
}

func TestSplitRuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語のテキストです。", 400)
	chunks := split(text, 100)
	for i, chunk := range chunks {
		if runeLen(chunk) > 100 {
			t.Errorf("Chunk %d exceeds limit: %d runes", i, runeLen(chunk))
		}
		if !strings.HasPrefix(chunk, "日") && !strings.HasPrefix(chunk, "本") &&
			!strings.HasPrefix(chunk, "語") && !strings.HasPrefix(chunk, "の") &&
			!strings.HasPrefix(chunk, "テ") && !strings.HasPrefix(chunk, "キ") &&
			!strings.HasPrefix(chunk, "ス") && !strings.HasPrefix(chunk, "ト") &&
			!strings.HasPrefix(chunk, "で") && !strings.HasPrefix(chunk, "す") &&
			!strings.HasPrefix(chunk, "。") {
			t.Errorf("Chunk %d starts with a torn character: %q", i, chunk[:1])
		}
	}
}

func TestSplitFenceStaysAtomic(t *testing.T) {
	fence := "```\nline one\nline two\n```"
	text := strings.Repeat("Filler sentence here. ", 90) + "\n\n" + fence

	chunks := split(text, 1600)
	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, "line one") {
			if !strings.Contains(chunk, "line two") {
				t.Error("Expected the fence to stay in one chunk")
			}
			found = true
		}
	}
	if !found {
		t.Fatal("Fence content missing from output")
	}
}

func TestSplitOversizedFenceTruncated(t *testing.T) {
	body := strings.Repeat("x", 3000)
	text := "```log\n" + body + "\n```"

	chunks := split(text, 1600)
	if len(chunks) != 1 {
		t.Fatalf("Expected a single truncated chunk, got %d", len(chunks))
	}
	chunk := chunks[0]
	if runeLen(chunk) > 1600 {
		t.Errorf("Truncated fence exceeds limit: %d runes", runeLen(chunk))
	}
	if !strings.Contains(chunk, truncatedMarker) {
		t.Error("Expected a visible truncation marker")
	}
	if !strings.HasPrefix(chunk, "```log\n") {
		t.Errorf("Expected the fence head to be preserved, got %q", chunk[:12])
	}
	if !strings.HasSuffix(chunk, "```") {
		t.Error("Expected the fence to be closed")
	}
}

func TestSplitBalancesMarkupAcrossChunks(t *testing.T) {
	// A bold span spanning the cut point gets closed and reopened.
	text := "*" + strings.Repeat("important update ", 200) + "*"

	chunks := split(text, 1600)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		stripped := strings.ReplaceAll(chunk, "```", "")
		for _, marker := range []string{"*", "_", "~", "`"} {
			if strings.Count(stripped, marker)%2 == 1 {
				t.Errorf("Chunk %d has unbalanced %q", i, marker)
			}
		}
	}
}

func TestSplitRepairedChunksStayWithinLimit(t *testing.T) {
	// Inline fence markers and stray unpaired markers force the repair
	// pass to close and reopen spans across several chunks; the result
	// must still respect the limit.
	text := strings.Repeat("a", 80) + " x ``` * _" + "\n\n" + strings.Repeat("b", 92)

	chunks := split(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 100 {
			t.Errorf("Chunk %d exceeds limit: %d runes", i, runeLen(chunk))
		}
	}
}

func TestSplitFenceLongOpeningLineTruncated(t *testing.T) {
	text := "```" + strings.Repeat("x", 300) + "\nbody\n```"

	chunks := split(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("Expected a single chunk, got %d", len(chunks))
	}
	chunk := chunks[0]
	if runeLen(chunk) > 100 {
		t.Errorf("Chunk exceeds limit: %d runes", runeLen(chunk))
	}
	if !strings.HasPrefix(chunk, "```x") {
		t.Errorf("Expected a truncated fence head, got %q", chunk[:8])
	}
	if !strings.Contains(chunk, truncatedMarker) {
		t.Error("Expected a visible truncation marker")
	}
	if !strings.HasSuffix(chunk, "```") {
		t.Error("Expected the fence to be closed")
	}
}

func TestSplitBalancesFenceAcrossChunks(t *testing.T) {
	chunks := []string{"before ```go\ncode", "more code"}
	repaired := repairBalance(chunks)
	if strings.Count(repaired[0], "```")%2 != 0 {
		t.Errorf("First chunk fence not closed: %q", repaired[0])
	}
	if !strings.HasPrefix(repaired[1], "```") {
		t.Errorf("Second chunk fence not reopened: %q", repaired[1])
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Patrol summary for the week. ", 120) + "\n\n```\ndata\n```"
	first := split(text, 1600)
	for i := 0; i < 5; i++ {
		again := split(text, 1600)
		if len(again) != len(first) {
			t.Fatalf("Chunk count changed between runs: %d vs %d", len(first), len(again))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("Chunk %d changed between runs", j)
			}
		}
	}
}

func TestFormatWhatsAppEndToEnd(t *testing.T) {
	input := "## Weekly Report\n\n" +
		strings.Repeat("The site recorded **no incidents** this period. ", 60) +
		"\n\n| Site | Score |\n| --- | --- |\n| Alpha | 97 |\n| Beta | 88 |"

	chunks := Format(input, WhatsApp(1600))
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	joined := strings.Join(chunks, "\n")
	if !strings.Contains(joined, "*Weekly Report*") {
		t.Error("Expected the heading to be bolded")
	}
	if !strings.Contains(joined, "*Site*: Alpha") {
		t.Error("Expected the table to be flattened into cards")
	}
	if strings.Contains(joined, "##") || strings.Contains(joined, "**") {
		t.Error("Expected no raw markdown syntax in WhatsApp output")
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 1600 {
			t.Errorf("Chunk %d exceeds limit: %d runes", i, runeLen(chunk))
		}
	}
}
