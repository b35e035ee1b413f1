package format

import (
	"regexp"
	"strings"
)

const truncatedMarker = "(truncated)"

// repairReserve is held back from the chunk budget so the balance-repair
// pass can never overflow a chunk. Worst case a chunk gains a fence
// reopen plus four marker reopens carried over from the previous chunk
// (8 runes) and a fence close plus four markers for its own open spans
// (8 runes).
const repairReserve = 16

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// split breaks text into chunks of at most limit runes, preferring
// paragraph boundaries, then lines, then sentences, then words, with a
// rune-level cut as last resort. Fenced code blocks are atomic units:
// one that cannot fit is truncated in place with a visible marker.
func split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if runeLen(text) <= limit {
		return []string{text}
	}

	budget := limit
	if budget > 2*repairReserve {
		budget -= repairReserve
	}

	c := &chunker{limit: budget}
	blocks := segment(text)
	for i, b := range blocks {
		sep := ""
		if i < len(blocks)-1 {
			sep = "\n\n"
		}
		if b.fence {
			c.addFence(b.text, sep)
			continue
		}
		c.addParagraph(b.text + sep)
	}
	c.flush()

	return repairBalance(c.chunks)
}

type block struct {
	text  string
	fence bool
}

// segment splits text into paragraphs and atomic fenced code blocks.
func segment(text string) []block {
	var blocks []block
	var para []string
	var fence []string
	inFence := false

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{text: strings.Join(para, "\n")})
			para = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if inFence {
			fence = append(fence, line)
			if strings.HasPrefix(trimmed, "```") {
				blocks = append(blocks, block{text: strings.Join(fence, "\n"), fence: true})
				fence = nil
				inFence = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			flushPara()
			fence = append(fence, line)
			inFence = true
			continue
		}
		if trimmed == "" {
			flushPara()
			continue
		}
		para = append(para, line)
	}
	if inFence {
		// Unterminated fence: treat what we have as the block.
		blocks = append(blocks, block{text: strings.Join(fence, "\n"), fence: true})
	}
	flushPara()
	return blocks
}

type chunker struct {
	limit   int
	chunks  []string
	current string
}

func (c *chunker) flush() {
	if trimmed := strings.TrimSpace(c.current); trimmed != "" {
		c.chunks = append(c.chunks, trimmed)
	}
	c.current = ""
}

// add appends piece to the current chunk, flushing first when it would
// overflow. Returns false when the piece alone exceeds the limit.
func (c *chunker) add(piece string) bool {
	if runeLen(piece) > c.limit {
		return false
	}
	if c.current != "" && runeLen(c.current)+runeLen(piece) > c.limit {
		c.flush()
	}
	c.current += piece
	return true
}

func (c *chunker) addParagraph(para string) {
	if c.add(para) {
		return
	}
	lines := strings.Split(para, "\n")
	for i, line := range lines {
		piece := line
		if i < len(lines)-1 {
			piece += "\n"
		}
		if c.add(piece) {
			continue
		}
		for _, sentence := range splitSentences(piece) {
			if c.add(sentence) {
				continue
			}
			c.addWords(sentence)
		}
	}
}

func (c *chunker) addWords(text string) {
	words := strings.Split(text, " ")
	for i, word := range words {
		piece := word
		if i < len(words)-1 {
			piece += " "
		}
		if c.add(piece) {
			continue
		}
		c.addRunes(piece)
	}
}

// addRunes is the last resort: cut on rune boundaries so a multi-byte
// character is never torn apart.
func (c *chunker) addRunes(text string) {
	runes := []rune(text)
	for start := 0; start < len(runes); start += c.limit {
		end := start + c.limit
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if c.current != "" && runeLen(c.current)+runeLen(piece) > c.limit {
			c.flush()
		}
		c.current += piece
	}
}

// addFence emits a fenced code block as a single chunk unit, truncating
// its body when the block alone exceeds the limit.
func (c *chunker) addFence(fence, sep string) {
	if c.add(fence + sep) {
		return
	}

	lines := strings.Split(fence, "\n")
	tail := "\n" + truncatedMarker + "\n```"
	open := lines[0]
	if maxOpen := c.limit - runeLen(tail) - 1; runeLen(open) > maxOpen {
		// An overlong info string on the opening line is cut too, keeping
		// at least the fence marker itself.
		if maxOpen < 3 {
			maxOpen = 3
		}
		open = string([]rune(open)[:maxOpen])
	}
	head := open + "\n"
	room := c.limit - runeLen(head) - runeLen(tail)
	if room < 0 {
		room = 0
	}

	body := strings.Join(lines[1:], "\n")
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = strings.TrimRight(body[:idx], "\n")
	}
	bodyRunes := []rune(body)
	if len(bodyRunes) > room {
		bodyRunes = bodyRunes[:room]
	}

	c.flush()
	c.chunks = append(c.chunks, head+string(bodyRunes)+tail)
}

// splitSentences cuts text at sentence boundaries, keeping the
// terminating punctuation and whitespace attached.
func splitSentences(text string) []string {
	bounds := sentenceEnd.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}
	var parts []string
	prev := 0
	for _, b := range bounds {
		parts = append(parts, text[prev:b[1]])
		prev = b[1]
	}
	if prev < len(text) {
		parts = append(parts, text[prev:])
	}
	return parts
}

// repairBalance closes any markup span left open at a chunk boundary and
// reopens it at the start of the next chunk, so every chunk is valid on
// its own.
func repairBalance(chunks []string) []string {
	for i := range chunks {
		if strings.Count(chunks[i], "```")%2 == 1 {
			chunks[i] += "\n```"
			if i+1 < len(chunks) {
				chunks[i+1] = "```\n" + chunks[i+1]
			}
		}
		stripped := strings.ReplaceAll(chunks[i], "```", "")
		for _, marker := range []string{"*", "_", "~", "`"} {
			if strings.Count(stripped, marker)%2 == 1 {
				chunks[i] += marker
				if i+1 < len(chunks) {
					chunks[i+1] = marker + chunks[i+1]
				}
				stripped += marker
			}
		}
	}
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}
