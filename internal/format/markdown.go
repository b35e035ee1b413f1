package format

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const divider = "────────────────────"

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

// Translate rewrites markdown into the channel's markup subset.
// Unsupported constructs degrade deterministically: headers become a bold
// line, lists become dash lines, tables become flattened key/value cards,
// links become "text (url)".
func Translate(input string, p Profile) string {
	source := []byte(input)
	doc := markdown.Parser().Parse(text.NewReader(source))

	t := &translator{source: source, profile: p}
	out := t.renderBlocks(doc)
	return strings.TrimRight(out, "\n ")
}

type translator struct {
	source    []byte
	profile   Profile
	listDepth int
}

func (t *translator) renderBlocks(parent ast.Node) string {
	var sb strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		sb.WriteString(t.renderBlock(n))
	}
	return sb.String()
}

func (t *translator) renderBlock(n ast.Node) string {
	switch b := n.(type) {
	case *ast.Heading:
		content := t.renderInlines(b)
		if t.profile.Allows(MarkupBold) {
			return "*" + content + "*\n\n"
		}
		return content + "\n\n"

	case *ast.Paragraph, *ast.TextBlock:
		return t.renderInlines(n) + "\n\n"

	case *ast.FencedCodeBlock:
		code := t.rawLines(b)
		lang := string(b.Language(t.source))
		return t.renderCode(code, lang)

	case *ast.CodeBlock:
		return t.renderCode(t.rawLines(b), "")

	case *ast.List:
		return t.renderList(b)

	case *ast.Blockquote:
		inner := strings.TrimRight(t.renderBlocks(b), "\n")
		var sb strings.Builder
		for _, line := range strings.Split(inner, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString("> " + line + "\n")
		}
		return sb.String() + "\n"

	case *ast.ThematicBreak:
		return divider + "\n\n"

	case *east.Table:
		return t.renderTable(b)

	case *ast.HTMLBlock:
		return ""

	default:
		if n.HasChildren() {
			return t.renderBlocks(n)
		}
		return ""
	}
}

func (t *translator) renderCode(code, lang string) string {
	code = strings.TrimRight(code, "\n")
	if t.profile.Allows(MarkupCodeFences) {
		if lang != "" {
			return "```" + lang + "\n" + code + "\n```\n\n"
		}
		return "```\n" + code + "\n```\n\n"
	}
	return code + "\n\n"
}

func (t *translator) renderList(list *ast.List) string {
	t.listDepth++
	defer func() { t.listDepth-- }()

	indent := strings.Repeat("  ", t.listDepth-1)
	var sb strings.Builder
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var nested strings.Builder
		var content strings.Builder
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested.WriteString(t.renderList(sub))
				continue
			}
			if content.Len() > 0 {
				content.WriteString(" ")
			}
			content.WriteString(strings.TrimSpace(t.renderInlines(c)))
		}
		sb.WriteString(indent + "- " + content.String() + "\n")
		sb.WriteString(nested.String())
	}

	out := sb.String()
	if t.listDepth == 1 {
		out += "\n"
	}
	return out
}

// renderTable flattens each row into a labeled card. Exact tabular layout
// is not preserved on channels without table support.
func (t *translator) renderTable(table *east.Table) string {
	var headers []string
	var lines []string

	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		switch r := row.(type) {
		case *east.TableHeader:
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				headers = append(headers, strings.TrimSpace(t.renderInlines(cell)))
			}
		case *east.TableRow:
			lines = append(lines, divider)
			i := 0
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				label := "Field"
				if i < len(headers) && headers[i] != "" {
					label = headers[i]
				}
				value := strings.TrimSpace(t.renderInlines(cell))
				if t.profile.Allows(MarkupBold) {
					lines = append(lines, "*"+label+"*: "+value)
				} else {
					lines = append(lines, label+": "+value)
				}
				i++
			}
		}
	}

	if len(lines) == 0 {
		return ""
	}
	lines = append(lines, divider)
	return strings.Join(lines, "\n") + "\n\n"
}

func (t *translator) renderInlines(parent ast.Node) string {
	var sb strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		sb.WriteString(t.renderInline(n))
	}
	return sb.String()
}

func (t *translator) renderInline(n ast.Node) string {
	switch i := n.(type) {
	case *ast.Text:
		out := string(i.Segment.Value(t.source))
		if i.SoftLineBreak() || i.HardLineBreak() {
			out += "\n"
		}
		return out

	case *ast.String:
		return string(i.Value)

	case *ast.Emphasis:
		content := t.renderInlines(i)
		if i.Level == 2 {
			if t.profile.Allows(MarkupBold) {
				return "*" + content + "*"
			}
			return content
		}
		if t.profile.Allows(MarkupItalic) {
			return "_" + content + "_"
		}
		return content

	case *east.Strikethrough:
		content := t.renderInlines(i)
		if t.profile.Allows(MarkupStrikethrough) {
			return "~" + content + "~"
		}
		return content

	case *ast.CodeSpan:
		content := t.renderInlines(i)
		if t.profile.Allows(MarkupMonospace) {
			return "`" + content + "`"
		}
		return content

	case *ast.Link:
		label := t.renderInlines(i)
		url := string(i.Destination)
		if label == url || label == "" {
			return url
		}
		return label + " (" + url + ")"

	case *ast.AutoLink:
		return string(i.URL(t.source))

	case *ast.Image:
		alt := t.renderInlines(i)
		if alt == "" {
			alt = "Image"
		}
		return "[" + alt + "] " + string(i.Destination)

	case *ast.RawHTML:
		return ""

	default:
		if n.HasChildren() {
			return t.renderInlines(n)
		}
		return ""
	}
}

func (t *translator) rawLines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(t.source))
	}
	return sb.String()
}
