package catalog

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultPageSize is the number of characters per reader page
const DefaultPageSize = 3000

// MaxPageSize leaves room for the reader header within a Telegram message
const MaxPageSize = 3800

var markdown = goldmark.New()

// Document is a parsed article ready for the reader
type Document struct {
	Title string
	Pages []string
}

// ParseDocument extracts the title of source and splits it into pages of
// at most pageSize characters. Pages break between top-level blocks; a
// block larger than a page is cut at line breaks, or mid-line when a single
// line does not fit.
func ParseDocument(source string, pageSize int) Document {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	return Document{
		Title: title(doc, src),
		Pages: paginate(src, blockStarts(doc, src), pageSize),
	}
}

// title returns the text of the first heading
func title(doc ast.Node, src []byte) string {
	var heading ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if _, ok := n.(*ast.Heading); ok && entering {
			heading = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if heading == nil {
		return ""
	}
	return strings.TrimSpace(inlineText(heading, src))
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// blockStarts returns the byte offset at which each top-level block begins
func blockStarts(doc ast.Node, src []byte) []int {
	var starts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if start, ok := blockStart(n, src); ok {
			starts = append(starts, start)
		}
	}
	return starts
}

func blockStart(n ast.Node, src []byte) (int, bool) {
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		// the fence line itself carries no segment
		if fenced.Info != nil {
			return lineStart(src, fenced.Info.Segment.Start), true
		}
		if fenced.Lines().Len() > 0 {
			return previousLineStart(src, lineStart(src, fenced.Lines().At(0).Start)), true
		}
		return 0, false
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return lineStart(src, n.Lines().At(0).Start), true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		if start, ok := blockStart(c, src); ok {
			return start, true
		}
	}
	return 0, false
}

func lineStart(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.LastIndexByte(src[:offset], '\n') + 1
}

func previousLineStart(src []byte, start int) int {
	if start == 0 {
		return 0
	}
	return lineStart(src, start-1)
}

func paginate(src []byte, starts []int, pageSize int) []string {
	var blocks []string
	prev := 0
	for _, s := range starts {
		if s <= prev {
			continue
		}
		blocks = append(blocks, string(src[prev:s]))
		prev = s
	}
	blocks = append(blocks, string(src[prev:]))

	var pages []string
	var current strings.Builder
	flush := func() {
		if page := strings.TrimSpace(current.String()); page != "" {
			pages = append(pages, page)
		}
		current.Reset()
	}
	for _, block := range blocks {
		for _, b := range splitBlock(block, pageSize) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(b) > pageSize {
				flush()
			}
			current.WriteString(b)
		}
	}
	flush()

	if len(pages) == 0 {
		pages = []string{""}
	}
	return pages
}

func splitBlock(block string, pageSize int) []string {
	if utf8.RuneCountInString(strings.TrimSpace(block)) <= pageSize {
		return []string{block}
	}

	var parts []string
	runes := []rune(block)
	for len(runes) > pageSize {
		cut := pageSize
		for i := pageSize - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(parts, string(runes))
}
