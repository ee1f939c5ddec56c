// Package markdown chunks markdown (and HTML reduced to markdown headings) by
// section, so each chunk stays within one topic of a knowledge-base page.
package markdown

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sweetpotato0/kgpgpt/rag/chunking"
	"github.com/sweetpotato0/kgpgpt/rag/document"
)

// Chunker splits markdown documents by heading hierarchy using a goldmark AST.
// Sections longer than the character limit go through the fallback chunker.
type Chunker struct {
	maxHeadingLevel int
	maxCharacters   int
	minCharacters   int
	fallback        chunking.Chunker
	parser          goldmark.Markdown
}

var _ chunking.Chunker = (*Chunker)(nil)

// Option customises the markdown chunker.
type Option func(*Chunker)

// WithMaxHeadingLevel caps which heading level starts a new chunk (default 3).
func WithMaxHeadingLevel(level int) Option {
	return func(c *Chunker) {
		if level > 0 {
			c.maxHeadingLevel = level
		}
	}
}

// WithMaxCharacters sets the section length above which the fallback chunker
// takes over.
func WithMaxCharacters(chars int) Option {
	return func(c *Chunker) {
		if chars > 0 {
			c.maxCharacters = chars
		}
	}
}

// WithMinCharacters merges adjoining sections until they reach the provided size.
func WithMinCharacters(chars int) Option {
	return func(c *Chunker) {
		if chars >= 0 {
			c.minCharacters = chars
		}
	}
}

// WithFallbackChunker swaps the chunker used for oversized sections.
func WithFallbackChunker(ch chunking.Chunker) Option {
	return func(c *Chunker) {
		if ch != nil {
			c.fallback = ch
		}
	}
}

// New creates a markdown chunker whose limits match the sliding chunker.
func New(opts ...Option) *Chunker {
	ch := &Chunker{
		maxHeadingLevel: 3,
		maxCharacters:   chunking.DefaultChunkSize,
		minCharacters:   200,
		parser:          goldmark.New(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.fallback == nil {
		ch.fallback = chunking.NewSlidingChunker(chunking.WithChunkSize(ch.maxCharacters))
	}
	return ch
}

// Chunk implements chunking.Chunker.
func (c *Chunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	sections := c.splitSections(doc.Content)
	if len(sections) == 0 {
		return nil, nil
	}

	var chunks []document.Chunk
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta := mergeMetadata(doc.Metadata, sec.metadata)
		if utf8.RuneCountInString(sec.raw) <= c.maxCharacters {
			chunks = append(chunks, document.Chunk{Content: sec.raw, Metadata: meta})
			continue
		}

		splits, err := c.fallback.Chunk(ctx, document.Document{ID: doc.ID, Title: doc.Title, Content: sec.raw})
		if err != nil {
			return nil, err
		}
		for _, split := range splits {
			chunks = append(chunks, document.Chunk{Content: split.Content, Metadata: mergeMetadata(meta, nil)})
		}
	}

	for i := range chunks {
		chunks[i].ID = document.ChunkID(doc.ID, i)
		chunks[i].DocumentID = doc.ID
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks, nil
}

type markdownSection struct {
	raw      string
	level    int
	title    string
	metadata map[string]any
}

type headingInfo struct {
	start int
	level int
	title string
}

func (c *Chunker) splitSections(content string) []markdownSection {
	source := []byte(content)
	root := c.parser.Parser().Parse(text.NewReader(source))

	var headings []headingInfo
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > c.maxHeadingLevel {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		// Lines start after the "#" marker; rewind to the line start.
		start := lines.At(0).Start
		for start > 0 && source[start-1] != '\n' {
			start--
		}
		headings = append(headings, headingInfo{
			start: start,
			level: heading.Level,
			title: strings.TrimSpace(string(lines.Value(source))),
		})
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 {
		raw := strings.TrimSpace(content)
		if raw == "" {
			return nil
		}
		return []markdownSection{{raw: raw}}
	}

	var sections []markdownSection
	if intro := strings.TrimSpace(string(source[:headings[0].start])); intro != "" {
		sections = append(sections, markdownSection{raw: intro})
	}
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		raw := strings.TrimSpace(string(source[h.start:end]))
		if raw == "" {
			continue
		}
		sections = append(sections, markdownSection{
			raw:   raw,
			level: h.level,
			title: h.title,
			metadata: map[string]any{
				"section_title": h.title,
				"section_level": h.level,
			},
		})
	}
	return c.mergeShortSections(sections)
}

func (c *Chunker) mergeShortSections(sections []markdownSection) []markdownSection {
	if c.minCharacters <= 0 || len(sections) == 0 {
		return sections
	}
	merged := make([]markdownSection, 0, len(sections))
	var buffer *markdownSection
	for idx, sec := range sections {
		current := sec
		if buffer != nil {
			current = combineSections(*buffer, sec)
			buffer = nil
		}
		if utf8.RuneCountInString(current.raw) < c.minCharacters && idx < len(sections)-1 {
			tmp := current
			buffer = &tmp
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

// combineSections keeps the first section's title.
func combineSections(a, b markdownSection) markdownSection {
	meta := mergeMetadata(b.metadata, a.metadata)
	return markdownSection{
		raw:      strings.TrimSpace(fmt.Sprintf("%s\n\n%s", a.raw, b.raw)),
		level:    a.level,
		title:    firstNonEmpty(a.title, b.title),
		metadata: meta,
	}
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if base == nil && extra == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
