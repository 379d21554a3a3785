package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/todolens/internal/model"
)

// Extractor defines the interface for format-specific extractors
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks if this extractor understands the given file path
	CanHandle(path string) bool

	// Extract extracts TODO records from the document. It never fails;
	// unparseable input yields fewer records.
	Extract(doc Document) []model.TodoRecord
}

// CanHandle reports whether path is a markdown file
func (e *MarkdownExtractor) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

// CanHandle reports whether path is an HTML-like template
func (e *HTMLExtractor) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml", ".vue", ".svelte":
		return true
	}
	return false
}

// CanHandle accepts any path; source comments are the generic fallback
func (e *SourceExtractor) CanHandle(path string) bool {
	return true
}

// CanHandle reports whether path is a plain text note
func (e *TextExtractor) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".txt"
}

// Kind is a declared document kind, used when no file path is known
type Kind string

const (
	KindContext  Kind = "context"
	KindSource   Kind = "source"
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

// Registry manages extractors
type Registry struct {
	extractors []Extractor
	generic    Extractor
	text       *TextExtractor
	markdown   *MarkdownExtractor
	html       *HTMLExtractor
}

// NewRegistry creates a new extractor registry
func NewRegistry() *Registry {
	registry := &Registry{
		extractors: make([]Extractor, 0),
		text:       NewTextExtractor(),
		markdown:   NewMarkdownExtractor(),
		html:       NewHTMLExtractor(),
	}

	// Register built-in extractors
	registry.Register(registry.markdown)
	registry.Register(registry.html)
	registry.Register(registry.text)

	// Source comments are the fallback for everything else
	registry.generic = NewSourceExtractor()

	return registry
}

// Register registers a new extractor
func (r *Registry) Register(extractor Extractor) {
	r.extractors = append(r.extractors, extractor)
}

// ForPath finds the best extractor for the given file path
func (r *Registry) ForPath(path string) Extractor {
	for _, extractor := range r.extractors {
		if extractor.CanHandle(path) {
			return extractor
		}
	}
	return r.generic
}

// ForKind returns the extractor for a declared kind
func (r *Registry) ForKind(kind Kind) Extractor {
	switch kind {
	case KindContext:
		return r.text
	case KindMarkdown:
		return r.markdown
	case KindHTML:
		return r.html
	default:
		return r.generic
	}
}

// ExtractFile runs the extractor selected by path over one file's content.
// startLine is the real line number of the first line of content.
func (r *Registry) ExtractFile(source, path, content string, startLine int) []model.TodoRecord {
	return r.ForPath(path).Extract(Document{
		Text:      content,
		Source:    source,
		Path:      path,
		StartLine: startLine,
	})
}

// markdownHintRe detects markdown structure inside conversational text
var markdownHintRe = regexp.MustCompile(`(?m)^\s*(?:#{1,6}\s|[-*+]\s+\[[ xX]\]|\|.*\|)`)

// ExtractContext extracts records from conversational text. When the text
// carries markdown structure the markdown extractor runs as well, and the
// overlapping records are left for the consolidator to merge.
func (r *Registry) ExtractContext(text string) []model.TodoRecord {
	records := r.text.Extract(Document{Text: text, Source: model.SourceContext})
	if markdownHintRe.MatchString(text) || strings.HasPrefix(strings.TrimSpace(text), "---") {
		records = append(records, r.markdown.Extract(Document{Text: text})...)
	}
	return records
}
