// Package extract turns raw text into TodoRecords. Extraction never fails:
// lines that do not parse are skipped.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/ppiankov/todolens/internal/classify"
	"github.com/ppiankov/todolens/internal/model"
)

// minContentLength is the exclusive lower bound on trimmed content length
const minContentLength = 3

// newID assigns record ids (replaceable in tests)
var newID = uuid.NewString

// Document is a unit of text handed to an extractor
type Document struct {
	Text      string
	Source    string // Provenance tag for produced records
	Path      string // Empty for conversational context
	StartLine int    // Line number of the first line of Text (default 1)
}

// inlineMarkerRe matches upper-case markers anywhere
var inlineMarkerRe = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX|BUG|NOTE)\b(?:\([^)]*\))?\s*[:\-]?\s*(.*)`)

// inlineMarkerLooseRe matches lower/mixed-case markers followed by a colon
var inlineMarkerLooseRe = regexp.MustCompile(`(?i)\b(todo|fixme|hack)(?:\([^)]*\))?\s*:\s*(.*)`)

// inlineMarkers returns captured text for every inline marker on the line
func inlineMarkers(line string) []inlineMatch {
	var out []inlineMatch
	for _, m := range inlineMarkerRe.FindAllStringSubmatch(line, -1) {
		out = append(out, inlineMatch{marker: m[1], text: m[2]})
	}
	if len(out) == 0 {
		if m := inlineMarkerLooseRe.FindStringSubmatch(line); m != nil {
			out = append(out, inlineMatch{marker: strings.ToUpper(m[1]), text: m[2]})
		}
	}
	return out
}

type inlineMatch struct {
	marker string
	text   string
}

// candidate is a captured TODO before classification
type candidate struct {
	content      string
	classifyText string // Text used for base priority (defaults to content)
	source       string // Overrides the document source when set
	heuristic    string
	line         int // 0-based index into the document lines
	column       int

	priority  model.Priority // Forced priority (emoji, completed)
	baseline  model.Priority // Inherited section priority, used when no keyword matched
	category  string         // Forced category
	fallback  string         // Category used when the classifier returns general
	completed bool
	metadata  map[string]any
}

// builder accumulates records for one extraction pass
type builder struct {
	doc     Document
	seen    map[string]bool
	records []model.TodoRecord
}

func newBuilder(doc Document) *builder {
	if doc.StartLine <= 0 {
		doc.StartLine = 1
	}
	return &builder{doc: doc, seen: make(map[string]bool)}
}

// add classifies and stores a candidate, enforcing the length filter and
// the shallow in-pass deduplication
func (b *builder) add(c candidate) {
	content := cleanContent(c.content)
	if len([]rune(content)) <= minContentLength {
		return
	}

	key := strings.ToLower(content)
	if b.seen[key] {
		return
	}
	b.seen[key] = true

	classifyText := c.classifyText
	if classifyText == "" {
		classifyText = content
	}

	priority, matched := classify.Priority(classifyText)
	if !matched && c.baseline != "" {
		priority = c.baseline
	}
	if c.priority != "" {
		priority = c.priority
	}

	category := c.category
	if category == "" {
		category = classify.Category(content)
		if category == model.CategoryGeneral && c.fallback != "" {
			category = c.fallback
		}
	}

	metadata := make(map[string]any, len(c.metadata)+2)
	for k, v := range c.metadata {
		metadata[k] = v
	}
	if c.heuristic != "" {
		metadata[model.MetaHeuristic] = c.heuristic
	}
	if c.completed {
		metadata[model.MetaCompleted] = true
		priority = model.PriorityLow
	}

	source := c.source
	if source == "" {
		source = b.doc.Source
	}

	rec := model.TodoRecord{
		ID:       newID(),
		Content:  content,
		Priority: priority,
		Category: category,
		Source:   source,
		Metadata: metadata,
	}
	if b.doc.Path != "" {
		rec.Location = &model.Location{
			File:   b.doc.Path,
			Line:   b.doc.StartLine + c.line,
			Column: c.column,
		}
	}

	classify.ApplyOverride(&rec)
	b.records = append(b.records, rec)
}

// addInline runs the inline marker family over a line
func (b *builder) addInline(line string, idx int, base candidate) {
	for _, m := range inlineMarkers(line) {
		c := base
		c.content = m.text
		c.heuristic = "marker:" + strings.ToLower(m.marker)
		c.line = idx
		if col := strings.Index(line, m.marker); col >= 0 {
			c.column = col + 1
		}
		b.add(c)
	}
}

// cleanContent trims whitespace, comment terminators and surrounding punctuation
func cleanContent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "*/")
	s = strings.TrimSuffix(s, "-->")
	return strings.TrimFunc(s, func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case ':', '-', '*', '_', '`', '"', '\'', '.', ',', ';', '#', '/', '>', '|':
			return true
		}
		return false
	})
}

// splitLines splits text on any newline convention
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// splitSentences splits a line into sentences on terminal punctuation
// followed by whitespace
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// bulletPrefixRe strips list bullets and numbering from the start of a line
var bulletPrefixRe = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)

func stripBullet(s string) string {
	return bulletPrefixRe.ReplaceAllString(s, "")
}
