package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/todolens/internal/model"
)

// commentTokens are the comment openers recognized in source lines
var commentTokens = []string{"//", "/*", "<!--", "#", "--", ";"}

// SourceExtractor finds inline markers inside source-code comments
type SourceExtractor struct{}

// NewSourceExtractor creates a new source comment extractor
func NewSourceExtractor() *SourceExtractor {
	return &SourceExtractor{}
}

// Name returns the extractor name
func (e *SourceExtractor) Name() string {
	return "source"
}

// Extract extracts TODO records from comment-bearing lines
func (e *SourceExtractor) Extract(doc Document) []model.TodoRecord {
	if doc.Source == "" {
		doc.Source = model.SourceCodebase
	}
	b := newBuilder(doc)

	for idx, line := range splitLines(doc.Text) {
		comment, ok := commentPart(line)
		if !ok {
			continue
		}
		b.addInline(comment, idx, candidate{})
	}

	return b.records
}

// commentPart returns the portion of line starting at the earliest comment
// opener. Continuation lines of block comments start with "*".
func commentPart(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "*") {
		return trimmed, true
	}

	best := -1
	for _, tok := range commentTokens {
		if i := strings.Index(line, tok); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return line[best:], true
}

// HTMLExtractor finds inline markers inside HTML comments
type HTMLExtractor struct{}

// NewHTMLExtractor creates a new HTML comment extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (e *HTMLExtractor) Name() string {
	return "html"
}

// Extract tokenizes the document and scans every comment token
func (e *HTMLExtractor) Extract(doc Document) []model.TodoRecord {
	if doc.Source == "" {
		doc.Source = model.SourceCodebase
	}
	b := newBuilder(doc)

	z := html.NewTokenizer(strings.NewReader(doc.Text))
	line := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		raw := string(z.Raw())
		if tt == html.CommentToken {
			tok := z.Token()
			for i, commentLine := range splitLines(tok.Data) {
				b.addInline(commentLine, line+i, candidate{metadata: map[string]any{"comment": "html"}})
			}
		}
		line += strings.Count(raw, "\n")
	}

	return b.records
}
