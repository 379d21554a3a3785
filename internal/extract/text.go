package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/todolens/internal/model"
)

var (
	actionPhraseRe = regexp.MustCompile(`(?i)^(need to|should|must|have to|going to)\s+(.+)$`)
	imperativeRe   = regexp.MustCompile(`(?i)^(implement|add|create|build|fix|update|refactor)\b\s*(.*)$`)
	sequenceRe     = regexp.MustCompile(`(?i)^(next|then|after|later)\b[,:]?\s+(.+)$`)
	issueLabelRe   = regexp.MustCompile(`(?i)^\s*(?:[\w-]+\s+){0,3}(issue|problem|concern)\s*:\s*\S`)
)

// TextExtractor handles conversational and plain text
type TextExtractor struct{}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Name returns the extractor name
func (e *TextExtractor) Name() string {
	return "text"
}

// Extract extracts TODO records from free-form text
func (e *TextExtractor) Extract(doc Document) []model.TodoRecord {
	if doc.Source == "" {
		doc.Source = model.SourceContext
	}
	b := newBuilder(doc)

	for idx, raw := range splitLines(doc.Text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		b.addInline(line, idx, candidate{})

		if issueLabelRe.MatchString(line) {
			b.add(candidate{
				content:   stripBullet(line),
				heuristic: "issue-label",
				line:      idx,
			})
		}

		for _, sentence := range splitSentences(stripBullet(line)) {
			e.extractSentence(b, sentence, idx)
		}
	}

	return b.records
}

// extractSentence applies the sentence-start heuristics
func (e *TextExtractor) extractSentence(b *builder, sentence string, idx int) {
	if m := actionPhraseRe.FindStringSubmatch(sentence); m != nil {
		b.add(candidate{
			content:      m[2],
			classifyText: sentence,
			heuristic:    "action:" + strings.ToLower(m[1]),
			line:         idx,
		})
	}

	if m := imperativeRe.FindStringSubmatch(sentence); m != nil && strings.TrimSpace(m[2]) != "" {
		b.add(candidate{
			content:   sentence,
			heuristic: "imperative:" + strings.ToLower(m[1]),
			line:      idx,
		})
	}

	if m := sequenceRe.FindStringSubmatch(sentence); m != nil {
		b.add(candidate{
			content:      m[2],
			classifyText: sentence,
			heuristic:    "sequence:" + strings.ToLower(m[1]),
			line:         idx,
		})
	}
}
