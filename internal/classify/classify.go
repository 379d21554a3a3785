// Package classify holds the keyword-table heuristics that assign priority
// and category to TODO content. Every pipeline stage uses these functions,
// so extraction, consolidation and validation always agree.
package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/todolens/internal/model"
)

// keywordTable matches any of its terms at a word start, case-insensitively.
// Multi-word terms tolerate any run of whitespace between words.
type keywordTable struct {
	name string
	re   *regexp.Regexp
}

func newTable(name string, terms ...string) keywordTable {
	alts := make([]string, len(terms))
	for i, term := range terms {
		words := strings.Fields(term)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	return keywordTable{
		name: name,
		re:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`),
	}
}

func (k keywordTable) match(text string) bool {
	return k.re.MatchString(text)
}

// Priority tables, checked high -> medium -> low
var (
	highTable   = newTable("high", "urgent", "critical", "important", "asap", "immediately", "must", "required", "blocking")
	mediumTable = newTable("medium", "should", "need", "improvement", "enhance", "optimize", "refactor")
	lowTable    = newTable("low", "nice", "maybe", "consider", "could", "might", "optional", "future")
)

// Override vocabularies
var (
	securityTable = newTable("security",
		"security", "auth", "password", "token", "encrypt", "decrypt",
		"vulnerab", "xss", "sql injection", "csrf", "sanitiz")
	businessTable = newTable("critical-business",
		"payment", "billing", "transaction", "order", "checkout",
		"data loss", "corrupt", "backup", "recover")
	niceToHaveTable = newTable("nice-to-have",
		"nice to have", "optional", "maybe", "consider", "could",
		"ui improvement", "polish", "cosmetic")
)

// Category tests, first match wins
var categoryTables = []struct {
	category string
	table    keywordTable
}{
	{model.CategoryTesting, newTable("testing", "test", "spec")},
	{model.CategoryBugFix, newTable("bug-fix", "bug", "fix")},
	{model.CategoryFeature, newTable("feature", "implement", "add", "create", "build")},
	{model.CategoryRefactoring, newTable("refactoring", "refactor", "optimiz")},
	{model.CategoryDocumentation, newTable("documentation", "doc", "comment")},
}

// Priority returns the base priority for text and whether any keyword table
// matched. Unmatched text defaults to medium.
func Priority(text string) (model.Priority, bool) {
	switch {
	case highTable.match(text):
		return model.PriorityHigh, true
	case mediumTable.match(text):
		return model.PriorityMedium, true
	case lowTable.match(text):
		return model.PriorityLow, true
	}
	return model.PriorityMedium, false
}

// Category returns the topical category for text
func Category(text string) string {
	for _, c := range categoryTables {
		if c.table.match(text) {
			return c.category
		}
	}
	return model.CategoryGeneral
}

// OverrideRule names the rule that decided an override
type OverrideRule string

const (
	RuleNone             OverrideRule = ""
	RuleSecurity         OverrideRule = "security"
	RuleCriticalBusiness OverrideRule = "critical-business"
	RuleCodebaseBugFix   OverrideRule = "codebase-bug-fix"
	RuleNiceToHave       OverrideRule = "nice-to-have"
)

// Override computes the priority a record should have after the override
// table is applied. Precedence: security/critical > bug-fix found in the
// codebase > nice-to-have > original. Completed records keep their priority.
func Override(rec model.TodoRecord) (model.Priority, OverrideRule) {
	if rec.IsCompleted() {
		return rec.Priority, RuleNone
	}

	switch {
	case securityTable.match(rec.Content):
		return model.PriorityHigh, RuleSecurity
	case businessTable.match(rec.Content):
		return model.PriorityHigh, RuleCriticalBusiness
	case rec.Category == model.CategoryBugFix && rec.HasSource(model.SourceCodebase):
		return model.PriorityHigh, RuleCodebaseBugFix
	case niceToHaveTable.match(rec.Content):
		return model.PriorityLow, RuleNiceToHave
	}

	return rec.Priority, RuleNone
}

// ApplyOverride applies Override to rec in place and reports the rule that fired
func ApplyOverride(rec *model.TodoRecord) OverrideRule {
	p, rule := Override(*rec)
	rec.Priority = p
	return rule
}

// RaiseOverride applies Override but only ever raises the priority of rec.
// Used after merging, where the merged priority is a floor.
func RaiseOverride(rec *model.TodoRecord) OverrideRule {
	p, rule := Override(*rec)
	if p.Rank() > rec.Priority.Rank() {
		rec.Priority = p
		return rule
	}
	return RuleNone
}

// Classify fills in priority and category for freshly extracted content
func Classify(text string) (model.Priority, string) {
	p, _ := Priority(text)
	return p, Category(text)
}
