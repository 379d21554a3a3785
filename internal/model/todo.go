package model

import "strings"

// TodoRecord is a single actionable marker extracted from text or code
type TodoRecord struct {
	ID       string         `json:"id"`                 // Opaque unique id, never reused
	Content  string         `json:"content"`            // Trimmed description, original casing
	Priority Priority       `json:"priority"`           // high, medium, low
	Category string         `json:"category"`           // testing, bug-fix, feature, ...
	Source   string         `json:"source"`             // Provenance, "+"-joined after merge
	Location *Location      `json:"location,omitempty"` // Absent for conversational items
	Metadata map[string]any `json:"metadata,omitempty"` // Source-specific facts
}

// Location points at the place a marker was found
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Priority is the urgency tier of a TODO
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: high > medium > low
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// MaxPriority returns the higher of two priorities
func MaxPriority(a, b Priority) Priority {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Provenance tags for extracted records
const (
	SourceContext             = "context"
	SourceCodebase            = "codebase"
	SourceSemantic            = "semantic"
	SourceMarkdown            = "markdown"
	SourceMarkdownCheckbox    = "markdown-checkbox"
	SourceMarkdownTyped       = "markdown-typed"
	SourceMarkdownTable       = "markdown-table"
	SourceMarkdownFrontmatter = "markdown-frontmatter"
	SourceMarkdownEmoji       = "markdown-emoji"
)

// Categories assigned by the classifier and markdown extractors
const (
	CategoryTesting       = "testing"
	CategoryBugFix        = "bug-fix"
	CategoryFeature       = "feature"
	CategoryRefactoring   = "refactoring"
	CategoryDocumentation = "documentation"
	CategoryGeneral       = "general"
	CategoryBlocked       = "blocked"
	CategoryInProgress    = "in-progress"
)

// Metadata keys with documented downstream meaning
const (
	MetaCompleted  = "completed"   // bool: checkbox/status marks the item done
	MetaMergedFrom = "merged_from" // []string: ids folded into a merged record
	MetaSection    = "section"     // string: nearest markdown heading
	MetaHeuristic  = "heuristic"   // string: which extraction rule matched
	MetaSymbol     = "symbol"      // string: enclosing function of a semantic finding
	MetaLocations  = "locations"   // []Location: where the members of a merged record were found
)

// IsCompleted reports whether the record was marked done at extraction
func (t TodoRecord) IsCompleted() bool {
	done, _ := t.Metadata[MetaCompleted].(bool)
	return done
}

// Locations returns every place the record was found: its own location
// followed by those of the members it was merged from
func (t TodoRecord) Locations() []Location {
	var out []Location
	if t.Location != nil {
		out = append(out, *t.Location)
	}
	if members, ok := t.Metadata[MetaLocations].([]Location); ok {
		for _, loc := range members {
			if t.Location == nil || loc != *t.Location {
				out = append(out, loc)
			}
		}
	}
	return out
}

// Sources splits a possibly merged source field into its parts
func (t TodoRecord) Sources() []string {
	if t.Source == "" {
		return nil
	}
	return strings.Split(t.Source, "+")
}

// HasSource reports whether name is one of the record's sources
func (t TodoRecord) HasSource(name string) bool {
	for _, s := range t.Sources() {
		if s == name {
			return true
		}
	}
	return false
}

// Summary counts records per priority tier
type Summary struct {
	Total          int `json:"total"`
	HighPriority   int `json:"high_priority"`
	MediumPriority int `json:"medium_priority"`
	LowPriority    int `json:"low_priority"`
}

// Summarize computes the priority summary of a record set.
// Records with an unrecognized priority are counted as medium so that
// Total always equals the sum of the tiers.
func Summarize(todos []TodoRecord) Summary {
	var s Summary
	for _, t := range todos {
		switch t.Priority {
		case PriorityHigh:
			s.HighPriority++
		case PriorityLow:
			s.LowPriority++
		default:
			s.MediumPriority++
		}
	}
	s.Total = s.HighPriority + s.MediumPriority + s.LowPriority
	return s
}
