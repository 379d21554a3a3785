// Package codebase defines the capability contracts the pipeline uses to
// look at a project: packing it into a searchable snapshot, grepping that
// snapshot, and querying a symbol index. Every response type validates
// itself so malformed answers are rejected at the boundary.
package codebase

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSnapshotNotFound is returned when a snapshot id is unknown or expired
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrProjectNotFound is returned when a project id was never registered
	ErrProjectNotFound = errors.New("project not found")

	// ErrMalformedResponse is returned when a capability answers with data
	// that fails validation
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnavailable marks transient failures worth retrying
	ErrUnavailable = errors.New("capability unavailable")
)

// SnapshotID identifies a packed codebase
type SnapshotID string

// ProjectID identifies a registered project in the symbol index
type ProjectID string

// PackOptions controls how a codebase is packed
type PackOptions struct {
	Compress       bool
	Include        []string
	Exclude        []string
	TopFilesLength int
}

// FileStat is one entry of the largest-files listing
type FileStat struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// PackResult describes a packed snapshot
type PackResult struct {
	ID         SnapshotID `json:"id"`
	Root       string     `json:"root"`
	TotalFiles int        `json:"total_files"`
	TotalBytes int        `json:"total_bytes"`
	TopFiles   []FileStat `json:"top_files,omitempty"`
}

// Validate checks a pack result for required fields
func (r *PackResult) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty pack result", ErrMalformedResponse)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: pack result without snapshot id", ErrMalformedResponse)
	}
	if r.TotalFiles < 0 || r.TotalBytes < 0 {
		return fmt.Errorf("%w: negative pack totals", ErrMalformedResponse)
	}
	return nil
}

// Match is one grep hit inside a snapshot. Line 0 means the path itself
// matched (a file header rather than file content).
type Match struct {
	File        string   `json:"file"`
	Line        int      `json:"line"`
	MatchedText string   `json:"matched_text"`
	LineText    string   `json:"line_text"`
	Context     []string `json:"context,omitempty"`
}

// Validate checks a match for required fields
func (m Match) Validate() error {
	switch {
	case m.File == "":
		return fmt.Errorf("%w: match without file", ErrMalformedResponse)
	case m.Line < 0:
		return fmt.Errorf("%w: match %s has negative line %d", ErrMalformedResponse, m.File, m.Line)
	case m.MatchedText == "":
		return fmt.Errorf("%w: match %s:%d without matched text", ErrMalformedResponse, m.File, m.Line)
	}
	return nil
}

// SymbolMatch is one hit from the project index
type SymbolMatch struct {
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Column  int      `json:"column"`
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"`
}

// Validate checks a symbol match for required fields
func (m SymbolMatch) Validate() error {
	switch {
	case m.File == "":
		return fmt.Errorf("%w: symbol match without file", ErrMalformedResponse)
	case m.Line < 1:
		return fmt.Errorf("%w: symbol match %s has invalid line %d", ErrMalformedResponse, m.File, m.Line)
	case m.Column < 0:
		return fmt.Errorf("%w: symbol match %s has negative column", ErrMalformedResponse, m.File)
	}
	return nil
}

// Symbol kinds reported by the index
const (
	KindFunction = "function"
	KindMethod   = "method"
	KindClass    = "class"
)

// Symbol is a named definition spanning a line range
type Symbol struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	EndLine int    `json:"end_line"`
}

// Contains reports whether line falls inside the symbol's range
func (s Symbol) Contains(line int) bool {
	return line >= s.Line && line <= s.EndLine
}

// FileSymbols lists the definitions of one file
type FileSymbols struct {
	File      string   `json:"file"`
	Functions []Symbol `json:"functions"`
	Classes   []Symbol `json:"classes"`
}

// Validate checks every symbol for a name and a sane range
func (f *FileSymbols) Validate() error {
	if f == nil || f.File == "" {
		return fmt.Errorf("%w: symbols without file", ErrMalformedResponse)
	}
	for _, group := range [][]Symbol{f.Functions, f.Classes} {
		for _, s := range group {
			if s.Name == "" || s.Line < 1 || s.EndLine < s.Line {
				return fmt.Errorf("%w: invalid symbol %q in %s", ErrMalformedResponse, s.Name, f.File)
			}
		}
	}
	return nil
}

// Enclosing returns the innermost function, or failing that the innermost
// class, whose range contains line
func (f *FileSymbols) Enclosing(line int) (Symbol, bool) {
	if f == nil {
		return Symbol{}, false
	}
	for _, group := range [][]Symbol{f.Functions, f.Classes} {
		var best Symbol
		found := false
		for _, s := range group {
			if !s.Contains(line) {
				continue
			}
			if !found || s.EndLine-s.Line < best.EndLine-best.Line {
				best = s
				found = true
			}
		}
		if found {
			return best, true
		}
	}
	return Symbol{}, false
}

// Packer packs a project directory into a searchable snapshot
type Packer interface {
	Pack(ctx context.Context, root string, opts PackOptions) (*PackResult, error)
}

// Searcher greps a packed snapshot
type Searcher interface {
	Grep(ctx context.Context, id SnapshotID, pattern string, contextLines int) ([]Match, error)
}

// ProjectIndex answers structural queries about a registered project
type ProjectIndex interface {
	Register(ctx context.Context, path string) (ProjectID, error)
	Search(ctx context.Context, id ProjectID, pattern string) ([]SymbolMatch, error)
	Symbols(ctx context.Context, id ProjectID, file string) (*FileSymbols, error)
}

// Capabilities bundles the external services one pipeline run may use.
// Any field may be nil; the pipeline degrades accordingly.
type Capabilities struct {
	Packer   Packer
	Searcher Searcher
	Index    ProjectIndex
}

// ValidateMatches rejects a grep response if any match is malformed
func ValidateMatches(matches []Match) error {
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSymbolMatches rejects a search response if any match is malformed
func ValidateSymbolMatches(matches []SymbolMatch) error {
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}
