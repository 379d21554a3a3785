package pipeline

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/todolens/internal/classify"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/model"
)

// Code search patterns used for discovery
const (
	markerPattern         = `\b(TODO|FIXME|HACK|XXX|BUG|NOTE)\b`
	markdownPattern       = "^\\s*(?:#{1,6}\\s|[-*+]\\s|\\d+[.)]\\s|\\||---\\s*$|```|~~~|[A-Za-z_][\\w-]*:|.*\\b(?:TODO|FIXME|HACK|XXX|BUG|NOTE)\\b)"
	notImplementedPattern = `(?i)not implemented|NotImplementedError|unimplemented!|panic\("TODO`
)

// discoverCodebase greps the snapshot for inline markers. Markdown files are
// left to discoverMarkdown.
func (r *run) discoverCodebase(ctx context.Context, searcher codebase.Searcher, snapshot codebase.SnapshotID) []model.TodoRecord {
	matches, err := r.grep(ctx, searcher, snapshot, markerPattern)
	if err != nil {
		r.warn(err, "codebase TODO discovery failed")
		return nil
	}

	var todos []model.TodoRecord
	for _, m := range matches {
		if m.Line == 0 || isMarkdownFile(m.File) {
			continue
		}
		todos = append(todos, r.pipeline.registry.ExtractFile(model.SourceCodebase, m.File, m.LineText, m.Line)...)
	}
	return todos
}

// discoverMarkdown rebuilds the structural skeleton of every markdown file
// from grep hits and runs the markdown extractor over it. Lines the grep did
// not return stay blank, so record line numbers are the real file lines.
func (r *run) discoverMarkdown(ctx context.Context, searcher codebase.Searcher, snapshot codebase.SnapshotID) []model.TodoRecord {
	matches, err := r.grep(ctx, searcher, snapshot, markdownPattern)
	if err != nil {
		r.warn(err, "markdown TODO discovery failed")
		return nil
	}

	files := make(map[string]map[int]string)
	var order []string
	for _, m := range matches {
		if m.Line == 0 || !isMarkdownFile(m.File) {
			continue
		}
		if _, ok := files[m.File]; !ok {
			files[m.File] = make(map[int]string)
			order = append(order, m.File)
		}
		files[m.File][m.Line] = m.LineText
	}

	var todos []model.TodoRecord
	for _, file := range order {
		todos = append(todos, r.pipeline.registry.ExtractFile("", file, skeleton(files[file]), 1)...)
	}
	return todos
}

// skeleton lays out sparse lines at their 1-based positions
func skeleton(lines map[int]string) string {
	last := 0
	for n := range lines {
		if n > last {
			last = n
		}
	}
	out := make([]string, last)
	for n, text := range lines {
		out[n-1] = text
	}
	return strings.Join(out, "\n")
}

// discoverSemantic finds not-implemented stubs and attributes each to its
// enclosing function
func (r *run) discoverSemantic(ctx context.Context, index codebase.ProjectIndex, project codebase.ProjectID) []model.TodoRecord {
	hits, err := index.Search(ctx, project, notImplementedPattern)
	if err == nil {
		err = codebase.ValidateSymbolMatches(hits)
	}
	if err != nil {
		r.warn(err, "semantic discovery failed")
		return nil
	}

	symbols := make(map[string]*codebase.FileSymbols)
	seen := make(map[string]bool)
	var todos []model.TodoRecord

	for _, hit := range hits {
		syms, ok := symbols[hit.File]
		if !ok {
			syms, err = index.Symbols(ctx, project, hit.File)
			if err == nil {
				err = syms.Validate()
			}
			if err != nil {
				r.pipeline.logger.Debug().Err(err).Str("file", hit.File).Msg("symbol lookup failed")
				syms = nil
			}
			symbols[hit.File] = syms
		}

		content := fmt.Sprintf("Complete implementation in %s", hit.File)
		meta := map[string]any{model.MetaHeuristic: "semantic:not-implemented"}
		if syms != nil {
			if sym, found := syms.Enclosing(hit.Line); found {
				content = fmt.Sprintf("Implement %s", sym.Name)
				meta[model.MetaSymbol] = sym.Name
			}
		}

		key := hit.File + "\x00" + content
		if seen[key] {
			continue
		}
		seen[key] = true

		priority, _ := classify.Priority(content)
		rec := model.TodoRecord{
			ID:       uuid.NewString(),
			Content:  content,
			Priority: priority,
			Category: model.CategoryFeature,
			Source:   model.SourceSemantic,
			Location: &model.Location{File: hit.File, Line: hit.Line, Column: hit.Column},
			Metadata: meta,
		}
		classify.ApplyOverride(&rec)
		todos = append(todos, rec)
	}

	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].Location.File != todos[j].Location.File {
			return todos[i].Location.File < todos[j].Location.File
		}
		return todos[i].Location.Line < todos[j].Location.Line
	})
	return todos
}

// grep runs one validated discovery query
func (r *run) grep(ctx context.Context, searcher codebase.Searcher, snapshot codebase.SnapshotID, pattern string) ([]codebase.Match, error) {
	matches, err := searcher.Grep(ctx, snapshot, pattern, 0)
	if err != nil {
		return nil, err
	}
	if err := codebase.ValidateMatches(matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func isMarkdownFile(file string) bool {
	switch strings.ToLower(path.Ext(file)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
