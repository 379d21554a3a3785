package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/codebase/local"
	"github.com/ppiankov/todolens/internal/model"
)

type fakePacker struct {
	err error
}

func (f *fakePacker) Pack(ctx context.Context, root string, opts codebase.PackOptions) (*codebase.PackResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &codebase.PackResult{ID: "snap-1", Root: root}, nil
}

type fakeSearcher struct {
	respond func(ctx context.Context, pattern string) ([]codebase.Match, error)
}

func (f *fakeSearcher) Grep(ctx context.Context, id codebase.SnapshotID, pattern string, contextLines int) ([]codebase.Match, error) {
	return f.respond(ctx, pattern)
}

type fakeIndex struct {
	hits    []codebase.SymbolMatch
	symbols *codebase.FileSymbols
}

func (f *fakeIndex) Register(ctx context.Context, path string) (codebase.ProjectID, error) {
	return "proj-1", nil
}

func (f *fakeIndex) Search(ctx context.Context, id codebase.ProjectID, pattern string) ([]codebase.SymbolMatch, error) {
	return f.hits, nil
}

func (f *fakeIndex) Symbols(ctx context.Context, id codebase.ProjectID, file string) (*codebase.FileSymbols, error) {
	return f.symbols, nil
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Validation.MaxRetries = 0
	return cfg
}

func newTestPipeline(cfg *model.Config, caps codebase.Capabilities) *Pipeline {
	p := NewPipeline(cfg, caps, zerolog.Nop())
	p.renderer.out = &bytes.Buffer{}
	return p
}

func localPipeline(cfg *model.Config) *Pipeline {
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	return newTestPipeline(cfg, local.NewCapabilities(cfg, store))
}

func ids(todos []model.TodoRecord) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func sameIDs(a, b []model.TodoRecord) bool {
	x, y := ids(a), ids(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func findTodo(todos []model.TodoRecord, content string) *model.TodoRecord {
	for i := range todos {
		if strings.Contains(todos[i].Content, content) {
			return &todos[i]
		}
	}
	return nil
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestPipeline_InputErrors(t *testing.T) {
	p := newTestPipeline(testConfig(), codebase.Capabilities{})
	ctx := context.Background()

	if _, err := p.AnalyzeContext(ctx, "  \n"); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext, got %v", err)
	}
	if _, err := p.AnalyzeComplete(ctx, "", "/tmp"); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext, got %v", err)
	}
	if _, err := p.AnalyzeComplete(ctx, "TODO: write tests", ""); !errors.Is(err, ErrMissingProjectPath) {
		t.Errorf("Expected ErrMissingProjectPath, got %v", err)
	}
	if _, err := p.AnalyzeCleanup(ctx, "TODO: write tests", " "); !errors.Is(err, ErrMissingProjectPath) {
		t.Errorf("Expected ErrMissingProjectPath, got %v", err)
	}
}

func TestPipeline_AnalyzeContext(t *testing.T) {
	p := newTestPipeline(testConfig(), codebase.Capabilities{})

	text := "TODO: Write integration tests for the parser\nSecurity issue: validate input properly\nTODO: write integration tests for the parser"
	res, err := p.AnalyzeContext(context.Background(), text)
	if err != nil {
		t.Fatalf("AnalyzeContext failed: %v", err)
	}

	tests := findTodo(res.Todos, "integration tests")
	if tests == nil || tests.Category != model.CategoryTesting {
		t.Errorf("Expected a testing TODO, got %+v", tests)
	}

	sec := findTodo(res.Todos, "Security issue")
	if sec == nil || sec.Priority != model.PriorityHigh {
		t.Errorf("Expected a high priority security TODO, got %+v", sec)
	}

	if res.Summary.Total != len(res.Todos) {
		t.Errorf("Expected summary total %d, got %d", len(res.Todos), res.Summary.Total)
	}
	if res.Summary.Total != res.Summary.HighPriority+res.Summary.MediumPriority+res.Summary.LowPriority {
		t.Errorf("Summary does not add up: %+v", res.Summary)
	}
}

func TestPipeline_InvalidProjectFallsBackToContext(t *testing.T) {
	cfg := testConfig()
	p := localPipeline(cfg)

	res, err := p.AnalyzeComplete(context.Background(), "Need to add caching layer. TODO: fix flaky login test", filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}

	if len(res.ContextTodos) == 0 {
		t.Fatal("Expected context TODOs")
	}
	if res.CodebaseTodos == nil || len(res.CodebaseTodos) != 0 {
		t.Errorf("Expected empty codebase TODOs, got %v", res.CodebaseTodos)
	}
	if !sameIDs(res.ValidatedTodos, res.ContextTodos) {
		t.Errorf("Expected validated TODOs to equal context TODOs, got %v vs %v", ids(res.ValidatedTodos), ids(res.ContextTodos))
	}
	if len(res.Warnings) < 2 {
		t.Errorf("Expected pack and register warnings, got %v", res.Warnings)
	}
	for _, v := range res.Validations {
		if v.Status != model.StatusUnknown {
			t.Errorf("Expected unknown verdicts without a codebase, got %s", v.Status)
		}
	}
}

func TestPipeline_SearchAlwaysFails(t *testing.T) {
	caps := codebase.Capabilities{
		Packer: &fakePacker{},
		Searcher: &fakeSearcher{respond: func(ctx context.Context, pattern string) ([]codebase.Match, error) {
			return nil, codebase.ErrUnavailable
		}},
	}
	p := newTestPipeline(testConfig(), caps)

	res, err := p.AnalyzeComplete(context.Background(), "Call refreshToken after login. TODO: update docs in internal/legacy.go", "/project")
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}

	if len(res.CodebaseTodos) != 0 {
		t.Errorf("Expected no codebase TODOs, got %d", len(res.CodebaseTodos))
	}
	if len(res.ContextTodos) == 0 || !sameIDs(res.ValidatedTodos, res.ContextTodos) {
		t.Errorf("Expected validated TODOs to equal context TODOs, got %v vs %v", ids(res.ValidatedTodos), ids(res.ContextTodos))
	}
	for _, v := range res.Validations {
		if v.Status != model.StatusUnknown {
			t.Errorf("Expected unknown for %s, got %s", v.TodoID, v.Status)
		}
	}
	if len(res.Warnings) == 0 {
		t.Error("Expected discovery warnings")
	}
}

func TestPipeline_PackFailureKeepsSemanticDiscovery(t *testing.T) {
	index := &fakeIndex{
		hits: []codebase.SymbolMatch{{File: "api/handler.go", Line: 5, Column: 2, Text: "not implemented"}},
		symbols: &codebase.FileSymbols{
			File:      "api/handler.go",
			Functions: []codebase.Symbol{{Name: "ServeOrders", Kind: codebase.KindFunction, Line: 3, EndLine: 7}},
		},
	}
	caps := codebase.Capabilities{
		Packer: &fakePacker{err: errors.New("disk on fire")},
		Index:  index,
	}
	p := newTestPipeline(testConfig(), caps)

	res, err := p.AnalyzeComplete(context.Background(), "TODO: write the changelog", "/project")
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}

	if len(res.CodebaseTodos) != 1 {
		t.Fatalf("Expected 1 semantic TODO, got %d", len(res.CodebaseTodos))
	}
	sem := res.CodebaseTodos[0]
	if sem.Content != "Implement ServeOrders" || sem.Source != model.SourceSemantic || sem.Category != model.CategoryFeature {
		t.Errorf("Unexpected semantic TODO: %+v", sem)
	}
	if sem.Location == nil || sem.Location.File != "api/handler.go" || sem.Location.Line != 5 {
		t.Errorf("Expected location api/handler.go:5, got %+v", sem.Location)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "disk on fire") {
		t.Errorf("Expected one packing warning, got %v", res.Warnings)
	}
}

func TestPipeline_SemanticWithoutSymbol(t *testing.T) {
	index := &fakeIndex{
		hits:    []codebase.SymbolMatch{{File: "lib.rs", Line: 1, Column: 1, Text: "unimplemented!"}},
		symbols: &codebase.FileSymbols{File: "lib.rs"},
	}
	p := newTestPipeline(testConfig(), codebase.Capabilities{Index: index})

	res, err := p.AnalyzeComplete(context.Background(), "TODO: write the changelog", "/project")
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}
	if findTodo(res.CodebaseTodos, "Complete implementation in lib.rs") == nil {
		t.Errorf("Expected a file-level semantic TODO, got %+v", res.CodebaseTodos)
	}
}

func TestPipeline_ValidationTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Validation.Timeout = 50 * time.Millisecond
	cfg.Validation.QueryTimeout = 0

	caps := codebase.Capabilities{
		Packer: &fakePacker{},
		Searcher: &fakeSearcher{respond: func(ctx context.Context, pattern string) ([]codebase.Match, error) {
			if pattern == markerPattern || pattern == markdownPattern {
				return nil, nil
			}
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}
	p := newTestPipeline(cfg, caps)

	res, err := p.AnalyzeComplete(context.Background(), "TODO: call refreshToken after login", "/project")
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}

	if res.Validations != nil {
		t.Errorf("Expected no validations after timeout, got %d", len(res.Validations))
	}
	if !sameIDs(res.ValidatedTodos, res.ContextTodos) {
		t.Error("Expected context-only results after timeout")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "timed out") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a timeout warning, got %v", res.Warnings)
	}
}

func sampleProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"users.js":     "function createUser(data) {\n  return { id: 1, ...data };\n}\n",
		"cache.sh":     "#!/bin/sh\n# TODO: add caching layer\necho \"start\"\n",
		"docs/TODO.md": "# Roadmap\n\n## Priority 1\n- [ ] Ship the importer\n- [x] Write release notes\n",
		"service.py":   "class Service:\n    def start(self):\n        raise NotImplementedError\n",
	})
}

func TestPipeline_AnalyzeCompleteEndToEnd(t *testing.T) {
	p := localPipeline(testConfig())

	res, err := p.AnalyzeComplete(context.Background(), "Add user creation functionality. Need to add caching layer.", sampleProject(t))
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}

	// Superseded by createUser, plus the checked box in docs/TODO.md
	if len(res.SupersededTodos) != 2 || res.SupersededTodos[0].Content != "Add user creation functionality" {
		t.Fatalf("Expected the user creation TODO to be superseded, got %+v", res.SupersededTodos)
	}
	if findTodo(res.SupersededTodos, "Write release notes") == nil {
		t.Errorf("Expected the checked release notes item among finished work, got %+v", res.SupersededTodos)
	}
	if findTodo(res.ValidatedTodos, "Write release notes") != nil {
		t.Error("Expected a checked item never to count as live work")
	}

	// Context and codebase copies merge
	caching := findTodo(res.ValidatedTodos, "add caching layer")
	if caching == nil {
		t.Fatal("Expected the caching TODO to stay live")
	}
	if caching.Source != model.SourceContext+"+"+model.SourceCodebase {
		t.Errorf("Expected merged source, got %s", caching.Source)
	}
	if !strings.HasSuffix(caching.ID, "-merged") {
		t.Errorf("Expected merged id, got %s", caching.ID)
	}

	importer := findTodo(res.CodebaseTodos, "Ship the importer")
	if importer == nil {
		t.Fatal("Expected the markdown checkbox from docs/TODO.md")
	}
	if importer.Source != model.SourceMarkdownCheckbox || importer.Priority != model.PriorityHigh {
		t.Errorf("Expected high priority checkbox, got %s/%s", importer.Source, importer.Priority)
	}
	if importer.Location == nil || importer.Location.File != "docs/TODO.md" || importer.Location.Line != 4 {
		t.Errorf("Expected docs/TODO.md:4, got %+v", importer.Location)
	}

	notes := findTodo(res.CodebaseTodos, "Write release notes")
	if notes == nil || !notes.IsCompleted() {
		t.Errorf("Expected a completed checkbox, got %+v", notes)
	}

	semantic := false
	for _, todo := range res.CodebaseTodos {
		if todo.Source == model.SourceSemantic && todo.Location != nil && todo.Location.File == "service.py" {
			semantic = true
		}
	}
	if !semantic {
		t.Errorf("Expected a semantic TODO for service.py, got %+v", res.CodebaseTodos)
	}

	if len(res.Validations) != len(res.ValidatedTodos)+len(res.SupersededTodos) {
		t.Errorf("Expected one verdict per consolidated TODO, got %d", len(res.Validations))
	}
	if res.Summary.Total != len(res.ValidatedTodos) {
		t.Errorf("Expected summary over validated TODOs, got %+v", res.Summary)
	}
}

func TestPipeline_AnalyzeCleanup(t *testing.T) {
	p := localPipeline(testConfig())

	res, err := p.AnalyzeCleanup(context.Background(), "Add user creation functionality", sampleProject(t))
	if err != nil {
		t.Fatalf("AnalyzeCleanup failed: %v", err)
	}

	if len(res.Cleanup.Recommendations) == 0 {
		t.Fatal("Expected recommendations")
	}
	first := res.Cleanup.Recommendations[0]
	if first.Action != model.ActionSafeDeletion || first.Impact != model.ImpactHigh {
		t.Errorf("Expected safe deletion first, got %+v", first)
	}
	if len(first.TargetIDs) != 1 || first.TargetIDs[0] != res.SupersededTodos[0].ID {
		t.Errorf("Expected the superseded TODO as target, got %v", first.TargetIDs)
	}
	if res.Cleanup.Summary.SafeDeletions != 1 {
		t.Errorf("Expected 1 safe deletion, got %d", res.Cleanup.Summary.SafeDeletions)
	}

	report := res.Report("sample")
	if report.Mode != ModeCleanup || report.Cleanup == nil {
		t.Errorf("Expected a cleanup report, got mode %s", report.Mode)
	}
}

func TestProjectAnalyzer(t *testing.T) {
	p := localPipeline(testConfig())
	analyzer := p.ForContext("Add user creation functionality")

	report, err := analyzer.AnalyzeProject(context.Background(), sampleProject(t))
	if err != nil {
		t.Fatalf("AnalyzeProject failed: %v", err)
	}
	if report.Cleanup == nil || findTodo(report.SupersededTodos, "Add user creation functionality") == nil {
		t.Errorf("Expected a cleanup report with the user creation TODO superseded, got %+v", report)
	}

	if _, err := p.ForContext("").AnalyzeProject(context.Background(), "/x"); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext, got %v", err)
	}
}

func TestRenderer(t *testing.T) {
	p := localPipeline(testConfig())
	res, err := p.AnalyzeCleanup(context.Background(), "Add user creation functionality. TODO: fix parser | tokenizer", sampleProject(t))
	if err != nil {
		t.Fatalf("AnalyzeCleanup failed: %v", err)
	}
	report := res.Report("sample")

	md := p.renderer.Markdown(report)
	for _, want := range []string{"# TODO report: sample", "## Summary", "## Already done", "## Cleanup", "safe_deletion", `parser \| tokenizer`, "Generated by todolens"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "report.md")
	if err := p.RenderReport(report, jsonPath, mdPath, false); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Expected JSON report: %v", err)
	}
	if !strings.Contains(string(data), `"superseded_todos"`) || !strings.Contains(string(data), `"safe_deletion"`) {
		t.Errorf("Unexpected JSON report: %s", data)
	}
	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("Expected Markdown report: %v", err)
	}

	summary := p.renderer.out.(*bytes.Buffer).String()
	if !strings.Contains(summary, "sample:") || !strings.Contains(summary, "cleanup:") {
		t.Errorf("Unexpected summary: %q", summary)
	}
}

func TestRenderer_NoFooter(t *testing.T) {
	r := NewRenderer(false)
	ctxRes := &ContextAnalysis{Summary: model.Summary{}}
	md := r.Markdown(ctxRes.Report())
	if strings.Contains(md, "Generated by todolens") {
		t.Error("Expected no footer")
	}
	if !strings.Contains(md, "_None._") {
		t.Error("Expected empty TODO marker")
	}
}

func TestPipeline_OwnMarkerCommentIsNotImplementation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"auth.go":   "package auth\n\nfunc Login() { // TODO: Implement authentication handler\n}\n",
		"client.go": "package client\n\n// TODO: add retry logic\nvar x = 1\n",
	})
	p := localPipeline(testConfig())

	res, err := p.AnalyzeCleanup(context.Background(), "Implement authentication handler\nTODO: add retry logic", root)
	if err != nil {
		t.Fatalf("AnalyzeCleanup failed: %v", err)
	}

	if len(res.SupersededTodos) != 0 {
		t.Errorf("Expected no TODO superseded by its own comment, got %+v", res.SupersededTodos)
	}
	for _, v := range res.Validations {
		if v.Status == model.StatusSuperseded || v.Status == model.StatusCompleted {
			t.Errorf("Expected %s to stay live, got %s (%+v)", v.TodoID, v.Status, v.Evidence)
		}
	}
	for _, rec := range res.Cleanup.Recommendations {
		if rec.Action == model.ActionSafeDeletion {
			t.Errorf("Expected no safe deletion, got %+v", rec)
		}
	}

	auth := findTodo(res.ValidatedTodos, "authentication handler")
	if auth == nil || auth.Source != model.SourceContext+"+"+model.SourceCodebase {
		t.Errorf("Expected the context and code copies to merge, got %+v", auth)
	}
}

func TestPipeline_CrossSourceClusterFormsOneGroup(t *testing.T) {
	root := writeProject(t, map[string]string{
		"client.go": "package client\n\n// TODO: add retry logic\nfunc Do() {}\n",
	})
	p := localPipeline(testConfig())

	res, err := p.AnalyzeCleanup(context.Background(), "TODO: add retry logic\nTODO: retry logic add", root)
	if err != nil {
		t.Fatalf("AnalyzeCleanup failed: %v", err)
	}

	if len(res.Groups) != 1 {
		t.Fatalf("Expected one duplicate group, got %+v", res.Groups)
	}
	group := res.Groups[0]
	if len(group.Members) != 3 {
		t.Errorf("Expected 3 members across both sources, got %d", len(group.Members))
	}

	var consolidation *model.CleanupRecommendation
	for i := range res.Cleanup.Recommendations {
		if res.Cleanup.Recommendations[i].Action == model.ActionConsolidation {
			consolidation = &res.Cleanup.Recommendations[i]
		}
	}
	if consolidation == nil {
		t.Fatalf("Expected a consolidation recommendation, got %+v", res.Cleanup.Recommendations)
	}
	if len(consolidation.TargetIDs) != 2 {
		t.Errorf("Expected the two non-primary members as targets, got %v", consolidation.TargetIDs)
	}

	// The context-only view agrees with the merged one on record ids
	if len(res.ContextTodos) != 1 || len(res.ValidatedTodos) != 1 || res.ContextTodos[0].ID != res.ValidatedTodos[0].ID {
		t.Errorf("Expected one record with a stable id, got %v vs %v", ids(res.ContextTodos), ids(res.ValidatedTodos))
	}
}

func TestPipeline_CheckedItemsAreNotLiveWork(t *testing.T) {
	p := localPipeline(testConfig())
	root := writeProject(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})

	res, err := p.AnalyzeComplete(context.Background(), "- [ ] Implement user authentication\n- [x] Set up database connection", root)
	if err != nil {
		t.Fatalf("AnalyzeComplete failed: %v", err)
	}

	if findTodo(res.ValidatedTodos, "database connection") != nil {
		t.Errorf("Expected the checked item outside live work, got %v", ids(res.ValidatedTodos))
	}
	done := findTodo(res.SupersededTodos, "database connection")
	if done == nil {
		t.Fatalf("Expected the checked item among finished work, got %+v", res.SupersededTodos)
	}
	for _, v := range res.Validations {
		if v.TodoID == done.ID && v.Status != model.StatusCompleted {
			t.Errorf("Expected completed, got %s", v.Status)
		}
	}
	if res.Summary.Total != len(res.ValidatedTodos) {
		t.Errorf("Expected the summary to count live work only, got %+v", res.Summary)
	}
}
