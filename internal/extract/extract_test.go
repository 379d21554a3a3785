package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/todolens/internal/model"
)

func findRecord(records []model.TodoRecord, substr string) *model.TodoRecord {
	for i := range records {
		if strings.Contains(strings.ToLower(records[i].Content), strings.ToLower(substr)) {
			return &records[i]
		}
	}
	return nil
}

func TestTextExtractor_MarkersAndIssueLabel(t *testing.T) {
	extractor := NewTextExtractor()

	text := "TODO: Fix auth bug\nFIXME: Optimize database queries\nSecurity issue: validate input properly"
	records := extractor.Extract(Document{Text: text})

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d: %+v", len(records), records)
	}

	validate := findRecord(records, "validate input")
	if validate == nil {
		t.Fatal("Expected a record for the security issue")
	}
	if validate.Priority != model.PriorityHigh {
		t.Errorf("Expected security issue to be high priority, got %s", validate.Priority)
	}

	optimize := findRecord(records, "optimize database")
	if optimize == nil {
		t.Fatal("Expected a record for the FIXME marker")
	}
	if optimize.Priority != model.PriorityMedium {
		t.Errorf("Expected medium priority, got %s", optimize.Priority)
	}
	if optimize.Category != model.CategoryRefactoring {
		t.Errorf("Expected refactoring category, got %s", optimize.Category)
	}

	for _, r := range records {
		if r.Source != model.SourceContext {
			t.Errorf("Expected source %q, got %q", model.SourceContext, r.Source)
		}
		if r.Location != nil {
			t.Errorf("Expected no location for conversational text, got %+v", r.Location)
		}
		if r.ID == "" {
			t.Error("Expected every record to have an id")
		}
	}
}

func TestTextExtractor_SentenceHeuristics(t *testing.T) {
	extractor := NewTextExtractor()

	text := "We looked at the logs. Need to add retry logic for uploads. Then update the changelog."
	records := extractor.Extract(Document{Text: text})

	retry := findRecord(records, "retry logic")
	if retry == nil {
		t.Fatal("Expected action phrase to be captured")
	}
	if strings.HasPrefix(strings.ToLower(retry.Content), "need to") {
		t.Errorf("Expected action phrase prefix to be stripped, got %q", retry.Content)
	}
	if retry.Priority != model.PriorityMedium {
		t.Errorf("Expected 'need' to classify as medium, got %s", retry.Priority)
	}

	if findRecord(records, "update the changelog") == nil {
		t.Error("Expected sequence phrase to be captured")
	}
	if findRecord(records, "looked at the logs") != nil {
		t.Error("Expected plain narration to be ignored")
	}
}

func TestExtract_LengthFilterAndDedupe(t *testing.T) {
	extractor := NewTextExtractor()

	text := "TODO: fix\nTODO: Write docs\nTODO: write docs"
	records := extractor.Extract(Document{Text: text})

	if len(records) != 1 {
		t.Fatalf("Expected 1 record after length filter and dedupe, got %d: %+v", len(records), records)
	}
	if records[0].Content != "Write docs" {
		t.Errorf("Expected first occurrence to win, got %q", records[0].Content)
	}
}

func TestMarkdownExtractor_Checkboxes(t *testing.T) {
	extractor := NewMarkdownExtractor()

	text := "- [ ] Implement user authentication\n- [x] Set up database connection"
	records := extractor.Extract(Document{Text: text})

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d: %+v", len(records), records)
	}

	open, done := records[0], records[1]
	if open.IsCompleted() {
		t.Error("Expected unchecked item not to be completed")
	}
	if !done.IsCompleted() {
		t.Error("Expected checked item to be completed")
	}
	if done.Priority != model.PriorityLow {
		t.Errorf("Expected completed item to be low priority, got %s", done.Priority)
	}
	for _, r := range records {
		if r.Source != model.SourceMarkdownCheckbox {
			t.Errorf("Expected source %q, got %q", model.SourceMarkdownCheckbox, r.Source)
		}
	}
}

func TestMarkdownExtractor_SectionInheritance(t *testing.T) {
	extractor := NewMarkdownExtractor()

	text := "## High Priority\n- [ ] Write the release notes\n\n## Later\n- [ ] Tidy the sidebar"
	records := extractor.Extract(Document{Text: text})

	notes := findRecord(records, "release notes")
	if notes == nil {
		t.Fatal("Expected release notes record")
	}
	if notes.Priority != model.PriorityHigh {
		t.Errorf("Expected section baseline to give high priority, got %s", notes.Priority)
	}
	if notes.Metadata[model.MetaSection] != "High Priority" {
		t.Errorf("Expected section metadata, got %v", notes.Metadata[model.MetaSection])
	}

	sidebar := findRecord(records, "sidebar")
	if sidebar == nil {
		t.Fatal("Expected sidebar record")
	}
	if sidebar.Priority != model.PriorityMedium {
		t.Errorf("Expected default medium priority outside a priority section, got %s", sidebar.Priority)
	}
}

func TestMarkdownExtractor_EmojiAndTyped(t *testing.T) {
	extractor := NewMarkdownExtractor()

	text := "- 🔴 Database migration blocked on approval\n" +
		"- 🚧 Rewriting the importer\n" +
		"- **Bug**: Crash when saving empty file"
	records := extractor.Extract(Document{Text: text})

	blocked := findRecord(records, "migration blocked")
	if blocked == nil {
		t.Fatal("Expected emoji record")
	}
	if blocked.Priority != model.PriorityHigh || blocked.Category != model.CategoryBlocked {
		t.Errorf("Expected high/blocked, got %s/%s", blocked.Priority, blocked.Category)
	}
	if blocked.Source != model.SourceMarkdownEmoji {
		t.Errorf("Expected emoji source, got %s", blocked.Source)
	}

	wip := findRecord(records, "importer")
	if wip == nil {
		t.Fatal("Expected in-progress record")
	}
	if wip.Category != model.CategoryInProgress {
		t.Errorf("Expected in-progress category, got %s", wip.Category)
	}

	crash := findRecord(records, "crash when saving")
	if crash == nil {
		t.Fatal("Expected typed bullet record")
	}
	if crash.Category != model.CategoryBugFix {
		t.Errorf("Expected bug-fix category, got %s", crash.Category)
	}
	if crash.Source != model.SourceMarkdownTyped {
		t.Errorf("Expected typed source, got %s", crash.Source)
	}
	if crash.Metadata["task_type"] != "Bug" {
		t.Errorf("Expected task_type metadata, got %v", crash.Metadata["task_type"])
	}
}

func TestMarkdownExtractor_Table(t *testing.T) {
	extractor := NewMarkdownExtractor()

	text := "| Task | Status | Priority |\n" +
		"|------|--------|----------|\n" +
		"| Add rate limiting | done | high |\n" +
		"| Write integration tests | open | low |\n"
	records := extractor.Extract(Document{Text: text})

	if len(records) != 2 {
		t.Fatalf("Expected 2 table records, got %d: %+v", len(records), records)
	}

	rate := findRecord(records, "rate limiting")
	if rate == nil || !rate.IsCompleted() || rate.Priority != model.PriorityLow {
		t.Errorf("Expected done row to be completed and low, got %+v", rate)
	}

	tests := findRecord(records, "integration tests")
	if tests == nil || tests.Priority != model.PriorityLow || tests.IsCompleted() {
		t.Errorf("Expected open row with low priority column, got %+v", tests)
	}
	if tests != nil && tests.Source != model.SourceMarkdownTable {
		t.Errorf("Expected table source, got %s", tests.Source)
	}
}

func TestMarkdownExtractor_FrontmatterAndFences(t *testing.T) {
	extractor := NewMarkdownExtractor()

	text := "---\n" +
		"title: Notes\n" +
		"todos:\n" +
		"  - Ship the beta build\n" +
		"  - task: Rotate signing keys\n" +
		"    priority: high\n" +
		"    done: true\n" +
		"---\n" +
		"```\n" +
		"TODO: inside a code block\n" +
		"```\n" +
		"TODO: outside the code block\n"
	records := extractor.Extract(Document{Text: text, Path: "NOTES.md"})

	beta := findRecord(records, "beta build")
	if beta == nil {
		t.Fatal("Expected frontmatter string item")
	}
	if beta.Source != model.SourceMarkdownFrontmatter {
		t.Errorf("Expected frontmatter source, got %s", beta.Source)
	}
	if beta.Location == nil || beta.Location.Line != 4 {
		t.Errorf("Expected frontmatter item on line 4, got %+v", beta.Location)
	}

	keys := findRecord(records, "signing keys")
	if keys == nil || !keys.IsCompleted() {
		t.Errorf("Expected done frontmatter task to be completed, got %+v", keys)
	}

	if findRecord(records, "inside a code block") != nil {
		t.Error("Expected fenced code to be skipped")
	}
	outside := findRecord(records, "outside the code block")
	if outside == nil {
		t.Fatal("Expected marker after the fence")
	}
	if outside.Location == nil || outside.Location.Line != 12 {
		t.Errorf("Expected marker on line 12, got %+v", outside.Location)
	}
}

func TestSourceExtractor_Comments(t *testing.T) {
	extractor := NewSourceExtractor()

	code := "package main\n" +
		"\n" +
		"// TODO: handle retries\n" +
		"func main() {\n" +
		"\ts := \"TODO: not a comment\"\n" +
		"\t/* FIXME: close the handle */\n" +
		"}\n"
	records := extractor.Extract(Document{Text: code, Path: "main.go"})

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d: %+v", len(records), records)
	}

	retries := findRecord(records, "handle retries")
	if retries == nil {
		t.Fatal("Expected TODO comment")
	}
	if retries.Location == nil || retries.Location.File != "main.go" || retries.Location.Line != 3 {
		t.Errorf("Expected main.go:3, got %+v", retries.Location)
	}
	if retries.Source != model.SourceCodebase {
		t.Errorf("Expected codebase source, got %s", retries.Source)
	}

	handle := findRecord(records, "close the handle")
	if handle == nil {
		t.Fatal("Expected FIXME block comment")
	}
	if handle.Content != "close the handle" {
		t.Errorf("Expected comment terminator to be trimmed, got %q", handle.Content)
	}
}

func TestHTMLExtractor_Comments(t *testing.T) {
	extractor := NewHTMLExtractor()

	page := "<html>\n<body>\n<!-- TODO: replace placeholder copy -->\n<p>TODO: visible text</p>\n</body></html>"
	records := extractor.Extract(Document{Text: page, Path: "index.html"})

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d: %+v", len(records), records)
	}
	if records[0].Content != "replace placeholder copy" {
		t.Errorf("Unexpected content %q", records[0].Content)
	}
	if records[0].Location == nil || records[0].Location.Line != 3 {
		t.Errorf("Expected line 3, got %+v", records[0].Location)
	}
	if records[0].Metadata["comment"] != "html" {
		t.Errorf("Expected html comment metadata, got %v", records[0].Metadata)
	}
}

func TestRegistry_ForPath(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		path string
		want string
	}{
		{"README.md", "markdown"},
		{"docs/guide.markdown", "markdown"},
		{"web/index.html", "html"},
		{"notes.txt", "text"},
		{"cmd/main.go", "source"},
		{"Makefile", "source"},
	}

	for _, tt := range tests {
		if got := registry.ForPath(tt.path).Name(); got != tt.want {
			t.Errorf("ForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestRegistry_ForKind(t *testing.T) {
	registry := NewRegistry()

	tests := map[Kind]string{
		KindContext:  "text",
		KindSource:   "source",
		KindMarkdown: "markdown",
		KindHTML:     "html",
	}
	for kind, want := range tests {
		if got := registry.ForKind(kind).Name(); got != want {
			t.Errorf("ForKind(%s) = %s, want %s", kind, got, want)
		}
	}
}

func TestRegistry_ExtractFile(t *testing.T) {
	registry := NewRegistry()

	records := registry.ExtractFile(model.SourceCodebase, "pkg/cache.go", "\t// TODO: evict expired entries", 42)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Source != model.SourceCodebase {
		t.Errorf("Expected codebase source, got %s", r.Source)
	}
	if r.Location == nil || r.Location.File != "pkg/cache.go" || r.Location.Line != 42 {
		t.Errorf("Expected location pkg/cache.go:42, got %+v", r.Location)
	}
}

func TestRegistry_ExtractContextWithMarkdown(t *testing.T) {
	registry := NewRegistry()

	text := "## Next steps\n- [ ] Implement user authentication\nNeed to add caching layer"
	records := registry.ExtractContext(text)

	auth := findRecord(records, "user authentication")
	if auth == nil || auth.Source != model.SourceMarkdownCheckbox {
		t.Errorf("Expected checkbox record from markdown pass, got %+v", auth)
	}

	caching := findRecord(records, "caching layer")
	if caching == nil || caching.Source != model.SourceContext {
		t.Errorf("Expected action phrase from text pass, got %+v", caching)
	}
}
