package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/todolens/internal/classify"
	"github.com/ppiankov/todolens/internal/model"
)

var (
	headingRe     = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.+?)\s*#*\s*$`)
	checkboxRe    = regexp.MustCompile(`^(\s*)[-*+]\s+\[([ xX])\]\s+(.+)$`)
	typedBulletRe = regexp.MustCompile(`^\s*[-*+]\s+\*\*([^*]+?)\*\*\s*[:\-–]?\s*(.+)$`)
	tableSepRe    = regexp.MustCompile(`^:?-{3,}:?$`)
	fenceRe       = regexp.MustCompile("^\\s*(```|~~~)")

	sectionHighRe = regexp.MustCompile(`(?i)\b(priority\s*1|p0|p1|high\s+priority|critical|urgent)\b`)
	sectionMedRe  = regexp.MustCompile(`(?i)\b(priority\s*2|p2|medium\s+priority)\b`)
	sectionLowRe  = regexp.MustCompile(`(?i)\b(priority\s*3|p3|low\s+priority|nice\s+to\s+have|backlog|someday)\b`)
)

// statusEmoji maps a line-leading status emoji to priority/category
type statusEmoji struct {
	symbol    string
	priority  model.Priority
	category  string
	completed bool
}

// statusEmojis is ordered so that longer sequences are tried first
var statusEmojis = []statusEmoji{
	{symbol: "⚠️", priority: model.PriorityHigh},
	{symbol: "⚠", priority: model.PriorityHigh},
	{symbol: "🔴", priority: model.PriorityHigh, category: model.CategoryBlocked},
	{symbol: "🛑", priority: model.PriorityHigh, category: model.CategoryBlocked},
	{symbol: "🟠", priority: model.PriorityHigh},
	{symbol: "🟡", priority: model.PriorityMedium, category: model.CategoryInProgress},
	{symbol: "🚧", priority: model.PriorityMedium, category: model.CategoryInProgress},
	{symbol: "🟢", priority: model.PriorityLow},
	{symbol: "✅", priority: model.PriorityLow, completed: true},
}

// typedCategories maps bold bullet prefixes to categories
var typedCategories = map[string]string{
	"bug":           model.CategoryBugFix,
	"bugfix":        model.CategoryBugFix,
	"bug fix":       model.CategoryBugFix,
	"fix":           model.CategoryBugFix,
	"feature":       model.CategoryFeature,
	"enhancement":   model.CategoryFeature,
	"test":          model.CategoryTesting,
	"tests":         model.CategoryTesting,
	"testing":       model.CategoryTesting,
	"doc":           model.CategoryDocumentation,
	"docs":          model.CategoryDocumentation,
	"documentation": model.CategoryDocumentation,
	"refactor":      model.CategoryRefactoring,
	"refactoring":   model.CategoryRefactoring,
	"cleanup":       model.CategoryRefactoring,
}

// MarkdownExtractor handles markdown documents
type MarkdownExtractor struct{}

// NewMarkdownExtractor creates a new markdown extractor
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{}
}

// Name returns the extractor name
func (e *MarkdownExtractor) Name() string {
	return "markdown"
}

// section is the heading context inherited by the lines below it
type section struct {
	title    string
	priority model.Priority
	category string
}

// base returns a candidate carrying the section's inherited context
func (s section) base() candidate {
	c := candidate{baseline: s.priority, fallback: s.category}
	if s.title != "" {
		c.metadata = map[string]any{model.MetaSection: s.title}
	}
	return c
}

// table tracks the column layout of the markdown table being read
type table struct {
	active    bool
	descCol   int
	statusCol int
	prioCol   int
}

// Extract extracts TODO records from a markdown document
func (e *MarkdownExtractor) Extract(doc Document) []model.TodoRecord {
	if doc.Source == "" {
		doc.Source = model.SourceMarkdown
	}
	b := newBuilder(doc)
	lines := splitLines(doc.Text)

	fm, consumed := splitFrontmatter(lines)
	for _, task := range parseFrontmatterTasks(fm) {
		c := candidate{
			content:   task.Text,
			source:    model.SourceMarkdownFrontmatter,
			heuristic: "frontmatter:" + task.Key,
			line:      task.LineIndex,
			completed: task.Done,
		}
		if p := parsePriorityWord(task.Priority); p != "" {
			c.priority = p
		}
		b.add(c)
	}

	var (
		sec     section
		tbl     table
		inFence bool
	)

	for idx := consumed; idx < len(lines); idx++ {
		line := lines[idx]

		if fenceRe.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence || strings.TrimSpace(line) == "" {
			tbl = table{}
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			sec = headingSection(m[2])
			tbl = table{}
			b.addInline(line, idx, sec.base())
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			e.tableRow(b, &tbl, sec, line, idx)
		} else {
			tbl = table{}
			e.listItem(b, sec, line, idx)
		}

		b.addInline(line, idx, sec.base())
	}

	return b.records
}

// listItem handles checkbox, typed bullet and status-emoji lines
func (e *MarkdownExtractor) listItem(b *builder, sec section, line string, idx int) {
	if m := checkboxRe.FindStringSubmatch(line); m != nil {
		c := sec.base()
		c.content = m[3]
		c.source = model.SourceMarkdownCheckbox
		c.heuristic = "checkbox"
		c.line = idx
		c.completed = strings.EqualFold(m[2], "x")
		c.metadata = withMeta(c.metadata, "indent", indentDepth(m[1]))
		b.add(c)
		return
	}

	if m := typedBulletRe.FindStringSubmatch(line); m != nil {
		taskType := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ":"))
		c := sec.base()
		c.content = m[2]
		c.classifyText = taskType + " " + m[2]
		c.source = model.SourceMarkdownTyped
		c.heuristic = "typed:" + strings.ToLower(taskType)
		c.line = idx
		c.category = typedCategories[strings.ToLower(taskType)]
		c.metadata = withMeta(c.metadata, "task_type", taskType)
		b.add(c)
		return
	}

	item := strings.TrimSpace(stripBullet(line))
	for _, emoji := range statusEmojis {
		if !strings.HasPrefix(item, emoji.symbol) {
			continue
		}
		c := sec.base()
		c.content = strings.TrimPrefix(item, emoji.symbol)
		c.source = model.SourceMarkdownEmoji
		c.heuristic = "emoji"
		c.line = idx
		c.priority = emoji.priority
		c.category = emoji.category
		c.completed = emoji.completed
		c.metadata = withMeta(c.metadata, "emoji", emoji.symbol)
		b.add(c)
		return
	}
}

// tableRow handles header, separator and data rows of a markdown table
func (e *MarkdownExtractor) tableRow(b *builder, tbl *table, sec section, line string, idx int) {
	cells := tableCells(line)

	if !tbl.active {
		*tbl = table{active: true, descCol: -1, statusCol: -1, prioCol: -1}
		for i, cell := range cells {
			lower := strings.ToLower(cell)
			switch {
			case tbl.descCol < 0 && containsAny(lower, "description", "task", "todo", "item", "title"):
				tbl.descCol = i
			case tbl.statusCol < 0 && containsAny(lower, "status", "done", "state"):
				tbl.statusCol = i
			case tbl.prioCol < 0 && strings.Contains(lower, "priority"):
				tbl.prioCol = i
			}
		}
		return
	}

	if isSeparatorRow(cells) || tbl.descCol < 0 || tbl.descCol >= len(cells) {
		return
	}

	c := sec.base()
	c.content = cells[tbl.descCol]
	c.source = model.SourceMarkdownTable
	c.heuristic = "table"
	c.line = idx
	if tbl.statusCol >= 0 && tbl.statusCol < len(cells) {
		c.completed = isDoneStatus(cells[tbl.statusCol])
	}
	if tbl.prioCol >= 0 && tbl.prioCol < len(cells) {
		c.priority = parsePriorityWord(cells[tbl.prioCol])
	}
	b.add(c)
}

// headingSection derives the inherited context from a heading
func headingSection(title string) section {
	sec := section{title: strings.TrimSpace(title)}

	switch {
	case sectionHighRe.MatchString(title) || strings.Contains(title, "🔴"):
		sec.priority = model.PriorityHigh
	case sectionMedRe.MatchString(title) || strings.Contains(title, "🟡"):
		sec.priority = model.PriorityMedium
	case sectionLowRe.MatchString(title) || strings.Contains(title, "🟢"):
		sec.priority = model.PriorityLow
	}

	if cat := classify.Category(title); cat != model.CategoryGeneral {
		sec.category = cat
	}
	return sec
}

// parsePriorityWord maps a free-form priority value to a tier
func parsePriorityWord(s string) model.Priority {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case containsAny(s, "high", "critical", "urgent", "p0", "p1", "🔴"):
		return model.PriorityHigh
	case containsAny(s, "medium", "normal", "p2", "🟡"):
		return model.PriorityMedium
	case containsAny(s, "low", "p3", "minor", "🟢"):
		return model.PriorityLow
	}
	return ""
}

func tableCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if !tableSepRe.MatchString(cell) {
			return false
		}
	}
	return len(cells) > 0
}

func indentDepth(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += 2
		} else {
			n++
		}
	}
	return n / 2
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// withMeta returns a copy of m with key set
func withMeta(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}
