package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/todolens/internal/model"
)

// Report modes
const (
	ModeContext = "context"
	ModeAnalyze = "analyze"
	ModeCleanup = "cleanup"
)

// Report converts a context analysis to its serializable form
func (a *ContextAnalysis) Report() *model.Report {
	return &model.Report{
		Subject:        "context",
		GeneratedAt:    time.Now().UTC(),
		Mode:           ModeContext,
		ContextTodos:   a.Todos,
		ValidatedTodos: a.Todos,
		Groups:         a.Groups,
		Summary:        a.Summary,
	}
}

// Report converts a complete analysis to its serializable form
func (a *CompleteAnalysis) Report(subject string) *model.Report {
	return &model.Report{
		Subject:         subject,
		GeneratedAt:     time.Now().UTC(),
		Mode:            ModeAnalyze,
		ContextTodos:    a.ContextTodos,
		CodebaseTodos:   a.CodebaseTodos,
		ValidatedTodos:  a.ValidatedTodos,
		SupersededTodos: a.SupersededTodos,
		Validations:     a.Validations,
		Groups:          a.Groups,
		Summary:         a.Summary,
		Warnings:        a.Warnings,
	}
}

// Report converts a cleanup analysis to its serializable form
func (a *CleanupAnalysis) Report(subject string) *model.Report {
	report := a.CompleteAnalysis.Report(subject)
	report.Mode = ModeCleanup
	plan := a.Cleanup
	report.Cleanup = &plan
	return report
}

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
	out           io.Writer
}

// NewRenderer creates a renderer printing summaries to stdout
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, out: os.Stdout}
}

// RenderReport renders the report to the specified outputs
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}

// RenderJSON writes the report as indented JSON. A path of "-" writes to
// the renderer's output.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return r.write(path, append(data, '\n'))
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return r.write(path, []byte(r.Markdown(report)))
}

func (r *Renderer) write(path string, data []byte) error {
	if path == "-" {
		_, err := r.out.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Markdown renders the report body
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# TODO report: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "Generated %s (%s)\n\n", report.GeneratedAt.Format(time.RFC3339), report.Mode)

	s := report.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Total | High | Medium | Low |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n\n", s.Total, s.HighPriority, s.MediumPriority, s.LowPriority)

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	status := make(map[string]model.ValidationResult, len(report.Validations))
	for _, v := range report.Validations {
		status[v.TodoID] = v
	}

	b.WriteString("## TODOs\n\n")
	if len(report.ValidatedTodos) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		b.WriteString("| Priority | Category | Content | Source | Location | Status |\n|---|---|---|---|---|---|\n")
		for _, t := range report.ValidatedTodos {
			st := "-"
			if v, ok := status[t.ID]; ok {
				st = fmt.Sprintf("%s (%.2f)", v.Status, v.Confidence)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				t.Priority, t.Category, escapeCell(t.Content), t.Source, location(t.Location), st)
		}
		b.WriteString("\n")
	}

	if len(report.SupersededTodos) > 0 {
		b.WriteString("## Already done\n\n")
		for _, t := range report.SupersededTodos {
			fmt.Fprintf(&b, "- %s", t.Content)
			if v, ok := status[t.ID]; ok {
				fmt.Fprintf(&b, " (%s, %.2f)", v.Status, v.Confidence)
				for _, e := range v.Evidence {
					fmt.Fprintf(&b, "\n  - %s", e.Description)
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(report.Groups) > 0 {
		b.WriteString("## Duplicates\n\n")
		for _, g := range report.Groups {
			fmt.Fprintf(&b, "- `%s` (%d members, similarity %.2f)\n", g.NormalizedKey, len(g.Members), g.Similarity)
		}
		b.WriteString("\n")
	}

	if report.Cleanup != nil {
		c := report.Cleanup
		b.WriteString("## Cleanup\n\n")
		if len(c.Recommendations) == 0 {
			b.WriteString("_Nothing to clean up._\n\n")
		}
		for _, rec := range c.Recommendations {
			fmt.Fprintf(&b, "### %s (%s impact, ~%.1f min)\n\n", rec.Action, rec.Impact, rec.EstimatedMinutes)
			fmt.Fprintf(&b, "%s\n\n", rec.Rationale)
			fmt.Fprintf(&b, "Targets: %s\n\n", strings.Join(rec.TargetIDs, ", "))
			if formula, ok := rec.Data["formula"].(string); ok {
				fmt.Fprintf(&b, "Formula: `%s`\n\n", formula)
			}
		}
		fmt.Fprintf(&b, "Safe deletions: %d, reference updates: %d, consolidation opportunities: %d, estimated minutes saved: %d\n\n",
			c.Summary.SafeDeletions, c.Summary.UpdateSuggestions, c.Summary.ConsolidationOpportunities, c.Summary.TotalPotentialReduction)
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by todolens. Verdicts are heuristic; review before deleting anything._\n")
	}

	return b.String()
}

// RenderSummary prints a short summary to the renderer's output
func (r *Renderer) RenderSummary(report *model.Report) {
	s := report.Summary
	fmt.Fprintf(r.out, "\n%s: %d TODOs (%d high, %d medium, %d low)\n",
		report.Subject, s.Total, s.HighPriority, s.MediumPriority, s.LowPriority)

	if report.Mode != ModeContext {
		fmt.Fprintf(r.out, "  context: %d  codebase: %d  already done: %d\n",
			len(report.ContextTodos), len(report.CodebaseTodos), len(report.SupersededTodos))
	}
	if report.Cleanup != nil {
		fmt.Fprintf(r.out, "  cleanup: %d recommendations, ~%d min\n",
			len(report.Cleanup.Recommendations), report.Cleanup.Summary.TotalPotentialReduction)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(r.out, "  ⚠ %s\n", w)
	}
}

func location(loc *model.Location) string {
	if loc == nil {
		return "-"
	}
	if loc.Line > 0 {
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	}
	return loc.File
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
