package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/todolens/internal/model"
)

// Analyzer defines the interface for analyzing one project
type Analyzer interface {
	AnalyzeProject(ctx context.Context, project string) (*model.Report, error)
}

// ProjectJob represents a project analysis job
type ProjectJob struct {
	Index    int
	Project  string
	Analyzer Analyzer
}

// Execute executes the analysis job
func (j *ProjectJob) Execute(ctx context.Context) *ProjectResult {
	report, err := j.Analyzer.AnalyzeProject(ctx, j.Project)
	if err != nil {
		return &ProjectResult{Index: j.Index, Project: j.Project, Error: err}
	}
	return &ProjectResult{Index: j.Index, Project: j.Project, Report: report}
}

// ProjectResult represents the result of a project analysis job
type ProjectResult struct {
	Index   int
	Project string
	Report  *model.Report
	Error   error
}

// BatchProcessor analyzes multiple projects concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessProjects analyzes projects concurrently. Results follow input order;
// projects never started because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessProjects(ctx context.Context, projects []string) []*ProjectResult {
	if len(projects) == 0 {
		return []*ProjectResult{}
	}

	jobs := make([]*ProjectJob, len(projects))
	for i, project := range projects {
		jobs[i] = &ProjectJob{
			Index:    i,
			Project:  project,
			Analyzer: b.analyzer,
		}
	}

	ordered := NewPool(ctx, b.concurrency).Run(jobs)
	for i, r := range ordered {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("analysis of %s did not run", projects[i])
			}
			ordered[i] = &ProjectResult{Index: i, Project: projects[i], Error: err}
		}
	}

	return ordered
}

// ProcessFile reads project paths from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ProjectResult, error) {
	projects, err := ReadProjectsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}

	return b.ProcessProjects(ctx, projects), nil
}

// ReadProjectsFromFile reads project paths from a file (one per line).
// Relative paths are resolved against the file's directory.
func ReadProjectsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var projects []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		line = filepath.Clean(line)

		// Deduplicate projects
		if !seen[line] {
			seen[line] = true
			projects = append(projects, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return projects, nil
}
