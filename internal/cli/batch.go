package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/todolens/internal/pipeline"
	"github.com/ppiankov/todolens/internal/worker"
)

var (
	contextFile  string
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <projects-file>",
	Short: "Run cleanup analyses of many projects in parallel",
	Long: `Batch checks one context text against many projects concurrently:
- Read project paths from input file (one per line, # for comments)
- Analyze projects in parallel with configurable worker count
- Write a JSON and a Markdown report per project

Relative project paths are resolved against the projects file's directory.

Example:
  todolens batch projects.txt --context session.md
  todolens batch projects.txt --context session.md --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&contextFile, "context", "c", "", `context text file ("-" for stdin, required)`)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./todolens-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the code-search memo")
	_ = batchCmd.MarkFlagRequired("context")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	text, err := readContext(cmd, contextFile)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	workers := s.config.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  todolens batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Projects:     %s\n", file)
	fmt.Fprintf(os.Stderr, "  Context:      %s\n", contextFile)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(s.pipeline.ForContext(text), workers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(s.config.Output.IncludeFooter)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Project, result.Error)
			continue
		}

		slug := reportName(result.Index, result.Project)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Project, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Project, err)
			continue
		}

		successCount++
		cleanupCount := 0
		if result.Report.Cleanup != nil {
			cleanupCount = len(result.Report.Cleanup.Recommendations)
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d TODOs, %d already done, %d recommendations)\n",
			result.Project, result.Report.Summary.Total, len(result.Report.SupersededTodos), cleanupCount)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d projects\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// reportName builds a file name for a project's reports. The index keeps
// projects with the same base name apart.
func reportName(index int, project string) string {
	name := filenameReplacer.Replace(filepath.Base(filepath.Clean(project)))
	if name == "" || name == "." || name == "_" {
		name = "project"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return fmt.Sprintf("%03d-%s", index+1, name)
}
