package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/todolens/internal/model"
)

var projectPath string

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Validate TODOs from text and a project against the project's code",
	Long: `Analyze runs a complete analysis:
- Extract TODOs from the text
- Discover TODO markers, markdown TODO lists and stub implementations in the project
- Merge duplicates across both sources
- Check every TODO against the code (active, superseded, completed, stale, broken)

Code-search failures never fail the command; they are reported as warnings.

Example:
  todolens analyze session.md --project ./myapp
  todolens analyze session.md --project ./myapp --json - --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, args, false)
	},
}

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup <file|->",
	Short: "Plan a cleanup of TODOs the code already covers",
	Long: `Cleanup runs a complete analysis and ranks cleanup recommendations:
- safe deletion of completed or superseded TODOs
- reference updates for stale or broken TODOs
- consolidation of duplicate groups
- investigation of TODOs that could not be verified

Recommendations are advisory. Nothing is modified.

Example:
  todolens cleanup session.md --project ./myapp --md cleanup.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, args, true)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{analyzeCmd, cleanupCmd} {
		rootCmd.AddCommand(cmd)
		addOutputFlags(cmd)
		cmd.Flags().StringVarP(&projectPath, "project", "p", "", "project directory to validate against (required)")
		_ = cmd.MarkFlagRequired("project")
	}
}

func runProject(cmd *cobra.Command, args []string, withCleanup bool) error {
	text, err := readContext(cmd, args[0])
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := commandContext(cmd)

	if s.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Project: %s\n", projectPath)
		fmt.Fprintf(os.Stderr, "Validation timeout: %v\n", s.config.Validation.Timeout)
		fmt.Fprintln(os.Stderr)
	}

	var report *model.Report
	if withCleanup {
		result, err := s.pipeline.AnalyzeCleanup(ctx, text, projectPath)
		if err != nil {
			return fmt.Errorf("cleanup analysis failed: %w", err)
		}
		report = result.Report(projectPath)
	} else {
		result, err := s.pipeline.AnalyzeComplete(ctx, text, projectPath)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		report = result.Report(projectPath)
	}

	if s.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ %d context TODOs, %d codebase TODOs\n", len(report.ContextTodos), len(report.CodebaseTodos))
		fmt.Fprintf(os.Stderr, "✓ %d validated, %d already done\n", len(report.ValidatedTodos), len(report.SupersededTodos))
		fmt.Fprintln(os.Stderr)
	}

	if err := s.pipeline.RenderReport(report, outJSON, outMD, s.config.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
