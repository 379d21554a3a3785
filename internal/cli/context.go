package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// contextCmd represents the context command
var contextCmd = &cobra.Command{
	Use:   "context <file|->",
	Short: "Extract and consolidate TODOs from conversational text",
	Long: `Context analyzes text alone:
- Extract TODOs from checklists, markers, imperative and planning lines
- Classify priority and category
- Merge duplicates

Example:
  todolens context session.md
  cat session.md | todolens context - --json - --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	addOutputFlags(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	text, err := readContext(cmd, args[0])
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.pipeline.AnalyzeContext(commandContext(cmd), text)
	if err != nil {
		return fmt.Errorf("context analysis failed: %w", err)
	}

	if s.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d TODOs in %d duplicate groups\n", len(result.Todos), len(result.Groups))
	}

	if err := s.pipeline.RenderReport(result.Report(), outJSON, outMD, s.config.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
