package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|manifest>",
	Short: "Analyze many tracts in parallel",
	Long: `Batch analyzes many tract files concurrently:
- Read every .yaml/.yml/.json tract file in a directory, or the paths
  listed in a manifest file (one per line, # for comments)
- Analyze tracts in parallel with a configurable worker count
- Write a JSON and a Markdown report per tract

Example:
  landchain batch ./tracts
  landchain batch tracts.txt --concurrency 8 --output-dir ./reports
  landchain batch ./tracts --as-of 2025-01-01 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers (default from config when unset)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./landchain-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	addAnalysisFlags(batchCmd.Flags())
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}
	if cfg.Concurrency.Workers < 1 {
		cfg.Concurrency.Workers = 1
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Landchain Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	paths, err := worker.ResolveTractFiles(input)
	if err != nil {
		return fmt.Errorf("resolve tract files: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no tract files found in %s", input)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d tracts with %d workers...\n", len(paths), cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results := processor.ProcessFiles(ctx, paths)

	successCount := 0
	failureCount := 0
	criticalCount := 0
	slugs := make(map[string]int)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		slug := uniqueSlug(slugs, reportSlug(result.Report, result.Path))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		renderer := p.Renderer()
		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		successCount++
		if hasCritical(result.Report) {
			criticalCount++
		}
		fmt.Fprintf(os.Stderr, "✓ %s\n", renderer.Summary(result.Report))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:          %d tracts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:        %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:       %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Need review:    %d (critical flags)\n", criticalCount)
	fmt.Fprintf(os.Stderr, "  Output:         %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d tracts failed", failureCount, len(results))
	}
	return nil
}

func hasCritical(report *model.Report) bool {
	for _, f := range report.Flags {
		if f.Severity == model.SeverityCritical {
			return true
		}
	}
	return false
}

// reportSlug names output files after the prospect, else the tract file
func reportSlug(report *model.Report, path string) string {
	name := report.Prospect
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sanitizeFilename(name)
}

// uniqueSlug appends -2, -3, ... when two tracts share a name
func uniqueSlug(seen map[string]int, slug string) string {
	seen[slug]++
	if n := seen[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
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
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")

	if s == "" {
		s = "tract"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
