package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/normalize"
	"github.com/ppiankov/landchain/internal/pipeline"
)

var (
	outJSON         string
	outMD           string
	asOf            string
	termYears       int
	estimateAcreage bool
	nameMatcher     string
	timeout         time.Duration
	noCache         bool
	noFooter        bool
	noRobots        bool
	llmEnabled      bool
	llmProvider     string
	llmModel        string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <tract.yaml>",
	Short: "Compute current owners and lease status for one tract",
	Long: `Analyze reads a tract file (YAML or JSON) naming the target legal
description and its recorded instruments, then:
- Normalizes runsheet rows, CSV runsheets and extracted documents
- Replays conveyances into the current ownership ledger
- Matches each owner to the last lease of record and resolves its status
- Generates JSON and Markdown reports with every review flag

Example:
  landchain analyze roe-12.yaml
  landchain analyze roe-12.yaml --json roe-12.json --md roe-12.md
  landchain analyze roe-12.yaml --as-of 2025-01-01 --term-years 5
  landchain analyze roe-12.yaml --llm --llm-provider ollama --llm-model llama3.1:8b`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout (documents fetched by URL count against it)")

	addAnalysisFlags(analyzeCmd.Flags())
}

// addAnalysisFlags registers the flags shared by analyze and batch
func addAnalysisFlags(flags *pflag.FlagSet) {
	flags.StringVar(&asOf, "as-of", "", "date lease status is measured at (default: the tract file's as_of, else today)")
	flags.IntVar(&termYears, "term-years", 0, "primary term for leases that state none (default from config: 3)")
	flags.BoolVar(&estimateAcreage, "estimate-acreage", false, "substitute a quarter section (160 ac, labelled estimate) when acreage is unresolved")
	flags.StringVar(&nameMatcher, "name-matcher", "", "party name comparison: substring or edit-distance")
	flags.BoolVar(&noCache, "no-cache", false, "disable the extraction cache")
	flags.BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	flags.BoolVar(&noRobots, "no-robots", false, "download documents even where robots.txt disallows them")

	// LLM flags
	flags.BoolVar(&llmEnabled, "llm", false, "enable LLM row extraction for unstructured documents")
	flags.StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	flags.StringVar(&llmModel, "llm-model", "", "LLM model name (default: gpt-4o-mini for openai)")
}

// buildConfig layers explicitly set flags over file, env and defaults
func buildConfig(flags *pflag.FlagSet) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if flags.Changed("term-years") {
		cfg.Engine.DefaultLeaseTermYears = termYears
	}
	if flags.Changed("estimate-acreage") {
		cfg.Engine.EstimateUnresolvedAcreage = estimateAcreage
	}
	if flags.Changed("name-matcher") {
		cfg.Engine.NameMatcher = nameMatcher
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if noRobots {
		cfg.Fetch.RespectRobots = false
	}
	cfg.Output.Verbose = verbose

	// Configure LLM if enabled
	if llmEnabled {
		if flags.Changed("llm-provider") || cfg.LLM.Provider == "" {
			cfg.LLM.Provider = llmProvider
		}
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}

		switch cfg.LLM.Provider {
		case "openai":
			if cfg.LLM.APIKey == "" {
				return nil, errors.New("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			if cfg.LLM.Model == "" {
				return nil, errors.New("--llm-model is required for ollama (e.g. llama3.1:8b)")
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline builds the pipeline with the as-of date from --as-of, defaulting to today
func newPipeline(cfg *model.Config) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(newLogger()),
		pipeline.WithDefaultAsOf(model.DateFromTime(time.Now())),
	}

	if asOf != "" {
		dates := normalize.DateParser{
			YearOnlyMonth: time.Month(cfg.Engine.YearOnlyMonth),
			YearOnlyDay:   cfg.Engine.YearOnlyDay,
		}
		d, ok := dates.Parse(asOf)
		if !ok {
			return nil, fmt.Errorf("--as-of: unrecognized date %q", asOf)
		}
		opts = append(opts, pipeline.WithAsOf(d))
	}

	return pipeline.NewPipeline(cfg, opts...)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig(cmd.Flags())
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", path)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Default lease term: %d years\n", cfg.Engine.DefaultLeaseTermYears)
		if cfg.LLM.Provider != "" {
			fmt.Fprintf(os.Stderr, "LLM: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	tf, err := pipeline.LoadTractFile(path)
	if err != nil {
		return err
	}

	result, err := p.Analyze(ctx, tf)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Collected %d rows\n", len(result.Request.Rows))
		if result.Extraction != nil {
			for _, a := range result.Extraction.Attempts {
				if a.Err != nil {
					fmt.Fprintf(os.Stderr, "  ✗ %s on %s: %v\n", a.Extractor, a.Document, a.Err)
					continue
				}
				fmt.Fprintf(os.Stderr, "  ✓ %s on %s: %d rows\n", a.Extractor, a.Document, a.Rows)
			}
		}
		fmt.Fprintf(os.Stderr, "✓ Resolved %d owners as of %s\n", len(result.Report.Owners), result.Report.AsOf)
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(os.Stderr, result.Report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
