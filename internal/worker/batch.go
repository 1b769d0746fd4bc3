package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

// Analyzer computes the report for one tract input file
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*model.Report, error)
}

// TractJob analyzes one tract file
type TractJob struct {
	Index    int
	Path     string
	Analyzer Analyzer
}

// Execute executes the tract job
func (j *TractJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzeFile(ctx, j.Path)
	return &TractResult{
		Index:  j.Index,
		Path:   j.Path,
		Report: report,
		Error:  err,
	}
}

// TractResult is the outcome of one tract job
type TractResult struct {
	Index  int
	Path   string
	Report *model.Report
	Error  error
}

// GetError returns the error from the tract result
func (r *TractResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many tracts concurrently. Tracts share no state,
// so the only coordination is collecting results back into input order.
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

// ProcessFiles analyzes every path and returns results in the order given
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*TractResult {
	if len(paths) == 0 {
		return []*TractResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		if !pool.Submit(&TractJob{Index: i, Path: path, Analyzer: b.analyzer}) {
			break
		}
	}

	results := pool.Wait()

	tractResults := make([]*TractResult, 0, len(paths))
	seen := make(map[int]bool, len(results))
	for _, result := range results {
		tr := result.(*TractResult)
		seen[tr.Index] = true
		tractResults = append(tractResults, tr)
	}

	// Jobs dropped by cancellation still get a row so the caller sees every path
	for i, path := range paths {
		if !seen[i] {
			err := ctx.Err()
			if err == nil {
				err = errors.New("tract not processed")
			}
			tractResults = append(tractResults, &TractResult{Index: i, Path: path, Error: err})
		}
	}

	sort.Slice(tractResults, func(i, j int) bool {
		return tractResults[i].Index < tractResults[j].Index
	})

	return tractResults
}

// ProcessPath analyzes a directory of tract files or a manifest listing them
func (b *BatchProcessor) ProcessPath(ctx context.Context, path string) ([]*TractResult, error) {
	paths, err := ResolveTractFiles(path)
	if err != nil {
		return nil, err
	}
	return b.ProcessFiles(ctx, paths), nil
}

// tractExtensions are the input file types a batch directory is scanned for
var tractExtensions = []string{".yaml", ".yml", ".json"}

// ResolveTractFiles expands a directory into its tract files (sorted by name)
// or reads a manifest file
func ResolveTractFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat batch input: %w", err)
	}
	if !info.IsDir() {
		return ReadManifest(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read batch directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slices.Contains(tractExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	return paths, nil
}

// ReadManifest reads tract file paths from a manifest (one per line).
// Relative paths resolve against the manifest's directory.
func ReadManifest(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
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

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return paths, nil
}
