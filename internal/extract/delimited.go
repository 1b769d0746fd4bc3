package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

// delimiters in preference order when header lines tie
var delimiters = []rune{'\t', ',', '|', ';'}

// DelimitedExtractor reads CSV, TSV and pipe-delimited runsheets, skipping any
// title lines above the header
type DelimitedExtractor struct{}

// NewDelimitedExtractor creates a new delimited-text extractor
func NewDelimitedExtractor() *DelimitedExtractor {
	return &DelimitedExtractor{}
}

// Name returns the extractor name
func (e *DelimitedExtractor) Name() string {
	return "delimited"
}

// CanHandle accepts anything that is not HTML
func (e *DelimitedExtractor) CanHandle(doc Document) bool {
	return !strings.Contains(strings.ToLower(doc.ContentType), "html")
}

// Extract finds the header line and reads the rows below it
func (e *DelimitedExtractor) Extract(ctx context.Context, doc Document) ([]model.RawRow, error) {
	lines := strings.Split(strings.ReplaceAll(doc.Content, "\r\n", "\n"), "\n")

	start, delim := headerLine(lines)
	if start < 0 {
		return nil, errors.New("no delimited header with runsheet columns")
	}

	return ReadDelimited(strings.NewReader(strings.Join(lines[start:], "\n")), delim)
}

// ReadDelimited reads a header plus rows. Quoted cells may span lines, which is
// how spreadsheet exports carry multi-party grantee cells.
func ReadDelimited(r io.Reader, delim rune) ([]model.RawRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []model.RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		row := make(model.RawRow)
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				row[header[i]] = cell
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, errors.New("header found but no rows")
	}
	return rows, nil
}

// headerLine returns the index of the first line that splits into enough known
// runsheet columns, and the delimiter that splits it best
func headerLine(lines []string) (int, rune) {
	for i, line := range lines {
		// "Label: value" lines belong to the key/value extractor
		if strings.TrimSpace(line) == "" || strings.Contains(line, ":") {
			continue
		}
		best, bestDelim := 0, rune(0)
		for _, d := range delimiters {
			if n := knownColumns(splitLine(line, d)); n > best {
				best, bestDelim = n, d
			}
		}
		if best >= minKnownColumns {
			return i, bestDelim
		}
	}
	return -1, 0
}

// splitLine splits one header line; header cells are rarely quoted
func splitLine(line string, delim rune) []string {
	parts := strings.Split(line, string(delim))
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}
	return parts
}

// DetectDelimiter picks the delimiter for a runsheet file whose first line is
// its header. It falls back to comma.
func DetectDelimiter(headerLineText string) rune {
	if _, d := headerLine([]string{headerLineText}); d != 0 {
		return d
	}
	return ','
}
