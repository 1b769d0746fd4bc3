package extract

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/normalize"
)

var (
	labelLine     = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 ./#&()'-]{0,40}?)\s*[:=]\s*(.*)$`)
	separatorLine = regexp.MustCompile(`^\s*([-=_*#~]\s*){3,}$`)
)

// KeyValueExtractor reads labelled instrument abstracts, the shape OCR of
// recorder index cards and abstractor notes usually takes:
//
//	Instrument: Warranty Deed
//	Grantor: Jane Doe
//	Grantee: John Roe
//	         Mary Roe
//
// A record ends at a separator line or when a label repeats. Unlabelled lines
// continue the previous value on a new line.
type KeyValueExtractor struct{}

// NewKeyValueExtractor creates a new key/value extractor
func NewKeyValueExtractor() *KeyValueExtractor {
	return &KeyValueExtractor{}
}

// Name returns the extractor name
func (e *KeyValueExtractor) Name() string {
	return "key-value"
}

// CanHandle accepts anything that is not HTML
func (e *KeyValueExtractor) CanHandle(doc Document) bool {
	return !strings.Contains(strings.ToLower(doc.ContentType), "html")
}

// Extract groups labelled lines into rows
func (e *KeyValueExtractor) Extract(ctx context.Context, doc Document) ([]model.RawRow, error) {
	var (
		rows    []model.RawRow
		current model.RawRow
		last    string
	)

	flush := func() {
		if knownColumns(keys(current)) >= minKnownColumns {
			rows = append(rows, current)
		}
		current, last = nil, ""
	}

	for _, line := range strings.Split(strings.ReplaceAll(doc.Content, "\r\n", "\n"), "\n") {
		if separatorLine.MatchString(line) {
			flush()
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := labelLine.FindStringSubmatch(line); m != nil && normalize.KnownColumn(m[1]) {
			label := strings.TrimSpace(m[1])
			if _, repeated := current[label]; repeated {
				flush()
			}
			if current == nil {
				current = make(model.RawRow)
			}
			current[label] = strings.TrimSpace(m[2])
			last = label
			continue
		}

		if last != "" {
			text := strings.TrimSpace(line)
			if current[last] == "" {
				current[last] = text
			} else {
				current[last] += "\n" + text
			}
		}
	}
	flush()

	if len(rows) == 0 {
		return nil, errors.New("no labelled records found")
	}
	return rows, nil
}

func keys(row model.RawRow) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	return out
}
