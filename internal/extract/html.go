package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/normalize"
)

// minKnownColumns is how many recognized runsheet headers a table or header
// line needs before it is read as a runsheet
const minKnownColumns = 2

// HTMLTableExtractor reads runsheet tables from county recorder HTML exports
type HTMLTableExtractor struct{}

// NewHTMLTableExtractor creates a new HTML table extractor
func NewHTMLTableExtractor() *HTMLTableExtractor {
	return &HTMLTableExtractor{}
}

// Name returns the extractor name
func (e *HTMLTableExtractor) Name() string {
	return "html-table"
}

// CanHandle accepts HTML content types and anything containing a table tag
func (e *HTMLTableExtractor) CanHandle(doc Document) bool {
	if strings.Contains(strings.ToLower(doc.ContentType), "html") {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Content), "<table")
}

// Extract reads every table whose header row names runsheet columns
func (e *HTMLTableExtractor) Extract(ctx context.Context, doc Document) ([]model.RawRow, error) {
	root, err := html.Parse(strings.NewReader(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tables := findAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Table
	})
	if len(tables) == 0 {
		return nil, errors.New("no table found")
	}

	var rows []model.RawRow
	for _, table := range tables {
		rows = append(rows, tableRows(table)...)
	}
	if len(rows) == 0 {
		return nil, errors.New("no table with runsheet columns")
	}
	return rows, nil
}

// tableRows maps body rows onto the first row that looks like a runsheet header.
// Nested tables are read on their own.
func tableRows(table *html.Node) []model.RawRow {
	var header []string
	var rows []model.RawRow

	for _, tr := range ownRows(table) {
		cells := rowCells(tr)
		if header == nil {
			if knownColumns(cells) >= minKnownColumns {
				header = cells
			}
			continue
		}

		row := make(model.RawRow)
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" || cell == "" {
				continue
			}
			row[header[i]] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// ownRows returns the table's rows, skipping rows of nested tables
func ownRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, c)
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

// rowCells returns the text of each th/td, repeating a cell across its colspan
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		text := cellText(c)
		span := 1
		if v := getAttribute(c, "colspan"); v != "" {
			if _, err := fmt.Sscanf(v, "%d", &span); err != nil || span < 1 {
				span = 1
			}
		}
		for range span {
			cells = append(cells, text)
		}
	}
	return cells
}

// cellText collects a cell's text. Line breaks and block elements become
// newlines so multi-party cells keep one party per line.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			// Spacing is collapsed per line below
			b.WriteString(" ")
			b.WriteString(node.Data)
			b.WriteString(" ")
		case node.Type == html.ElementNode && node.DataAtom == atom.Br:
			b.WriteString("\n")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && (node.DataAtom == atom.P || node.DataAtom == atom.Div || node.DataAtom == atom.Li) {
			b.WriteString("\n")
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func knownColumns(headers []string) int {
	n := 0
	for _, h := range headers {
		if normalize.KnownColumn(h) {
			n++
		}
	}
	return n
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findAll finds all nodes matching a predicate
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}
