package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/landchain/internal/cache"
	"github.com/ppiankov/landchain/internal/llm"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/worker"
)

const tsvRunsheet = "Runsheet - NE4 Section 12-150-95\n" +
	"Prepared for Roe prospect\n" +
	"\n" +
	"Instrument\tGrantor\tGrantee\tRecorded\tLegal Description\n" +
	"Patent\tUnited States\tJane Doe\t1910\tNE4 12-150-95\n" +
	"Warranty Deed\tJane Doe\tJohn Roe\t03/04/1950\tNE4 12-150-95\n"

// failingExtractor always fails
type failingExtractor struct{}

func (f *failingExtractor) Name() string                { return "failing" }
func (f *failingExtractor) CanHandle(doc Document) bool { return true }
func (f *failingExtractor) Extract(ctx context.Context, doc Document) ([]model.RawRow, error) {
	return nil, errors.New("boom")
}

// mockProvider implements llm.Provider
type mockProvider struct {
	available bool
	rows      []model.RawRow
	calls     int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) ExtractRows(ctx context.Context, req llm.ExtractRequest) (*llm.ExtractResponse, error) {
	m.calls++
	return &llm.ExtractResponse{Rows: m.rows}, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return m.available }

func hasFlag(flags []model.Flag, sev model.Severity, substr string) bool {
	for _, f := range flags {
		if f.Stage == model.StageExtraction && f.Severity == sev && strings.Contains(f.Note, substr) {
			return true
		}
	}
	return false
}

func TestChain_FallsBackAndRecordsAttempts(t *testing.T) {
	chain := NewChain(nil, &failingExtractor{}, NewDelimitedExtractor())

	res, err := chain.Extract(context.Background(), Document{Name: "runsheet.tsv", Content: tsvRunsheet})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if len(res.Attempts) != 2 || res.Attempts[0].Err == nil || res.Attempts[1].Rows != 2 {
		t.Errorf("unexpected attempts: %+v", res.Attempts)
	}
	if !hasFlag(res.Flags, model.SeverityWarning, "failing extractor failed: boom") {
		t.Errorf("expected warning for failed attempt, got %+v", res.Flags)
	}
	if !hasFlag(res.Flags, model.SeverityInfo, "fallback delimited") {
		t.Errorf("expected fallback note, got %+v", res.Flags)
	}
	if res.Flags[0].Document != "runsheet.tsv" {
		t.Errorf("expected flag to name the document, got %q", res.Flags[0].Document)
	}
}

func TestChain_NoExtractorSucceeds(t *testing.T) {
	chain := NewDefaultChain(nil, nil)

	res, err := chain.Extract(context.Background(), Document{Name: "scan.txt", Content: "illegible"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(res.Rows))
	}
	if !hasFlag(res.Flags, model.SeverityCritical, "manual abstracting") {
		t.Errorf("expected critical flag, got %+v", res.Flags)
	}
}

func TestChain_EmptyDocument(t *testing.T) {
	res, err := NewDefaultChain(nil, nil).Extract(context.Background(), Document{Name: "blank.txt", Content: "  \n"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(res.Attempts) != 0 || !hasFlag(res.Flags, model.SeverityCritical, "empty") {
		t.Errorf("expected empty-document flag without attempts, got %+v", res)
	}
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDefaultChain(nil, nil).Extract(ctx, Document{Name: "a", Content: tsvRunsheet}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestChain_ExtractAll(t *testing.T) {
	chain := NewDefaultChain(nil, nil)
	docs := []Document{
		{Name: "one.tsv", Content: tsvRunsheet},
		{Name: "two.txt", Content: "Instrument: Oil and Gas Lease\nLessor: John Roe\nLessee: Acme Oil Company\nDated: 2015-01-01"},
	}

	res, err := chain.ExtractAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}
	if res.Rows[2]["Lessee"] != "Acme Oil Company" {
		t.Errorf("expected rows in document order, got %v", res.Rows[2])
	}
}

func TestDefaultChain_Order(t *testing.T) {
	rows := llm.NewRowExtractorWithProvider(&mockProvider{available: true}, llm.Config{})
	chain := NewDefaultChain(NewLLMExtractor(rows, "m"), nil)

	got := strings.Join(chain.Extractors(), ",")
	if got != "llm:mock,html-table,delimited,key-value" {
		t.Errorf("unexpected extractor order: %s", got)
	}
}

func TestHTMLTableExtractor(t *testing.T) {
	page := `<html><body>
<table><tr><td>Navigation</td><td>Home</td></tr></table>
<table>
  <caption>Runsheet</caption>
  <tr><th colspan="5">Roe Prospect</th></tr>
  <tr><th>Instrument</th><th>Grantor</th><th>Grantee</th><th>Recorded</th><th>Legal</th></tr>
  <tr><td>Probate</td><td>Estate of John <b>Roe</b></td><td>Alice Roe (1/2)<br>Bob Roe (1/2)</td><td>2001</td><td>NE4 12-150-95</td></tr>
  <tr><td></td><td></td><td></td><td></td><td></td></tr>
</table>
</body></html>`

	e := NewHTMLTableExtractor()
	if !e.CanHandle(Document{Content: page}) {
		t.Fatal("expected HTML extractor to handle table markup")
	}

	rows, err := e.Extract(context.Background(), Document{Content: page})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(rows), rows)
	}
	if rows[0]["Grantor"] != "Estate of John Roe" {
		t.Errorf("expected inline markup flattened, got %q", rows[0]["Grantor"])
	}
	if rows[0]["Grantee"] != "Alice Roe (1/2)\nBob Roe (1/2)" {
		t.Errorf("expected one party per line, got %q", rows[0]["Grantee"])
	}
}

func TestHTMLTableExtractor_NoRunsheetTable(t *testing.T) {
	e := NewHTMLTableExtractor()
	if _, err := e.Extract(context.Background(), Document{Content: "<table><tr><td>a</td><td>b</td></tr></table>"}); err == nil {
		t.Error("expected error without runsheet headers")
	}
	if _, err := e.Extract(context.Background(), Document{Content: "<p>no tables</p>"}); err == nil {
		t.Error("expected error without tables")
	}
	if e.CanHandle(Document{Content: "Grantor,Grantee"}) {
		t.Error("expected plain text to be declined")
	}
}

func TestDelimitedExtractor_SkipsTitleLines(t *testing.T) {
	rows, err := NewDelimitedExtractor().Extract(context.Background(), Document{Content: tsvRunsheet})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1]["Instrument"] != "Warranty Deed" || rows[1]["Recorded"] != "03/04/1950" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestDelimitedExtractor_QuotedMultilineCell(t *testing.T) {
	csvText := "Instrument,Grantor,Grantee,Recorded\r\n" +
		"Probate,Estate of John Roe,\"Alice Roe (1/2)\nBob Roe (1/2)\",2001\r\n"

	rows, err := NewDelimitedExtractor().Extract(context.Background(), Document{Content: csvText})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["Grantee"] != "Alice Roe (1/2)\nBob Roe (1/2)" {
		t.Errorf("unexpected rows: %q", rows)
	}
}

func TestDelimitedExtractor_NoHeader(t *testing.T) {
	if _, err := NewDelimitedExtractor().Extract(context.Background(), Document{Content: "a,b,c\n1,2,3"}); err == nil {
		t.Error("expected error without runsheet header")
	}
	if _, err := NewDelimitedExtractor().Extract(context.Background(), Document{Content: "Grantor,Grantee\n"}); err == nil {
		t.Error("expected error for header without rows")
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := map[string]rune{
		"Instrument\tGrantor\tGrantee":   '\t',
		"Instrument,Grantor,Grantee":     ',',
		"Instrument | Grantor | Grantee": '|',
		"Instrument;Grantor;Grantee":     ';',
		"nothing here":                   ',',
	}
	for line, want := range tests {
		if got := DetectDelimiter(line); got != want {
			t.Errorf("DetectDelimiter(%q): expected %q, got %q", line, want, got)
		}
	}
}

func TestKeyValueExtractor(t *testing.T) {
	text := `ABSTRACT OF TITLE
Instrument: Warranty Deed
Grantor: Jane Doe
Grantee: John Roe
         Mary Roe
Recorded: 03/04/1950
Instrument: Oil and Gas Lease
Lessor: John Roe
Lessee: Acme Oil Company
Comments: five (5) year primary term
----------
Page 2 of 2
Instrument: Release`

	rows, err := NewKeyValueExtractor().Extract(context.Background(), Document{Content: text})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0]["Grantee"] != "John Roe\nMary Roe" {
		t.Errorf("expected continuation line appended, got %q", rows[0]["Grantee"])
	}
	if rows[1]["Comments"] != "five (5) year primary term" {
		t.Errorf("unexpected comments: %q", rows[1]["Comments"])
	}
}

func TestKeyValueExtractor_NoRecords(t *testing.T) {
	if _, err := NewKeyValueExtractor().Extract(context.Background(), Document{Content: "Title: Something\nPage: 1"}); err == nil {
		t.Error("expected error without labelled records")
	}
}

func TestLLMExtractor_CachesRows(t *testing.T) {
	provider := &mockProvider{available: true, rows: []model.RawRow{{"grantor": "Jane Doe", "grantee": "John Roe"}}}
	rows := llm.NewRowExtractorWithProvider(provider, llm.Config{Model: "m"})
	e := NewLLMExtractor(rows, "m",
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute),
		WithLimiter(worker.NewLimiter(100, 5)),
	)

	doc := Document{Name: "deed.txt", Content: "WARRANTY DEED Jane Doe to John Roe"}
	for range 2 {
		got, err := e.Extract(context.Background(), doc)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len(got) != 1 || got[0]["grantee"] != "John Roe" {
			t.Errorf("unexpected rows: %v", got)
		}
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
}

func TestLLMExtractor_Disabled(t *testing.T) {
	rows, err := llm.NewRowExtractor(llm.Config{})
	if err != nil {
		t.Fatalf("NewRowExtractor failed: %v", err)
	}
	e := NewLLMExtractor(rows, "")
	if e.CanHandle(Document{Content: "x"}) {
		t.Error("expected disabled extractor to decline")
	}
	if e.Name() != "llm" {
		t.Errorf("expected name llm, got %s", e.Name())
	}
}

func TestDefaultChain_UnavailableProviderFallsBack(t *testing.T) {
	provider := &mockProvider{available: false}
	rows := llm.NewRowExtractorWithProvider(provider, llm.Config{})
	chain := NewDefaultChain(NewLLMExtractor(rows, ""), nil)

	res, err := chain.Extract(context.Background(), Document{Name: "runsheet.tsv", Content: tsvRunsheet})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("expected structural fallback rows, got %d", len(res.Rows))
	}
	if !hasFlag(res.Flags, model.SeverityWarning, "llm:mock extractor failed") {
		t.Errorf("expected provider warning, got %+v", res.Flags)
	}
	if provider.calls != 0 {
		t.Errorf("expected no provider calls, got %d", provider.calls)
	}
}
