package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/landchain/internal/model"
)

const (
	testRunsheet = "Instrument Type,Grantor,Grantee,Dated,Recorded,Legal Description\n" +
		"Patent,,Jane Doe,,1900,NE 1/4\n"

	testLeaseAbstract = `Instrument Type: OGL
Grantor: John Roe
Grantee: Acme Oil
Dated: 2015-01-01
Recorded: 2015-01-10
Legal Description: NE 1/4
Term: 3 year
Book/Page: Bk 120 Pg 44
`

	testDeedTable = `<html><body><table>
<tr><th>Instrument Type</th><th>Grantor</th><th>Grantee</th><th>Recorded</th><th>Legal Description</th></tr>
<tr><td>WD</td><td>Jane Doe</td><td>John Roe</td><td>1950</td><td>NE4</td></tr>
</table></body></html>`
)

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(model.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func writeTract(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func findOwner(t *testing.T, r *model.Report, name string) model.OwnerReport {
	t.Helper()
	for _, o := range r.Owners {
		if o.Name == name {
			return o
		}
	}
	t.Fatalf("owner %q not in report: %+v", name, r.Owners)
	return model.OwnerReport{}
}

func flagFor(flags []model.Flag, substr string) *model.Flag {
	for i := range flags {
		if strings.Contains(flags[i].Note, substr) {
			return &flags[i]
		}
	}
	return nil
}

func TestPipeline_AnalyzeFile_AllSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/exports/deeds.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testDeedTable))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	missing := server.URL + "/exports/missing.html"

	dir := t.TempDir()
	writeTract(t, dir, "roe.csv", testRunsheet)
	writeTract(t, dir, "lease.txt", testLeaseAbstract)
	path := writeTract(t, dir, "roe-12.yaml", `
legal_description: NE 1/4
as_of: 2025-01-01
runsheet: roe.csv
documents:
  - path: lease.txt
  - url: `+server.URL+`/exports/deeds.html
  - url: `+missing+`
`)

	report, err := newTestPipeline(t).AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if report.Prospect != "roe-12" {
		t.Errorf("expected prospect from file name, got %q", report.Prospect)
	}
	if len(report.Owners) != 1 {
		t.Fatalf("expected 1 owner, got %+v", report.Owners)
	}
	john := findOwner(t, report, "John Roe")
	if john.InterestPercent != "100.00000000" {
		t.Errorf("expected 100.00000000, got %s", john.InterestPercent)
	}
	if john.LeaseholdStatus != model.StatusExpired {
		t.Errorf("expected expired lease, got %s", john.LeaseholdStatus)
	}
	if john.LastLeaseOfRecord == nil || john.LastLeaseOfRecord.Expiration.String() != "2018-01-01" {
		t.Errorf("expected lease expiring 2018-01-01, got %+v", john.LastLeaseOfRecord)
	}

	f := flagFor(report.Flags, "document could not be fetched")
	if f == nil {
		t.Fatalf("expected fetch failure flag, got %+v", report.Flags)
	}
	if f.Severity != model.SeverityCritical || f.Document != missing || f.Stage != model.StageExtraction {
		t.Errorf("unexpected fetch flag: %+v", f)
	}
	if flagFor(report.Flags, "rows extracted by fallback key-value extractor") == nil {
		t.Errorf("expected fallback flag for the abstract, got %+v", report.Flags)
	}
}

func TestPipeline_Analyze_ReturnsRequestAndExtraction(t *testing.T) {
	tf := &TractFile{
		Prospect:         "Roe",
		LegalDescription: "NE 1/4",
		AsOf:             "2025-01-01",
		Documents:        []DocumentSource{{Content: testLeaseAbstract}},
	}

	result, err := newTestPipeline(t).Analyze(context.Background(), tf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.Request.Rows) != 1 || len(result.Extraction.Rows) != 1 {
		t.Errorf("expected one extracted row, got request=%d extraction=%d",
			len(result.Request.Rows), len(result.Extraction.Rows))
	}
	if len(result.Extraction.Attempts) == 0 || result.Extraction.Attempts[0].Document != "document 1" {
		t.Errorf("expected unnamed document to be numbered, got %+v", result.Extraction.Attempts)
	}
}

func TestPipeline_AsOfPrecedence(t *testing.T) {
	fileDate := model.NewDate(2025, time.January, 1)
	override := model.NewDate(2016, time.June, 1)
	fallback := model.NewDate(2030, time.March, 3)

	tests := []struct {
		name   string
		fileAs string
		opts   []Option
		want   model.RecordDate
	}{
		{"file date", "2025-01-01", []Option{WithDefaultAsOf(fallback)}, fileDate},
		{"override wins", "2025-01-01", []Option{WithAsOf(override), WithDefaultAsOf(fallback)}, override},
		{"default when absent", "", []Option{WithDefaultAsOf(fallback)}, fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := &TractFile{
				LegalDescription: "NE 1/4",
				AsOf:             tt.fileAs,
				Rows:             []model.RawRow{{"Instrument Type": "Patent", "Grantee": "Jane Doe", "Recorded": "1900"}},
			}
			result, err := newTestPipeline(t, tt.opts...).Analyze(context.Background(), tf)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if result.Request.AsOf != tt.want {
				t.Errorf("expected as-of %s, got %s", tt.want, result.Request.AsOf)
			}
		})
	}
}

func TestPipeline_Analyze_Errors(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Analyze(context.Background(), &TractFile{LegalDescription: "NE4", AsOf: "someday"})
	if err == nil || !strings.Contains(err.Error(), "as_of") {
		t.Errorf("expected as_of error, got %v", err)
	}

	_, err = p.Analyze(context.Background(), &TractFile{
		LegalDescription: "NE4",
		Dir:              t.TempDir(),
		Documents:        []DocumentSource{{Path: "absent.txt"}},
	})
	if err == nil || !strings.Contains(err.Error(), "read document") {
		t.Errorf("expected read document error, got %v", err)
	}

	_, err = p.Analyze(context.Background(), &TractFile{LegalDescription: "NE4", Dir: t.TempDir(), Runsheet: "absent.csv"})
	if err == nil || !strings.Contains(err.Error(), "read runsheet") {
		t.Errorf("expected read runsheet error, got %v", err)
	}
}

func TestPipeline_ParseDate(t *testing.T) {
	p := newTestPipeline(t)
	d, err := p.ParseDate("2024-06-01")
	if err != nil || d != model.NewDate(2024, time.June, 1) {
		t.Errorf("unexpected date %v (%v)", d, err)
	}
	if _, err := p.ParseDate("not a date"); err == nil {
		t.Error("expected error for unrecognized date")
	}
}

func TestPipeline_RenderReport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	report := sampleReport()

	jsonPath := filepath.Join(dir, "r.json")
	mdPath := filepath.Join(dir, "r.md")
	if err := newTestPipeline(t).RenderReport(&out, report, jsonPath, mdPath, true); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Wrote JSON: " + jsonPath, "Wrote Markdown: " + mdPath, "Roe 12: 2 owner(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}
