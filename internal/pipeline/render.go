package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

// Renderer writes reports as JSON, Markdown and one-line summaries. Output
// depends only on the report, so identical reports render byte-identically.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// JSON returns the indented JSON form of the report
func (r *Renderer) JSON(report *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderJSON writes the JSON report to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := r.JSON(report)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders the report for a landman's review
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format, args...) }

	title := report.Prospect
	if title == "" {
		title = report.LegalDescription
	}
	w("# Ownership & Lease Status: %s\n\n", cell(title))

	w("| | |\n|---|---|\n")
	w("| Legal description | %s |\n", cell(report.LegalDescription))
	w("| As of | %s |\n", dateOrDash(report.AsOf))
	w("| Gross acres | %s (%s) |\n", report.TotalAcres, report.AcreageBasis)
	w("| Total interest | %s%% |\n", report.TotalInterestPercent)
	w("| Run ID | `%s` |\n\n", report.RunID)

	w("## Owners\n\n")
	w("| Owner | Interest %% | Net Acres | Leasehold Status | Last Lease of Record |\n")
	w("|---|---:|---:|---|---|\n")
	for _, o := range report.Owners {
		net := o.NetAcres.String()
		if o.NetAcresProvisional {
			net += "*"
		}
		w("| %s | %s | %s | %s | %s |\n", cell(o.Name), o.InterestPercent, net, o.LeaseholdStatus.Label(), cell(leaseSummary(o.LastLeaseOfRecord)))
	}
	if hasProvisional(report.Owners) {
		w("\n\\* Net acres are provisional: gross acreage is %s.\n", report.AcreageBasis)
	}
	w("\n")

	w("## Lease Details\n\n")
	for _, o := range report.Owners {
		w("### %s\n\n", o.Name)
		if len(o.Qualifiers) > 0 {
			quals := make([]string, 0, len(o.Qualifiers))
			for _, q := range o.Qualifiers {
				quals = append(quals, strings.ReplaceAll(string(q), "_", " "))
			}
			w("- Interest: %s\n", strings.Join(quals, ", "))
		}
		if l := o.LastLeaseOfRecord; l != nil {
			w("- Lease: %s\n", l.DocumentReference)
			w("- Lessor(s): %s\n", strings.Join(l.Lessors, "; "))
			w("- Lessee(s): %s\n", strings.Join(l.Lessees, "; "))
			w("- Dated: %s, recorded: %s\n", dateOrDash(l.DatedDate), dateOrDash(l.RecordedDate))
			w("- Term: %s, expires %s\n", l.TermDescription, dateOrDash(l.Expiration))
			if l.Released {
				w("- Released by %s\n", l.ReleaseReference)
			}
			if l.RequiresProduction {
				w("- Held only if producing: production requires verification\n")
			}
		} else {
			w("- No lease of record\n")
		}
		if a := o.Apportionment; a != nil {
			w("- Held net acres: %s, open net acres: %s (%s)\n", a.HeldNetAcres, a.OpenNetAcres, a.Basis)
		}
		if len(o.ReviewFlags) > 0 {
			w("- Review:\n")
			for _, f := range o.ReviewFlags {
				w("  - %s\n", f)
			}
		}
		w("\n")
	}

	w("## Wells\n\n")
	if len(report.Wells) == 0 {
		w("None of record.\n\n")
	} else {
		for _, well := range report.Wells {
			w("- %s\n", well)
		}
		w("\n")
	}

	w("## Review Flags\n\n")
	if len(report.Flags) == 0 {
		w("None.\n\n")
	} else {
		w("| Severity | Stage | Owner | Document | Note |\n|---|---|---|---|---|\n")
		for _, f := range report.Flags {
			w("| %s | %s | %s | %s | %s |\n", f.Severity, f.Stage, cell(f.Owner), cell(f.Document), cell(f.Note))
		}
		w("\n")
	}

	w("## Limitations and Exceptions\n\n%s\n", report.LimitationsAndExceptions)

	if r.includeFooter {
		w("\n---\n\n_Generated by landchain. Not a title opinion._\n")
	}
	return b.String()
}

// Summary is the one-line stderr summary of a report
func (r *Renderer) Summary(report *model.Report) string {
	critical := 0
	for _, f := range report.Flags {
		if f.Severity == model.SeverityCritical {
			critical++
		}
	}
	label := report.Prospect
	if label == "" {
		label = report.LegalDescription
	}
	return fmt.Sprintf("%s: %d owner(s), %s%% total, %s acres (%s), %d flag(s), %d critical",
		label, len(report.Owners), report.TotalInterestPercent, report.TotalAcres, report.AcreageBasis,
		len(report.Flags), critical)
}

// RenderSummary writes the one-line summary to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	_, _ = fmt.Fprintln(w, r.Summary(report))
}

func leaseSummary(l *model.LeaseRecord) string {
	if l == nil {
		return "None"
	}
	s := l.DocumentReference
	if len(l.Lessees) > 0 {
		s += " to " + strings.Join(l.Lessees, ", ")
	}
	if l.Expiration.Valid() {
		s += ", exp. " + l.Expiration.String()
	}
	return s
}

func hasProvisional(owners []model.OwnerReport) bool {
	for _, o := range owners {
		if o.NetAcresProvisional {
			return true
		}
	}
	return false
}

func dateOrDash(d model.RecordDate) string {
	if !d.Valid() {
		return "-"
	}
	return d.String()
}

// cell escapes text for a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "<br>")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
