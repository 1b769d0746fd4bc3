// Package engine runs the full ownership and lease-status computation for one tract:
// normalize rows, keep the events that touch the tract, replay the ownership ledger,
// resolve each owner's leasehold and assemble the report.
//
// Run is a pure function of its Request and the engine configuration. It performs no
// I/O, keeps no state between calls and never returns an error, so tracts can be run
// in parallel and re-run from scratch as more rows arrive.
package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/landchain/internal/lease"
	"github.com/ppiankov/landchain/internal/ledger"
	"github.com/ppiankov/landchain/internal/legal"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/names"
	"github.com/ppiankov/landchain/internal/normalize"
	"github.com/ppiankov/landchain/internal/report"
)

// runNamespace scopes report run IDs
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/landchain/run"))

// Request is one tract's input
type Request struct {
	Prospect         string                         `json:"prospect" yaml:"prospect"`
	LegalDescription string                         `json:"legal_description" yaml:"legal_description"`
	AsOf             model.RecordDate               `json:"as_of" yaml:"-"`
	Rows             []model.RawRow                 `json:"rows" yaml:"rows"`
	Overrides        map[string]model.LeaseOverride `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Engine computes reports
type Engine struct {
	cfg        model.EngineConfig
	matcher    names.Matcher
	normalizer *normalize.Normalizer
	resolver   *lease.Resolver
	assembler  *report.Assembler
}

// Option configures an Engine
type Option func(*Engine)

// WithMatcher replaces the default substring name matcher
func WithMatcher(m names.Matcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// New creates an engine. The name matcher follows cfg.NameMatcher unless an
// option replaces it.
func New(cfg model.EngineConfig, opts ...Option) *Engine {
	var m names.Matcher = names.NewSubstringMatcher()
	if cfg.NameMatcher == "edit-distance" {
		m = names.NewEditDistanceMatcher(cfg.NameMaxEditRatio)
	}
	e := &Engine{cfg: cfg, matcher: m}
	for _, opt := range opts {
		opt(e)
	}
	e.normalizer = normalize.New(cfg)
	e.resolver = lease.New(cfg, e.matcher)
	e.assembler = report.New(cfg, e.matcher)
	return e
}

// Run computes the report for one tract
func (e *Engine) Run(req Request) *model.Report {
	var flags []model.Flag
	flag := func(stage model.Stage, sev model.Severity, doc, format string, args ...any) {
		flags = append(flags, model.Flag{
			Stage:    stage,
			Severity: sev,
			Document: doc,
			Note:     fmt.Sprintf(format, args...),
		})
	}

	// 1. Tract and gross acreage
	tract := legal.Parse(req.LegalDescription)
	in := report.Input{
		Prospect:         req.Prospect,
		LegalDescription: req.LegalDescription,
		Tract:            tract,
		AsOf:             req.AsOf,
	}
	if !tract.Interpreted() {
		flag(model.StageLegal, model.SeverityWarning, "",
			"target legal description %q could not be interpreted; every event assumed to cover the tract", req.LegalDescription)
	}
	in.TotalAcres, in.AcreageBasis = e.tractAcres(tract, flag)

	// 2. Normalize
	events, normFlags := e.normalizer.Normalize(req.Rows)
	flags = append(flags, normFlags...)

	if !in.AsOf.Valid() {
		in.AsOf = latestDate(events)
		flag(model.StageLease, model.SeverityWarning, "",
			"as-of date not supplied; lease status measured at the latest recorded event (%s)", in.AsOf)
	}

	if len(events) == 0 {
		in.Flags = flags
		reason := "no land record events supplied"
		if len(req.Rows) > 0 {
			reason = "no land record event could be parsed"
		}
		return e.finish(req, e.assembler.Placeholder(in, reason))
	}

	// 3. Keep the events touching the tract
	var tractEvents []model.LandRecordEvent
	for _, ev := range events {
		c := legal.Compare(tract, legal.Parse(ev.LegalDescription))
		if c.Result == legal.NoMatch {
			continue
		}
		if c.Note != "" {
			flag(model.StageLegal, model.SeverityInfo, ev.Ref(), "%s", c.Note)
		}
		if c.Result == legal.EventCoversSubsetOfTract && conveys(ev.Instrument) {
			flag(model.StageLegal, model.SeverityWarning, ev.Ref(),
				"%s covers only part of the tract; treated as tract-wide; requires manual verification", ev.Instrument.Label())
		}
		tractEvents = append(tractEvents, ev)
	}
	if len(tractEvents) == 0 {
		in.Flags = flags
		return e.finish(req, e.assembler.Placeholder(in, "no land record events match the tract"))
	}

	// 4. Ownership
	led := ledger.Replay(tractEvents, ledger.OptionsFrom(e.cfg, e.matcher))
	flags = append(flags, led.Flags...)

	// 5. Leasehold per owner
	ctx := lease.NewContext(tractEvents, led.PendingContracts(), in.AsOf, req.Overrides, e.cfg.ProductionKeywords)
	flags = append(flags, unusedOverrides(req.Overrides, ctx.Leases)...)
	for _, entry := range led.Active() {
		in.Owners = append(in.Owners, report.Owner{
			Entry: entry,
			Lease: e.resolver.Resolve(entry, ctx),
		})
	}

	// 6. Report
	in.Wells = lease.Wells(tractEvents)
	in.Flags = flags
	return e.finish(req, e.assembler.Assemble(in))
}

// tractAcres derives gross acreage once per run. When no rule applies the figure is
// either left unresolved or, if configured, estimated and labelled as such.
func (e *Engine) tractAcres(tract legal.Description, flag func(model.Stage, model.Severity, string, string, ...any)) (model.Acres, model.AcreageBasis) {
	if acres, ok := tract.Acres(); ok {
		return model.AcresOf(acres), model.AcreageComputed
	}
	flag(model.StageLegal, model.SeverityWarning, "", "gross acreage requires manual verification")
	if e.cfg.EstimateUnresolvedAcreage && e.cfg.EstimatedAcres > 0 {
		est := decimal.NewFromFloat(e.cfg.EstimatedAcres)
		flag(model.StageLegal, model.SeverityWarning, "",
			"gross acreage estimated at %s acres; estimate only, not authoritative", est.String())
		return model.AcresOf(est), model.AcreageEstimated
	}
	return model.Acres{}, model.AcreageUnresolved
}

func (e *Engine) finish(req Request, r *model.Report) *model.Report {
	r.RunID = e.runID(req)
	return r
}

// runID is a name-based UUID over the request and configuration, so identical
// input always yields the same ID.
func (e *Engine) runID(req Request) string {
	data, err := json.Marshal(struct {
		Request Request
		Config  model.EngineConfig
	}{req, e.cfg})
	if err != nil {
		return uuid.Nil.String()
	}
	return uuid.NewSHA1(runNamespace, data).String()
}

func conveys(t model.InstrumentType) bool {
	return t == model.InstrumentPatent || t.IsDeedLike() || t == model.InstrumentProbateDistribution
}

func latestDate(events []model.LandRecordEvent) model.RecordDate {
	var latest model.RecordDate
	for _, ev := range events {
		d := ev.EffectiveDate()
		if d.Valid() && (!latest.Valid() || latest.Before(d)) {
			latest = d
		}
	}
	return latest
}

func unusedOverrides(overrides map[string]model.LeaseOverride, leases []model.LandRecordEvent) []model.Flag {
	var flags []model.Flag
	refs := make(map[string]bool, len(leases))
	for _, l := range leases {
		refs[l.Ref()] = true
	}
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		if !refs[key] {
			flags = append(flags, model.Flag{
				Stage:    model.StageLease,
				Severity: model.SeverityWarning,
				Document: key,
				Note:     "lease override matches no lease of record on this tract; ignored",
			})
		}
	}
	return flags
}
