// Package lease finds each owner's lease of record and classifies the owner's
// leasehold status as open, currently leased, expired, or expired with a possible
// hold by production.
package lease

import (
	"fmt"
	"strings"

	"github.com/ppiankov/landchain/internal/ledger"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/names"
)

// NoteContractCoLessor is appended for owners who sold under a contract for deed
// that no later deed completed.
const NoteContractCoLessor = "possible co-lessor under unresolved contract for deed"

// Context is the tract-wide input shared by every owner's resolution
type Context struct {
	Leases    []model.LandRecordEvent
	Releases  []model.LandRecordEvent
	Contracts []ledger.Contract // pending contracts for deed
	AsOf      model.RecordDate
	Overrides map[string]model.LeaseOverride

	production string // evidence text, empty when none
}

// NewContext splits the tract's events into leases and releases and scans them once
// for production evidence.
func NewContext(events []model.LandRecordEvent, pending []ledger.Contract, asOf model.RecordDate,
	overrides map[string]model.LeaseOverride, keywords []string) *Context {
	c := &Context{
		Contracts: pending,
		AsOf:      asOf,
		Overrides: overrides,
	}
	for _, ev := range events {
		switch ev.Instrument {
		case model.InstrumentLease:
			c.Leases = append(c.Leases, ev)
		case model.InstrumentLeaseRelease:
			c.Releases = append(c.Releases, ev)
		}
	}
	c.production, _ = ProductionSignal(events, keywords)
	return c
}

// Result is one owner's leasehold outcome
type Result struct {
	Status   model.LeaseholdStatus
	Lease    *model.LeaseRecord
	Override *model.LeaseOverride // reviewer override applied to the lease, if any
	Flags    []model.Flag         // all carry the owner's name
}

// Resolver classifies owners' leasehold status
type Resolver struct {
	matcher     names.Matcher
	defaultTerm int
}

// New creates a resolver. The default primary term comes from configuration
// because it is jurisdiction-specific.
func New(cfg model.EngineConfig, m names.Matcher) *Resolver {
	if m == nil {
		m = names.NewSubstringMatcher()
	}
	term := cfg.DefaultLeaseTermYears
	if term <= 0 {
		term = 3
	}
	return &Resolver{matcher: m, defaultTerm: term}
}

// candidate is a name whose leases can bind the owner, and the date after which
// that name's leases stop counting.
type candidate struct {
	name  string
	until model.RecordDate // zero means no cutoff
}

func (r *Resolver) candidates(owner ledger.Entry, ctx *Context) []candidate {
	cands := []candidate{{name: owner.Owner}}
	for _, p := range owner.Predecessors {
		cands = append(cands, candidate{name: p.Name, until: p.Until})
	}
	for _, c := range ctx.Contracts {
		if r.soldUnderContract(owner, c) {
			cands = append(cands, candidate{name: c.Vendee})
		}
	}
	return cands
}

// soldUnderContract reports whether the owner (or the owner's predecessor) is a vendor
// on the pending contract.
func (r *Resolver) soldUnderContract(owner ledger.Entry, c ledger.Contract) bool {
	if names.MatchAny(r.matcher, owner.Owner, c.Vendors) {
		return true
	}
	for _, p := range owner.Predecessors {
		if names.MatchAny(r.matcher, p.Name, c.Vendors) && c.Date.Before(p.Until) {
			return true
		}
	}
	return false
}

func (r *Resolver) binds(lease model.LandRecordEvent, cands []candidate) bool {
	for _, lessor := range lease.GrantorNames() {
		for _, c := range cands {
			if !r.matcher.Match(c.name, lessor) {
				continue
			}
			if c.until.Valid() && !lease.EffectiveDate().Before(c.until) {
				continue
			}
			return true
		}
	}
	return false
}

// Resolve finds the owner's most recent lease of record and classifies it
func (r *Resolver) Resolve(owner ledger.Entry, ctx *Context) Result {
	res := Result{Status: model.StatusOpen}
	flag := func(sev model.Severity, doc, format string, args ...any) {
		res.Flags = append(res.Flags, model.Flag{
			Stage:    model.StageLease,
			Severity: sev,
			Owner:    owner.Owner,
			Document: doc,
			Note:     fmt.Sprintf(format, args...),
		})
	}

	for _, c := range ctx.Contracts {
		if r.soldUnderContract(owner, c) {
			flag(model.SeverityWarning, c.Document, "%s (vendee: %s)", NoteContractCoLessor, c.Vendee)
		}
	}

	cands := r.candidates(owner, ctx)
	var chosen *model.LandRecordEvent
	for i := range ctx.Leases {
		l := &ctx.Leases[i]
		if !r.binds(*l, cands) {
			continue
		}
		// Leases arrive sorted with undated ones last; an undated lease only wins
		// when no dated lease matched.
		if chosen != nil && chosen.EffectiveDate().Valid() && !l.EffectiveDate().Valid() {
			continue
		}
		chosen = l
	}
	if chosen == nil {
		return res
	}

	rec := r.record(*chosen, flag)
	res.Lease = rec

	if ov, ok := ctx.Overrides[chosen.Ref()]; ok {
		res.Override = &ov
	}

	if rel, ok := r.release(*chosen, ctx.Releases, flag); ok {
		rec.Released = true
		rec.ReleaseReference = rel.Ref()
		res.Status = model.StatusOpen
		return res
	}

	switch {
	case !rec.Expiration.Valid():
		flag(model.SeverityCritical, rec.DocumentReference,
			"lease date unresolvable; treated as currently leased; requires manual verification")
		res.Status = model.StatusCurrentlyLeased
	case ctx.AsOf.Before(rec.Expiration):
		res.Status = model.StatusCurrentlyLeased
	default:
		res.Status = r.pastTerm(rec, res.Override, ctx, flag)
	}

	r.applyOverrideNotes(res.Override, res.Status, rec, flag)
	return res
}

// pastTerm classifies a lease whose primary term has run
func (r *Resolver) pastTerm(rec *model.LeaseRecord, ov *model.LeaseOverride, ctx *Context, flag func(model.Severity, string, string, ...any)) model.LeaseholdStatus {
	if ov != nil && ov.ProductionPresent != nil {
		if *ov.ProductionPresent {
			rec.RequiresProduction = true
			flag(model.SeverityWarning, rec.DocumentReference,
				"primary term expired; reviewer reports production; held by production")
			return model.StatusExpiredPotentialHBP
		}
		return model.StatusExpired
	}
	if ctx.production != "" {
		rec.RequiresProduction = true
		flag(model.SeverityWarning, rec.DocumentReference,
			"primary term expired but production signal found (%s); lease may be held by production; requires production verification",
			ctx.production)
		return model.StatusExpiredPotentialHBP
	}
	return model.StatusExpired
}

func (r *Resolver) applyOverrideNotes(ov *model.LeaseOverride, status model.LeaseholdStatus, rec *model.LeaseRecord, flag func(model.Severity, string, string, ...any)) {
	if ov == nil {
		return
	}
	held := status == model.StatusCurrentlyLeased || status == model.StatusExpiredPotentialHBP
	if ov.TopLease {
		flag(model.SeverityInfo, rec.DocumentReference, "top lease reported by reviewer; takes effect only if the prior lease terminates")
	}
	if ov.DepthPugh && held {
		flag(model.SeverityWarning, rec.DocumentReference, "depth Pugh clause: lease may be held only as to producing depths; requires manual verification")
	}
	if ov.BoundaryPugh && held && strings.TrimSpace(ov.RetainedDescription) == "" {
		flag(model.SeverityWarning, rec.DocumentReference, "boundary Pugh clause reported without retained lands; apportionment requires manual verification")
	}
}

// record builds the lease of record, computing term and expiration
func (r *Resolver) record(ev model.LandRecordEvent, flag func(model.Severity, string, string, ...any)) *model.LeaseRecord {
	rec := &model.LeaseRecord{
		Lessors:           ev.GrantorNames(),
		Lessees:           ev.GranteeNames(),
		DatedDate:         ev.DatedDate,
		RecordedDate:      ev.RecordedDate,
		DocumentReference: ev.Ref(),
		CoveredLands:      ev.LegalDescription,
	}

	years, ok := ParseTerm(ev.Term)
	if !ok {
		years, ok = ParseTerm(ev.Comments)
	}
	if ok {
		rec.TermYears = years
		rec.TermStated = true
		rec.TermDescription = fmt.Sprintf("%d years (stated)", years)
	} else {
		rec.TermYears = r.defaultTerm
		rec.TermDescription = fmt.Sprintf("%d years (default; term not stated)", r.defaultTerm)
		flag(model.SeverityWarning, rec.DocumentReference,
			"lease term not stated; default %d-year primary term applied; requires manual verification", r.defaultTerm)
	}

	start := ev.DatedDate
	if !start.Valid() && ev.RecordedDate.Valid() {
		start = ev.RecordedDate
		flag(model.SeverityInfo, rec.DocumentReference, "lease dated date missing; term measured from recorded date")
	}
	switch {
	case start.Valid() && start.YearOnly:
		flag(model.SeverityInfo, rec.DocumentReference, "lease dated by year only; expiration approximate")
	case start.Valid() && start.MonthOnly:
		flag(model.SeverityInfo, rec.DocumentReference, "lease dated by month only; expiration approximate")
	}
	rec.Expiration = start.AddYears(rec.TermYears)
	return rec
}

// release finds a release recorded on or after the lease that either names one of
// the lease's lessees as releasor or cites the lease's document reference. A
// matching release with no usable date is not applied and gets a flag.
func (r *Resolver) release(lease model.LandRecordEvent, releases []model.LandRecordEvent,
	flag func(model.Severity, string, string, ...any)) (model.LandRecordEvent, bool) {
	leaseDate := lease.EffectiveDate()
	ref := strings.TrimSpace(lease.DocumentReference)

	for _, rel := range releases {
		if !r.releases(lease, ref, rel) {
			continue
		}
		relDate := rel.EffectiveDate()
		if !relDate.Valid() {
			flag(model.SeverityWarning, rel.Ref(),
				"release %s of lease %s has no resolvable date; not applied; requires manual verification",
				rel.Ref(), lease.Ref())
			continue
		}
		if leaseDate.Valid() && relDate.Before(leaseDate) {
			continue
		}
		return rel, true
	}
	return model.LandRecordEvent{}, false
}

func (r *Resolver) releases(lease model.LandRecordEvent, ref string, rel model.LandRecordEvent) bool {
	for _, releasor := range rel.GrantorNames() {
		if names.MatchAny(r.matcher, releasor, lease.GranteeNames()) {
			return true
		}
	}
	return ref != "" && (strings.Contains(rel.Comments, ref) || strings.Contains(rel.LegalDescription, ref))
}
