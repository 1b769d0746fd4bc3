// Package report merges the ownership ledger and per-owner lease status into the
// owner-by-owner report handed back to the caller.
package report

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/landchain/internal/lease"
	"github.com/ppiankov/landchain/internal/ledger"
	"github.com/ppiankov/landchain/internal/legal"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/names"
)

// Owner is one active ledger entry with its resolved leasehold
type Owner struct {
	Entry ledger.Entry
	Lease lease.Result
}

// Input is everything the assembler needs for one tract
type Input struct {
	Prospect         string
	LegalDescription string
	Tract            legal.Description
	AsOf             model.RecordDate
	TotalAcres       model.Acres
	AcreageBasis     model.AcreageBasis
	Owners           []Owner
	Wells            []string
	Flags            []model.Flag // flags from earlier stages, in stage order
}

// Assembler builds reports
type Assembler struct {
	matcher         names.Matcher
	tolerance       float64
	placeholderName string
	limitations     string
}

// New creates an assembler
func New(cfg model.EngineConfig, m names.Matcher) *Assembler {
	if m == nil {
		m = names.NewSubstringMatcher()
	}
	limitations := cfg.Limitations
	if limitations == "" {
		limitations = model.DefaultLimitations
	}
	placeholder := cfg.ResearchPlaceholderName
	if placeholder == "" {
		placeholder = "Unknown Owner - Requires Additional Research"
	}
	return &Assembler{
		matcher:         m,
		tolerance:       cfg.SumTolerance,
		placeholderName: placeholder,
		limitations:     limitations,
	}
}

// Assemble builds the report. It never fails: every problem it finds is added to
// the report's flags.
func (a *Assembler) Assemble(in Input) *model.Report {
	r := a.base(in)
	flags := append([]model.Flag(nil), in.Flags...)
	for _, o := range in.Owners {
		flags = append(flags, o.Lease.Flags...)
	}
	flag := func(sev model.Severity, owner, format string, args ...any) {
		flags = append(flags, model.Flag{
			Stage:    model.StageReport,
			Severity: sev,
			Owner:    owner,
			Note:     fmt.Sprintf(format, args...),
		})
	}

	// 1. Percentages
	fractions := make([]*big.Rat, len(in.Owners))
	for i, o := range in.Owners {
		fractions[i] = o.Entry.Fraction
	}
	alloc := Allocate(fractions, a.tolerance)
	r.TotalInterestPercent = alloc.Total
	if alloc.Adjusted {
		flag(model.SeverityInfo, "", "active interests were within tolerance of 100%%; percentages normalized to total 100%%")
	}
	if !alloc.Balanced {
		flag(model.SeverityCritical, "", "reported interests total %s%%, not 100%%; ownership chain requires manual verification", alloc.Total)
	}

	provisional := in.AcreageBasis != model.AcreageComputed

	// 2. Owner rows
	for i, o := range in.Owners {
		row := model.OwnerReport{
			Name:                o.Entry.Owner,
			InterestPercent:     alloc.Percents[i],
			NetAcresProvisional: provisional,
			LeaseholdStatus:     o.Lease.Status,
			LastLeaseOfRecord:   o.Lease.Lease,
			Qualifiers:          o.Entry.Qualifiers,
		}
		if in.TotalAcres.Resolved {
			row.NetAcres = model.AcresOf(netAcres(in.TotalAcres.Value, o.Entry.Fraction))
		}

		// 3. Boundary Pugh apportionment
		if ap, note := a.apportion(in, o); ap != nil {
			row.Apportionment = ap
		} else if note != "" {
			flag(model.SeverityWarning, o.Entry.Owner, "%s", note)
		}
		r.Owners = append(r.Owners, row)
	}

	// 4. Review notes per owner
	r.Flags = flags
	for i := range r.Owners {
		r.Owners[i].ReviewFlags = a.reviewNotes(r.Owners[i].Name, in.Owners, flags)
	}
	return r
}

// Placeholder builds the near-fatal report returned when no usable events exist.
// It still carries a single owner row so callers always receive a well-formed report.
func (a *Assembler) Placeholder(in Input, reason string) *model.Report {
	r := a.base(in)
	note := fmt.Sprintf("%s; ownership requires additional research", reason)

	r.Flags = append(append([]model.Flag(nil), in.Flags...), model.Flag{
		Stage:    model.StageReport,
		Severity: model.SeverityCritical,
		Owner:    a.placeholderName,
		Note:     note,
	})

	row := model.OwnerReport{
		Name:                a.placeholderName,
		InterestPercent:     formatUnits(wholeUnits),
		NetAcres:            in.TotalAcres,
		NetAcresProvisional: in.AcreageBasis != model.AcreageComputed,
		LeaseholdStatus:     model.StatusOpen,
		ReviewFlags:         []string{note},
	}
	r.Owners = []model.OwnerReport{row}
	r.TotalInterestPercent = row.InterestPercent
	return r
}

func (a *Assembler) base(in Input) *model.Report {
	wells := in.Wells
	if wells == nil {
		wells = []string{}
	}
	return &model.Report{
		Prospect:                 in.Prospect,
		LegalDescription:         in.LegalDescription,
		AsOf:                     in.AsOf,
		TotalAcres:               in.TotalAcres,
		AcreageBasis:             in.AcreageBasis,
		Owners:                   []model.OwnerReport{},
		Wells:                    wells,
		LimitationsAndExceptions: a.limitations,
		Flags:                    []model.Flag{},
	}
}

// apportion splits an owner's net acres between lands the lease still holds and
// open lands, when a reviewer reported a boundary Pugh clause with retained lands.
// A non-empty note explains why no apportionment was possible.
func (a *Assembler) apportion(in Input, o Owner) (*model.Apportionment, string) {
	ov := o.Lease.Override
	if ov == nil || !ov.BoundaryPugh {
		return nil, ""
	}
	held := o.Lease.Status == model.StatusCurrentlyLeased || o.Lease.Status == model.StatusExpiredPotentialHBP
	retained := strings.TrimSpace(ov.RetainedDescription)
	if !held || retained == "" {
		return nil, ""
	}
	if !in.TotalAcres.Resolved {
		return nil, "boundary Pugh apportionment skipped; tract acreage unresolved"
	}

	heldGross, ok := legal.OverlapAcres(in.Tract, legal.Parse(retained))
	if !ok {
		return nil, fmt.Sprintf("retained lands %q could not be measured; boundary Pugh apportionment requires manual verification", retained)
	}
	gross := in.TotalAcres.Value
	heldGross = decimal.Min(heldGross, gross)

	return &model.Apportionment{
		HeldNetAcres: model.AcresOf(netAcres(heldGross, o.Entry.Fraction)),
		OpenNetAcres: model.AcresOf(netAcres(gross.Sub(heldGross), o.Entry.Fraction)),
		Basis: fmt.Sprintf("boundary Pugh: lease retains %s of %s gross acres (%s)",
			heldGross.String(), gross.String(), retained),
	}, ""
}

// reviewNotes collects the notes of every flag about this owner. Flags name owners as
// they appeared on the instrument, so a flag belongs to the owner whose normalized
// name equals it, or failing that to every owner the matcher accepts.
func (a *Assembler) reviewNotes(name string, owners []Owner, flags []model.Flag) []string {
	notes := []string{}
	for _, f := range flags {
		if f.Owner == "" || !a.belongs(name, f.Owner, owners) {
			continue
		}
		note := f.Note
		if f.Document != "" {
			note = fmt.Sprintf("%s [%s]", note, f.Document)
		}
		notes = append(notes, note)
	}
	return notes
}

func (a *Assembler) belongs(owner, flagged string, owners []Owner) bool {
	want := names.Normalize(flagged)
	if names.Normalize(owner) == want {
		return true
	}
	for _, o := range owners {
		if names.Normalize(o.Entry.Owner) == want {
			return false
		}
	}
	return a.matcher.Match(owner, flagged)
}
