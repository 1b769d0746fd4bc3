// Package ledger replays conveyances in date order to reconstruct current fractional
// mineral ownership. Replay is a pure function: it returns a fresh Ledger and never
// touches shared state, so tracts can be replayed in parallel.
package ledger

import (
	"math/big"
	"slices"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/names"
)

// Source is how an entry's interest was acquired
type Source string

const (
	SourcePatent  Source = "patent"
	SourceDeed    Source = "deed"
	SourceProbate Source = "probate"
	SourceUnknown Source = "unknown"
)

// Predecessor is a prior holder of part of an entry's interest and the date that
// holder divested. Leases a predecessor granted before that date may still bind.
type Predecessor struct {
	Name  string
	Until model.RecordDate
}

// Entry is one owner's interest in the tract
type Entry struct {
	Owner        string
	Fraction     *big.Rat
	Source       Source
	AcquiredOn   model.RecordDate
	Active       bool
	Qualifiers   []model.InterestQualifier
	Predecessors []Predecessor
	Document     string // instrument that created the entry
	Unverified   bool   // acquired from a grantor missing from the chain
	Placeholder  bool   // the unknown-owner seed
}

// Contract is a contract for deed observed in the chain
type Contract struct {
	Vendors    []string
	Vendee     string
	Document   string
	Date       model.RecordDate
	Resolved   bool
	ResolvedBy string
}

// Ledger is the result of a replay
type Ledger struct {
	Entries   []Entry
	Contracts []Contract
	Flags     []model.Flag
	Seeded    bool // no patent was found and the unknown-owner placeholder seeded the chain
}

// Active returns the active entries in creation order
func (l *Ledger) Active() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// ActiveSum totals the active fractions
func (l *Ledger) ActiveSum() *big.Rat {
	sum := new(big.Rat)
	for _, e := range l.Entries {
		if e.Active {
			sum.Add(sum, e.Fraction)
		}
	}
	return sum
}

// PendingContracts returns contracts for deed with no later deed to the vendee
func (l *Ledger) PendingContracts() []Contract {
	var out []Contract
	for _, c := range l.Contracts {
		if !c.Resolved {
			out = append(out, c)
		}
	}
	return out
}

// Options configures a replay
type Options struct {
	Matcher          names.Matcher
	UnknownOwnerName string
	SumTolerance     float64
}

// OptionsFrom builds replay options from engine configuration
func OptionsFrom(cfg model.EngineConfig, m names.Matcher) Options {
	return Options{
		Matcher:          m,
		UnknownOwnerName: cfg.UnknownOwnerName,
		SumTolerance:     cfg.SumTolerance,
	}
}

// Replay applies the events, which must already be sorted and filtered to the tract
func Replay(events []model.LandRecordEvent, opts Options) *Ledger {
	if opts.Matcher == nil {
		opts.Matcher = names.NewSubstringMatcher()
	}
	if opts.UnknownOwnerName == "" {
		opts.UnknownOwnerName = "Unknown Owner"
	}

	r := &replayer{opts: opts, ledger: &Ledger{}}

	hasPatent := slices.ContainsFunc(events, func(e model.LandRecordEvent) bool {
		return e.Instrument == model.InstrumentPatent
	})
	if !hasPatent {
		r.seedPlaceholder()
	}

	for _, ev := range events {
		switch {
		case ev.Instrument == model.InstrumentPatent:
			r.patent(ev)
		case ev.Instrument.IsDeedLike():
			r.deed(ev)
		case ev.Instrument == model.InstrumentProbateDistribution:
			r.probate(ev)
		case ev.Instrument == model.InstrumentContractForDeed:
			r.contract(ev)
		}
		// Leases, releases and unmapped instruments never move ownership.
	}

	r.flagPendingContracts()
	r.checkSum()
	return r.ledger
}
