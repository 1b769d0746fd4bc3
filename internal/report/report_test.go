package report

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/landchain/internal/lease"
	"github.com/ppiankov/landchain/internal/ledger"
	"github.com/ppiankov/landchain/internal/legal"
	"github.com/ppiankov/landchain/internal/model"
)

func rats(pairs ...int64) []*big.Rat {
	var out []*big.Rat
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, big.NewRat(pairs[i], pairs[i+1]))
	}
	return out
}

func TestAllocate_Thirds(t *testing.T) {
	alloc := Allocate(rats(1, 3, 1, 3, 1, 3), 1e-6)

	want := []string{"33.33333334", "33.33333333", "33.33333333"}
	for i, p := range alloc.Percents {
		if p != want[i] {
			t.Errorf("percent %d: expected %s, got %s", i, want[i], p)
		}
	}
	if alloc.Total != "100.00000000" || !alloc.Balanced {
		t.Errorf("expected balanced 100.00000000, got %s", alloc.Total)
	}
	if alloc.Adjusted {
		t.Error("exact fractions must not be reported as adjusted")
	}
}

func TestAllocate_LargestRemainderGetsUnit(t *testing.T) {
	// 1/7 = 14.285714285..., 2/7 = 28.571428571..., 4/7 = 57.142857142...
	alloc := Allocate(rats(1, 7, 2, 7, 4, 7), 1e-6)
	want := []string{"14.28571429", "28.57142857", "57.14285714"}
	for i, p := range alloc.Percents {
		if p != want[i] {
			t.Errorf("percent %d: expected %s, got %s", i, want[i], p)
		}
	}
	if alloc.Total != "100.00000000" {
		t.Errorf("expected total 100.00000000, got %s", alloc.Total)
	}
}

func TestAllocate_WithinToleranceNormalized(t *testing.T) {
	f := []*big.Rat{big.NewRat(3333333, 10000000), big.NewRat(3333333, 10000000), big.NewRat(3333333, 10000000)}
	alloc := Allocate(f, 1e-6)
	if !alloc.Balanced || !alloc.Adjusted {
		t.Errorf("expected normalized balanced allocation, got %+v", alloc)
	}
}

func TestAllocate_Discrepancy(t *testing.T) {
	alloc := Allocate(rats(1, 2, 1, 4), 1e-6)
	if alloc.Balanced {
		t.Error("expected unbalanced allocation")
	}
	if alloc.Total != "75.00000000" {
		t.Errorf("expected 75.00000000, got %s", alloc.Total)
	}
}

func TestAllocate_Empty(t *testing.T) {
	alloc := Allocate(nil, 1e-6)
	if alloc.Balanced || alloc.Total != "0.00000000" {
		t.Errorf("expected empty unbalanced allocation, got %+v", alloc)
	}
}

func entry(name string, num, den int64) ledger.Entry {
	return ledger.Entry{Owner: name, Fraction: big.NewRat(num, den), Active: true}
}

func tractInput(desc string) Input {
	tract := legal.Parse(desc)
	acres, _ := tract.Acres()
	return Input{
		Prospect:         "Test",
		LegalDescription: desc,
		Tract:            tract,
		AsOf:             model.NewDate(2025, 1, 1),
		TotalAcres:       model.AcresOf(acres),
		AcreageBasis:     model.AcreageComputed,
	}
}

func TestAssemble_NetAcresAndPercents(t *testing.T) {
	in := tractInput("NE 1/4")
	in.Owners = []Owner{
		{Entry: entry("Alice Roe", 1, 2), Lease: lease.Result{Status: model.StatusCurrentlyLeased}},
		{Entry: entry("Bob Roe", 1, 2), Lease: lease.Result{Status: model.StatusOpen}},
	}
	r := New(model.DefaultConfig().Engine, nil).Assemble(in)

	if len(r.Owners) != 2 {
		t.Fatalf("expected 2 owners, got %d", len(r.Owners))
	}
	for _, o := range r.Owners {
		if o.InterestPercent != "50.00000000" {
			t.Errorf("%s: expected 50.00000000, got %s", o.Name, o.InterestPercent)
		}
		if o.NetAcres.String() != "80" {
			t.Errorf("%s: expected 80 net acres, got %s", o.Name, o.NetAcres)
		}
		if o.NetAcresProvisional {
			t.Errorf("%s: computed acreage must not be provisional", o.Name)
		}
	}
	if r.TotalInterestPercent != "100.00000000" {
		t.Errorf("expected total 100.00000000, got %s", r.TotalInterestPercent)
	}
	if r.Owners[0].LeaseholdStatus != model.StatusCurrentlyLeased {
		t.Errorf("expected Alice currently leased, got %s", r.Owners[0].LeaseholdStatus)
	}
}

func TestAssemble_UnresolvedAcreage(t *testing.T) {
	in := tractInput("Lot 3")
	in.TotalAcres = model.Acres{}
	in.AcreageBasis = model.AcreageUnresolved
	in.Owners = []Owner{{Entry: entry("Jane Doe", 1, 1), Lease: lease.Result{Status: model.StatusOpen}}}

	r := New(model.DefaultConfig().Engine, nil).Assemble(in)
	o := r.Owners[0]
	if o.NetAcres.Resolved || !o.NetAcresProvisional {
		t.Errorf("expected unresolved provisional net acres, got %+v", o)
	}
	if o.NetAcres.String() != "unresolved" {
		t.Errorf("expected \"unresolved\", got %s", o.NetAcres)
	}
}

func TestAssemble_DiscrepancyFlag(t *testing.T) {
	in := tractInput("NE4")
	in.Owners = []Owner{{Entry: entry("Jane Doe", 3, 4), Lease: lease.Result{Status: model.StatusOpen}}}

	r := New(model.DefaultConfig().Engine, nil).Assemble(in)
	found := false
	for _, f := range r.Flags {
		if f.Stage == model.StageReport && strings.Contains(f.Note, "not 100%") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discrepancy flag, got %v", r.Flags)
	}
	if r.TotalInterestPercent != "75.00000000" {
		t.Errorf("expected 75.00000000, got %s", r.TotalInterestPercent)
	}
}

func TestAssemble_ReviewFlagsFollowOwner(t *testing.T) {
	in := tractInput("NE4")
	in.Owners = []Owner{
		{Entry: entry("Alice Roe", 1, 2), Lease: lease.Result{
			Status: model.StatusOpen,
			Flags:  []model.Flag{{Stage: model.StageLease, Owner: "Alice Roe", Note: "lease note"}},
		}},
		{Entry: entry("Bob Roe", 1, 2), Lease: lease.Result{Status: model.StatusOpen}},
	}
	in.Flags = []model.Flag{
		{Stage: model.StageLedger, Owner: "Bob Roe", Document: "Doc 7", Note: "chain note"},
		{Stage: model.StageNormalize, Document: "Doc 1", Note: "top level only"},
	}

	r := New(model.DefaultConfig().Engine, nil).Assemble(in)
	if got := r.Owners[0].ReviewFlags; len(got) != 1 || got[0] != "lease note" {
		t.Errorf("unexpected Alice flags %q", got)
	}
	if got := r.Owners[1].ReviewFlags; len(got) != 1 || got[0] != "chain note [Doc 7]" {
		t.Errorf("unexpected Bob flags %q", got)
	}
	if len(r.Flags) != 3 {
		t.Errorf("expected all 3 flags at top level, got %d", len(r.Flags))
	}
}

func TestAssemble_BoundaryPughApportionment(t *testing.T) {
	in := tractInput("NE4 of Section 12-150-95")
	in.Owners = []Owner{{
		Entry: entry("John Roe", 1, 2),
		Lease: lease.Result{
			Status:   model.StatusExpiredPotentialHBP,
			Override: &model.LeaseOverride{BoundaryPugh: true, RetainedDescription: "NE4NE4"},
		},
	}}

	r := New(model.DefaultConfig().Engine, nil).Assemble(in)
	ap := r.Owners[0].Apportionment
	if ap == nil {
		t.Fatal("expected apportionment")
	}
	if !ap.HeldNetAcres.Value.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 20 held net acres, got %s", ap.HeldNetAcres)
	}
	if !ap.OpenNetAcres.Value.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected 60 open net acres, got %s", ap.OpenNetAcres)
	}
}

func TestAssemble_BoundaryPughIgnoredWhenNotHeld(t *testing.T) {
	in := tractInput("NE4")
	in.Owners = []Owner{{
		Entry: entry("John Roe", 1, 1),
		Lease: lease.Result{
			Status:   model.StatusExpired,
			Override: &model.LeaseOverride{BoundaryPugh: true, RetainedDescription: "NE4NE4"},
		},
	}}
	r := New(model.DefaultConfig().Engine, nil).Assemble(in)
	if r.Owners[0].Apportionment != nil {
		t.Error("expected no apportionment for an expired lease")
	}
}

func TestPlaceholder(t *testing.T) {
	in := tractInput("NE4")
	r := New(model.DefaultConfig().Engine, nil).Placeholder(in, "no land record events supplied")

	if len(r.Owners) != 1 {
		t.Fatalf("expected a single placeholder row, got %d", len(r.Owners))
	}
	o := r.Owners[0]
	if o.Name != "Unknown Owner - Requires Additional Research" {
		t.Errorf("unexpected placeholder name %q", o.Name)
	}
	if o.InterestPercent != "100.00000000" || r.TotalInterestPercent != "100.00000000" {
		t.Errorf("expected 100%%, got %s / %s", o.InterestPercent, r.TotalInterestPercent)
	}
	if len(r.Flags) != 1 || r.Flags[0].Severity != model.SeverityCritical {
		t.Errorf("expected one critical flag, got %v", r.Flags)
	}
	if r.LimitationsAndExceptions == "" {
		t.Error("expected limitations text")
	}
}
