package lease

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/landchain/internal/ledger"
	"github.com/ppiankov/landchain/internal/model"
)

func date(y int, m time.Month, d int) model.RecordDate {
	return model.NewDate(y, m, d)
}

func leaseEvent(lessor, lessee string, dated model.RecordDate, term, comments, ref string) model.LandRecordEvent {
	return model.LandRecordEvent{
		Instrument:        model.InstrumentLease,
		Grantors:          []model.Party{{Name: lessor}},
		Grantees:          []model.Party{{Name: lessee}},
		DatedDate:         dated,
		RecordedDate:      dated.AddYears(0),
		Term:              term,
		Comments:          comments,
		DocumentReference: ref,
	}
}

func releaseEvent(releasor string, recorded model.RecordDate, comments, ref string) model.LandRecordEvent {
	return model.LandRecordEvent{
		Instrument:        model.InstrumentLeaseRelease,
		Grantors:          []model.Party{{Name: releasor}},
		RecordedDate:      recorded,
		Comments:          comments,
		DocumentReference: ref,
	}
}

func owner(name string, preds ...ledger.Predecessor) ledger.Entry {
	return ledger.Entry{Owner: name, Active: true, Predecessors: preds}
}

func resolve(t *testing.T, o ledger.Entry, asOf model.RecordDate, events []model.LandRecordEvent, overrides map[string]model.LeaseOverride, pending ...ledger.Contract) Result {
	t.Helper()
	cfg := model.DefaultConfig().Engine
	ctx := NewContext(events, pending, asOf, overrides, cfg.ProductionKeywords)
	return New(cfg, nil).Resolve(o, ctx)
}

func hasNote(flags []model.Flag, substr string) bool {
	for _, f := range flags {
		if strings.Contains(f.Note, substr) {
			return true
		}
	}
	return false
}

func TestResolve_ExpiredByTerm(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2015, time.January, 1), "3 year", "", "Doc 1"),
	}
	res := resolve(t, owner("John Roe"), date(2025, time.January, 1), events, nil)

	if res.Status != model.StatusExpired {
		t.Fatalf("expected expired, got %s", res.Status)
	}
	if res.Lease == nil || res.Lease.Expiration.String() != "2018-01-01" {
		t.Fatalf("expected expiration 2018-01-01, got %+v", res.Lease)
	}
	if !res.Lease.TermStated || res.Lease.TermYears != 3 {
		t.Errorf("expected stated 3-year term, got %+v", res.Lease)
	}
	if len(res.Flags) != 0 {
		t.Errorf("expected no flags, got %v", res.Flags)
	}
}

func TestResolve_CurrentlyLeased(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("Alice Roe", "Acme Oil", date(2020, time.March, 1), "", "five (5) year primary term", "Doc 2"),
	}
	res := resolve(t, owner("Alice Roe"), date(2023, time.January, 1), events, nil)
	if res.Status != model.StatusCurrentlyLeased {
		t.Errorf("expected currently leased, got %s", res.Status)
	}
	if res.Lease.Expiration.String() != "2025-03-01" {
		t.Errorf("expected 2025-03-01 expiration, got %s", res.Lease.Expiration)
	}
}

func TestResolve_NoLeaseIsOpen(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("Alice Roe", "Acme Oil", date(2020, time.March, 1), "5", "", "Doc 2"),
	}
	res := resolve(t, owner("Bob Roe"), date(2023, time.January, 1), events, nil)
	if res.Status != model.StatusOpen || res.Lease != nil {
		t.Errorf("expected open with no lease, got %s %+v", res.Status, res.Lease)
	}
}

func TestResolve_ReleaseWinsOverTermMath(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2022, time.January, 1), "5", "", "Doc 3"),
		releaseEvent("Acme Oil Company", date(2023, time.June, 1), "", "Doc 4"),
	}
	res := resolve(t, owner("John Roe"), date(2024, time.January, 1), events, nil)
	if res.Status != model.StatusOpen {
		t.Fatalf("expected open after release, got %s", res.Status)
	}
	if !res.Lease.Released || res.Lease.ReleaseReference != "Doc 4" {
		t.Errorf("expected release recorded on lease, got %+v", res.Lease)
	}
}

func TestResolve_ReleaseBeforeLeaseIgnored(t *testing.T) {
	events := []model.LandRecordEvent{
		releaseEvent("Acme Oil", date(2019, time.June, 1), "", "Doc 0"),
		leaseEvent("John Roe", "Acme Oil", date(2022, time.January, 1), "5", "", "Doc 3"),
	}
	res := resolve(t, owner("John Roe"), date(2024, time.January, 1), events, nil)
	if res.Status != model.StatusCurrentlyLeased {
		t.Errorf("expected earlier release ignored, got %s", res.Status)
	}
}

func TestResolve_ReleaseByDocumentReference(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2022, time.January, 1), "5", "", "Bk 88 Pg 12"),
		releaseEvent("Successor Energy LLC", date(2023, time.June, 1), "releases lease at Bk 88 Pg 12", "Doc 9"),
	}
	res := resolve(t, owner("John Roe"), date(2024, time.January, 1), events, nil)
	if res.Status != model.StatusOpen {
		t.Errorf("expected release matched by reference, got %s", res.Status)
	}
}

func TestResolve_UndatedReleaseFlagged(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2022, time.January, 1), "5", "", "Doc 3"),
		releaseEvent("Acme Oil", model.RecordDate{}, "", "Doc 7"),
	}
	res := resolve(t, owner("John Roe"), date(2024, time.January, 1), events, nil)
	if res.Status != model.StatusCurrentlyLeased {
		t.Errorf("expected undated release not applied, got %s", res.Status)
	}
	if res.Lease.Released {
		t.Errorf("expected lease not marked released, got %+v", res.Lease)
	}
	var found *model.Flag
	for i := range res.Flags {
		if strings.Contains(res.Flags[i].Note, "no resolvable date") {
			found = &res.Flags[i]
		}
	}
	if found == nil {
		t.Fatalf("expected flag naming the undated release, got %v", res.Flags)
	}
	if found.Document != "Doc 7" || found.Severity != model.SeverityWarning || found.Owner != "John Roe" {
		t.Errorf("expected warning on Doc 7 for John Roe, got %+v", *found)
	}
}

func TestResolve_UnrelatedUndatedReleaseSilent(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2022, time.January, 1), "5", "", "Doc 3"),
		releaseEvent("Other Energy", model.RecordDate{}, "", "Doc 8"),
	}
	res := resolve(t, owner("John Roe"), date(2024, time.January, 1), events, nil)
	if hasNote(res.Flags, "no resolvable date") {
		t.Errorf("expected no flag for a release of another lease, got %v", res.Flags)
	}
}

func TestResolve_MonthOnlyDate(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", model.NewMonthOnly(2015, time.March), "3", "", "Doc 1"),
	}
	res := resolve(t, owner("John Roe"), date(2025, time.January, 1), events, nil)
	if res.Lease == nil || res.Lease.Expiration.String() != "2018-03" {
		t.Fatalf("expected month-precision expiration 2018-03, got %+v", res.Lease)
	}
	if !hasNote(res.Flags, "dated by month only") {
		t.Errorf("expected approximate expiration note, got %v", res.Flags)
	}
}

func TestResolve_PotentialHBP(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2015, time.January, 1), "3", "", "Doc 1"),
		{Instrument: model.InstrumentOther, RawType: "Affidavit", Comments: "Roe 1-12H producing well", DocumentReference: "Doc 5"},
	}
	res := resolve(t, owner("John Roe"), date(2025, time.January, 1), events, nil)
	if res.Status != model.StatusExpiredPotentialHBP {
		t.Fatalf("expected potential HBP, got %s", res.Status)
	}
	if !res.Lease.RequiresProduction {
		t.Error("expected lease to require production verification")
	}
	if !hasNote(res.Flags, "requires production verification") {
		t.Errorf("expected production flag, got %v", res.Flags)
	}
}

func TestResolve_ProductionOverride(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2015, time.January, 1), "3", "producing well on lease", "Doc 1"),
	}
	no := false
	res := resolve(t, owner("John Roe"), date(2025, time.January, 1), events,
		map[string]model.LeaseOverride{"Doc 1": {ProductionPresent: &no}})
	if res.Status != model.StatusExpired {
		t.Errorf("expected override to suppress HBP, got %s", res.Status)
	}

	yes := true
	quiet := []model.LandRecordEvent{leaseEvent("John Roe", "Acme Oil", date(2015, time.January, 1), "3", "", "Doc 1")}
	res = resolve(t, owner("John Roe"), date(2025, time.January, 1), quiet,
		map[string]model.LeaseOverride{"Doc 1": {ProductionPresent: &yes, DepthPugh: true}})
	if res.Status != model.StatusExpiredPotentialHBP {
		t.Errorf("expected override to force HBP, got %s", res.Status)
	}
	if !hasNote(res.Flags, "depth Pugh") {
		t.Errorf("expected depth Pugh note, got %v", res.Flags)
	}
}

func TestResolve_DefaultTermFlagged(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2021, time.January, 1), "", "", "Doc 1"),
	}
	res := resolve(t, owner("John Roe"), date(2023, time.January, 1), events, nil)
	if res.Lease.TermYears != 3 || res.Lease.TermStated {
		t.Errorf("expected default 3-year term, got %+v", res.Lease)
	}
	if res.Status != model.StatusCurrentlyLeased {
		t.Errorf("expected currently leased under default term, got %s", res.Status)
	}
	if !hasNote(res.Flags, "lease term not stated") {
		t.Errorf("expected default term flag, got %v", res.Flags)
	}
}

func TestResolve_MostRecentLeaseWins(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("John Roe", "Acme Oil", date(2010, time.January, 1), "3", "", "Old"),
		leaseEvent("John Q. Roe", "Beta Oil", date(2020, time.January, 1), "5", "", "New"),
	}
	res := resolve(t, owner("John Roe"), date(2022, time.January, 1), events, nil)
	if res.Lease == nil || res.Lease.DocumentReference != "New" {
		t.Fatalf("expected newest lease, got %+v", res.Lease)
	}
}

func TestResolve_PredecessorCutoff(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("Jane Doe", "Acme Oil", date(2014, time.January, 1), "3", "", "Before sale"),
		leaseEvent("Jane Doe", "Beta Oil", date(2019, time.January, 1), "3", "", "After sale"),
	}
	o := owner("John Roe", ledger.Predecessor{Name: "Jane Doe", Until: date(2016, time.January, 1)})
	res := resolve(t, o, date(2020, time.January, 1), events, nil)
	if res.Lease == nil || res.Lease.DocumentReference != "Before sale" {
		t.Fatalf("expected only the predecessor's pre-sale lease to bind, got %+v", res.Lease)
	}
	if res.Status != model.StatusExpired {
		t.Errorf("expected expired, got %s", res.Status)
	}
}

func TestResolve_ContractForDeedNote(t *testing.T) {
	events := []model.LandRecordEvent{
		leaseEvent("Carl Buyer", "Acme Oil", date(2021, time.January, 1), "3", "", "Vendee lease"),
	}
	pending := ledger.Contract{Vendors: []string{"Jane Doe"}, Vendee: "Carl Buyer", Document: "CFD 1", Date: date(2020, time.January, 1)}
	res := resolve(t, owner("Jane Doe"), date(2022, time.January, 1), events, nil, pending)

	if !hasNote(res.Flags, NoteContractCoLessor) {
		t.Errorf("expected co-lessor note, got %v", res.Flags)
	}
	if res.Status != model.StatusCurrentlyLeased {
		t.Errorf("expected vendee lease to count, got %s", res.Status)
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3", 3, true},
		{"3 year", 3, true},
		{"5 years", 5, true},
		{"Three years", 3, true},
		{"five (5) year primary term", 5, true},
		{"10-yr", 10, true},
		{"36 months", 3, true},
		{"paid up lease", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTerm(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTerm(%q): expected %d/%v, got %d/%v", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestWells(t *testing.T) {
	events := []model.LandRecordEvent{
		{Wells: []string{"Roe 1-12H"}},
		{Comments: "Roe 1-12H; Doe 2-12H well spud 2014. Bonus paid as well."},
	}
	wells := Wells(events)
	if len(wells) != 2 || wells[0] != "Roe 1-12H" || wells[1] != "Doe 2-12H well spud 2014" {
		t.Errorf("unexpected wells %q", wells)
	}
}

func TestProductionSignal_IgnoresAsWell(t *testing.T) {
	events := []model.LandRecordEvent{{Comments: "bonus and rentals as well"}}
	if _, ok := ProductionSignal(events, model.DefaultConfig().Engine.ProductionKeywords); ok {
		t.Error("expected no production signal for \"as well\"")
	}

	events = []model.LandRecordEvent{{RawType: "Division Order"}}
	if _, ok := ProductionSignal(events, model.DefaultConfig().Engine.ProductionKeywords); !ok {
		t.Error("expected division order to signal production")
	}
}
