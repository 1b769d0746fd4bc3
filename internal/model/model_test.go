package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Engine.DefaultLeaseTermYears != 3 {
		t.Errorf("expected default lease term 3, got %d", cfg.Engine.DefaultLeaseTermYears)
	}
}

func TestConfig_Validate_ReportsFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.DefaultLeaseTermYears = 0
	cfg.LLM.Provider = "carrier-pigeon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "DefaultLeaseTermYears") {
		t.Errorf("expected error to name DefaultLeaseTermYears, got %v", err)
	}
	if !strings.Contains(err.Error(), "Provider") {
		t.Errorf("expected error to name Provider, got %v", err)
	}
}

func TestRecordDate_String(t *testing.T) {
	if got := NewDate(2015, time.January, 10).String(); got != "2015-01-10" {
		t.Errorf("expected 2015-01-10, got %s", got)
	}
	if got := NewYearOnly(1900, time.July, 1).String(); got != "1900" {
		t.Errorf("expected bare year 1900, got %s", got)
	}
	if got := NewMonthOnly(2015, time.March).String(); got != "2015-03" {
		t.Errorf("expected month-only 2015-03, got %s", got)
	}
	if got := NewMonthOnly(2015, time.March).AddYears(3).String(); got != "2018-03" {
		t.Errorf("expected month precision kept across AddYears, got %s", got)
	}
	if got := (RecordDate{}).String(); got != "" {
		t.Errorf("expected empty string for unresolved date, got %q", got)
	}
}

func TestRecordDate_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A RecordDate `json:"a"`
		B RecordDate `json:"b"`
	}{A: NewDate(2018, time.January, 1)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"a":"2018-01-01","b":null}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestCompareDates_UnresolvedLast(t *testing.T) {
	early := NewDate(1900, time.January, 1)
	late := NewDate(1950, time.January, 1)

	if CompareDates(early, late) >= 0 {
		t.Error("expected 1900 before 1950")
	}
	if CompareDates(RecordDate{}, early) <= 0 {
		t.Error("expected unresolved date after resolved date")
	}
	if CompareDates(RecordDate{}, RecordDate{}) != 0 {
		t.Error("expected two unresolved dates to compare equal")
	}
}

func TestRecordDate_AddYears(t *testing.T) {
	exp := NewDate(2015, time.January, 1).AddYears(3)
	if exp.String() != "2018-01-01" {
		t.Errorf("expected 2018-01-01, got %s", exp)
	}
	if (RecordDate{}).AddYears(3).Valid() {
		t.Error("expected unresolved date to stay unresolved")
	}
}

func TestAcres_MarshalJSON(t *testing.T) {
	data, _ := json.Marshal(AcresOf(decimal.NewFromInt(160)))
	if string(data) != "160" {
		t.Errorf("expected 160, got %s", data)
	}

	data, _ = json.Marshal(Acres{})
	if string(data) != `"unresolved"` {
		t.Errorf("expected \"unresolved\", got %s", data)
	}

	third := decimal.NewFromInt(160).DivRound(decimal.NewFromInt(3), 12)
	if got := AcresOf(third).String(); got != "53.33333333" {
		t.Errorf("expected 53.33333333, got %s", got)
	}
}

func TestLandRecordEvent_EffectiveDate(t *testing.T) {
	ev := LandRecordEvent{DatedDate: NewDate(2015, time.January, 1)}
	if ev.EffectiveDate().String() != "2015-01-01" {
		t.Errorf("expected dated date fallback, got %s", ev.EffectiveDate())
	}

	ev.RecordedDate = NewDate(2015, time.January, 10)
	if ev.EffectiveDate().String() != "2015-01-10" {
		t.Errorf("expected recorded date, got %s", ev.EffectiveDate())
	}
}

func TestLandRecordEvent_Ref(t *testing.T) {
	if got := (LandRecordEvent{Index: 4}).Ref(); got != "row 5" {
		t.Errorf("expected positional ref, got %s", got)
	}
	if got := (LandRecordEvent{DocumentReference: "Bk 12 Pg 34"}).Ref(); got != "Bk 12 Pg 34" {
		t.Errorf("expected document reference, got %s", got)
	}
}
