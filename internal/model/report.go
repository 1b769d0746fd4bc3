package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Report is the complete ownership and lease-status result for one tract.
// It holds no wall-clock data: identical input yields byte-identical output.
type Report struct {
	RunID            string     `json:"run_id"`            // Name-based UUID of the request
	Prospect         string     `json:"prospect"`          // Caller's prospect or tract label
	LegalDescription string     `json:"legal_description"` // Target tract as supplied
	AsOf             RecordDate `json:"as_of"`

	TotalAcres   Acres        `json:"total_acres"`   // Number, or "unresolved"
	AcreageBasis AcreageBasis `json:"acreage_basis"` // computed, estimated, unresolved

	Owners               []OwnerReport `json:"owners"`
	TotalInterestPercent string        `json:"total_interest_percent"`

	Wells                    []string `json:"wells"`
	LimitationsAndExceptions string   `json:"limitations_and_exceptions"`
	Flags                    []Flag   `json:"flags"`
}

// OwnerReport is one current owner's row in the report
type OwnerReport struct {
	Name                string              `json:"name"`
	InterestPercent     string              `json:"interest_percent"` // 8 decimal places
	NetAcres            Acres               `json:"net_acres"`
	NetAcresProvisional bool                `json:"net_acres_provisional,omitempty"` // Tract acreage estimated or unresolved
	LeaseholdStatus     LeaseholdStatus     `json:"leasehold_status"`
	LastLeaseOfRecord   *LeaseRecord        `json:"last_lease_of_record,omitempty"`
	Qualifiers          []InterestQualifier `json:"qualifiers,omitempty"`
	Apportionment       *Apportionment      `json:"apportionment,omitempty"`
	ReviewFlags         []string            `json:"review_flags"`
}

// Apportionment splits an owner's net acres under a boundary Pugh override
type Apportionment struct {
	HeldNetAcres Acres  `json:"held_net_acres"`
	OpenNetAcres Acres  `json:"open_net_acres"`
	Basis        string `json:"basis"`
}

// AcreageBasis explains where the tract acreage came from
type AcreageBasis string

const (
	AcreageComputed   AcreageBasis = "computed"   // Derived from section subdivision rules or stated lot acreage
	AcreageEstimated  AcreageBasis = "estimated"  // Conservative default, not authoritative
	AcreageUnresolved AcreageBasis = "unresolved" // No rule matched
)

// Acres is an acreage figure that may be unresolved
type Acres struct {
	Value    decimal.Decimal
	Resolved bool
}

// AcresOf wraps a resolved figure
func AcresOf(v decimal.Decimal) Acres {
	return Acres{Value: v, Resolved: true}
}

// String renders the figure with up to 8 decimals, or "unresolved"
func (a Acres) String() string {
	if !a.Resolved {
		return "unresolved"
	}
	return a.Value.Round(8).String()
}

// MarshalJSON renders a JSON number, or the string "unresolved"
func (a Acres) MarshalJSON() ([]byte, error) {
	if !a.Resolved {
		return json.Marshal("unresolved")
	}
	return []byte(a.Value.Round(8).String()), nil
}

// Stage names the engine component that raised a flag
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageNormalize  Stage = "normalize"
	StageLegal      Stage = "legal"
	StageLedger     Stage = "ledger"
	StageLease      Stage = "lease"
	StageReport     Stage = "report"
)

// Severity indicates how much attention a flag needs
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Flag is a review item surfaced to the caller. Flags are never suppressed.
type Flag struct {
	Stage    Stage    `json:"stage"`
	Severity Severity `json:"severity"`
	Owner    string   `json:"owner,omitempty"`
	Document string   `json:"doc,omitempty"`
	Note     string   `json:"note"`
}

// Subject returns the owner or document the flag is about
func (f Flag) Subject() string {
	if f.Owner != "" {
		return f.Owner
	}
	return f.Document
}
