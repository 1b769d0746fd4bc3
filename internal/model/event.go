package model

import (
	"math/big"
	"strconv"
	"strings"
)

// RawRow is one runsheet row as delivered by the extraction step: column name to cell text.
type RawRow map[string]string

// InstrumentType is the canonical kind of a recorded instrument
type InstrumentType string

const (
	InstrumentPatent              InstrumentType = "patent"
	InstrumentWarrantyDeed        InstrumentType = "warranty_deed"
	InstrumentQuitClaimDeed       InstrumentType = "quit_claim_deed"
	InstrumentContractForDeed     InstrumentType = "contract_for_deed"
	InstrumentProbateDistribution InstrumentType = "probate_distribution"
	InstrumentMineralDeed         InstrumentType = "mineral_deed"
	InstrumentLease               InstrumentType = "lease"
	InstrumentLeaseRelease        InstrumentType = "lease_release"
	InstrumentTaxDeed             InstrumentType = "tax_deed"
	InstrumentCorrectionDeed      InstrumentType = "correction_deed"
	InstrumentOther               InstrumentType = "other"
)

// IsDeedLike reports whether the instrument moves a grantor's interest outright.
func (t InstrumentType) IsDeedLike() bool {
	switch t {
	case InstrumentWarrantyDeed, InstrumentQuitClaimDeed, InstrumentTaxDeed,
		InstrumentCorrectionDeed, InstrumentMineralDeed:
		return true
	default:
		return false
	}
}

// Label returns a short human-readable name for reports
func (t InstrumentType) Label() string {
	switch t {
	case InstrumentPatent:
		return "Patent"
	case InstrumentWarrantyDeed:
		return "Warranty Deed"
	case InstrumentQuitClaimDeed:
		return "Quit Claim Deed"
	case InstrumentContractForDeed:
		return "Contract for Deed"
	case InstrumentProbateDistribution:
		return "Probate Distribution"
	case InstrumentMineralDeed:
		return "Mineral Deed"
	case InstrumentLease:
		return "Oil and Gas Lease"
	case InstrumentLeaseRelease:
		return "Release of Lease"
	case InstrumentTaxDeed:
		return "Tax Deed"
	case InstrumentCorrectionDeed:
		return "Correction Deed"
	default:
		return "Other"
	}
}

// InterestQualifier is a qualitative interest tag carried on a party
type InterestQualifier string

const (
	QualifierLifeEstate   InterestQualifier = "life_estate"
	QualifierRemainderman InterestQualifier = "remainderman"
)

// Party is a named grantor or grantee with an optional interest token
type Party struct {
	Name      string            `json:"name"`
	Interest  string            `json:"interest,omitempty"`  // Raw token as written, e.g. "1/4", "Life Estate"
	Fraction  *big.Rat          `json:"-"`                   // Parsed fractional share; nil when not stated
	Qualifier InterestQualifier `json:"qualifier,omitempty"` // Life estate / remainderman tag
}

// HasFraction reports whether the party carries an explicit fractional share
func (p Party) HasFraction() bool {
	return p.Fraction != nil
}

// LandRecordEvent is one recorded instrument affecting a tract
type LandRecordEvent struct {
	Index             int            `json:"index"`    // Position in the caller's input; tie-breaker for ordering
	Instrument        InstrumentType `json:"instrument"`
	RawType           string         `json:"raw_type,omitempty"` // Instrument text as it appeared on the row
	Grantors          []Party        `json:"grantors,omitempty"`
	Grantees          []Party        `json:"grantees,omitempty"`
	DatedDate         RecordDate     `json:"dated_date"`
	RecordedDate      RecordDate     `json:"recorded_date"`
	LegalDescription  string         `json:"legal_description,omitempty"`
	DocumentReference string         `json:"document_reference,omitempty"`
	Comments          string         `json:"comments,omitempty"`
	Term              string         `json:"term,omitempty"`  // Lease term column, when the runsheet has one
	Wells             []string       `json:"wells,omitempty"` // Well column entries
}

// EffectiveDate is the date used for ordering: recorded date, falling back to dated date.
func (e LandRecordEvent) EffectiveDate() RecordDate {
	if e.RecordedDate.Valid() {
		return e.RecordedDate
	}
	return e.DatedDate
}

// Ref returns the document reference, or a positional placeholder when the row had none.
func (e LandRecordEvent) Ref() string {
	if ref := strings.TrimSpace(e.DocumentReference); ref != "" {
		return ref
	}
	return "row " + strconv.Itoa(e.Index+1)
}

// GrantorNames returns the grantor names in order
func (e LandRecordEvent) GrantorNames() []string {
	return partyNames(e.Grantors)
}

// GranteeNames returns the grantee names in order
func (e LandRecordEvent) GranteeNames() []string {
	return partyNames(e.Grantees)
}

func partyNames(parties []Party) []string {
	names := make([]string, 0, len(parties))
	for _, p := range parties {
		names = append(names, p.Name)
	}
	return names
}
