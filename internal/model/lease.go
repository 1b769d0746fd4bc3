package model

// LeaseholdStatus is an owner's current leasehold classification
type LeaseholdStatus string

const (
	StatusOpen                LeaseholdStatus = "open"                  // Never leased, or lease released
	StatusCurrentlyLeased     LeaseholdStatus = "currently_leased"      // Inside the primary term
	StatusExpired             LeaseholdStatus = "expired"               // Primary term passed, no production signal
	StatusExpiredPotentialHBP LeaseholdStatus = "expired_potential_hbp" // Primary term passed, production signal present
)

// Label returns the status as shown in Markdown reports
func (s LeaseholdStatus) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusCurrentlyLeased:
		return "Currently Leased"
	case StatusExpired:
		return "Expired"
	case StatusExpiredPotentialHBP:
		return "Expired - Potential HBP"
	default:
		return string(s)
	}
}

// LeaseRecord describes the lease of record chosen for an owner
type LeaseRecord struct {
	Lessors            []string   `json:"lessors"`
	Lessees            []string   `json:"lessees"`
	DatedDate          RecordDate `json:"dated_date"`
	RecordedDate       RecordDate `json:"recorded_date"`
	TermDescription    string     `json:"term_description"` // e.g. "3 years (stated)" or "3 years (default)"
	TermYears          int        `json:"term_years"`
	TermStated         bool       `json:"term_stated"`
	Expiration         RecordDate `json:"expiration"`
	RequiresProduction bool       `json:"requires_production_verification,omitempty"` // Past term, alive only if producing
	Released           bool       `json:"released,omitempty"`
	ReleaseReference   string     `json:"release_reference,omitempty"`
	DocumentReference  string     `json:"document_reference"`
	CoveredLands       string     `json:"covered_lands,omitempty"`
}

// LeaseOverride is reviewer-supplied knowledge about one lease, keyed by its document reference
type LeaseOverride struct {
	ProductionPresent *bool `json:"production_present,omitempty" yaml:"production_present,omitempty"` // nil = use heuristic
	TopLease          bool  `json:"top_lease,omitempty" yaml:"top_lease,omitempty"`
	BoundaryPugh      bool  `json:"boundary_pugh,omitempty" yaml:"boundary_pugh,omitempty"`
	DepthPugh         bool  `json:"depth_pugh,omitempty" yaml:"depth_pugh,omitempty"`

	// RetainedDescription is the part of the tract the lease still holds under a boundary Pugh clause
	RetainedDescription string `json:"retained_description,omitempty" yaml:"retained_description,omitempty"`
}
