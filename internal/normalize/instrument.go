package normalize

import (
	"regexp"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

var instrumentAbbrev = map[string]model.InstrumentType{
	"PAT":                           model.InstrumentPatent,
	"PATENT":                        model.InstrumentPatent,
	"US PATENT":                     model.InstrumentPatent,
	"LAND PATENT":                   model.InstrumentPatent,
	"STATE PATENT":                  model.InstrumentPatent,
	"WD":                            model.InstrumentWarrantyDeed,
	"SWD":                           model.InstrumentWarrantyDeed,
	"WARRANTY DEED":                 model.InstrumentWarrantyDeed,
	"WARR DEED":                     model.InstrumentWarrantyDeed,
	"SPECIAL WARRANTY DEED":         model.InstrumentWarrantyDeed,
	"QCD":                           model.InstrumentQuitClaimDeed,
	"QC":                            model.InstrumentQuitClaimDeed,
	"QUIT CLAIM DEED":               model.InstrumentQuitClaimDeed,
	"QUITCLAIM DEED":                model.InstrumentQuitClaimDeed,
	"QUITCLAIM":                     model.InstrumentQuitClaimDeed,
	"CFD":                           model.InstrumentContractForDeed,
	"CD":                            model.InstrumentContractForDeed,
	"CONTRACT FOR DEED":             model.InstrumentContractForDeed,
	"LAND CONTRACT":                 model.InstrumentContractForDeed,
	"PRD":                           model.InstrumentProbateDistribution,
	"PR DEED":                       model.InstrumentProbateDistribution,
	"PERSONAL REPRESENTATIVES DEED": model.InstrumentProbateDistribution,
	"DOD":                           model.InstrumentProbateDistribution,
	"FD":                            model.InstrumentProbateDistribution,
	"DECREE OF DISTRIBUTION":        model.InstrumentProbateDistribution,
	"FINAL DECREE":                  model.InstrumentProbateDistribution,
	"AFFIDAVIT OF HEIRSHIP":         model.InstrumentProbateDistribution,
	"AOH":                           model.InstrumentProbateDistribution,
	"MD":                            model.InstrumentMineralDeed,
	"MIN DEED":                      model.InstrumentMineralDeed,
	"MINERAL DEED":                  model.InstrumentMineralDeed,
	"MQCD":                          model.InstrumentMineralDeed,
	"MINERAL QUIT CLAIM DEED":       model.InstrumentMineralDeed,
	"OGL":                           model.InstrumentLease,
	"O G L":                         model.InstrumentLease,
	"OG LEASE":                      model.InstrumentLease,
	"O G LEASE":                     model.InstrumentLease,
	"OIL AND GAS LEASE":             model.InstrumentLease,
	"OIL GAS LEASE":                 model.InstrumentLease,
	"LEASE":                         model.InstrumentLease,
	"MOL":                           model.InstrumentLease,
	"MEMO OF LEASE":                 model.InstrumentLease,
	"MEMORANDUM OF LEASE":           model.InstrumentLease,
	"REL":                           model.InstrumentLeaseRelease,
	"ROL":                           model.InstrumentLeaseRelease,
	"RELEASE":                       model.InstrumentLeaseRelease,
	"RELEASE OF LEASE":              model.InstrumentLeaseRelease,
	"LEASE RELEASE":                 model.InstrumentLeaseRelease,
	"SURRENDER":                     model.InstrumentLeaseRelease,
	"TD":                            model.InstrumentTaxDeed,
	"TAX DEED":                      model.InstrumentTaxDeed,
	"COR DEED":                      model.InstrumentCorrectionDeed,
	"CORR DEED":                     model.InstrumentCorrectionDeed,
	"CORRECTION DEED":               model.InstrumentCorrectionDeed,
	"CORRECTIVE DEED":               model.InstrumentCorrectionDeed,
	"CWD":                           model.InstrumentCorrectionDeed,
}

// instrumentFallbacks are substring rules applied in order when no abbreviation
// matches. Release precedes lease because "RELEASE" contains "LEASE".
var instrumentFallbacks = []struct {
	needle string
	typ    model.InstrumentType
}{
	{"RELEASE", model.InstrumentLeaseRelease},
	{"SURRENDER", model.InstrumentLeaseRelease},
	{"LEASE", model.InstrumentLease},
	{"PATENT", model.InstrumentPatent},
	{"CONTRACT", model.InstrumentContractForDeed},
	{"PROBATE", model.InstrumentProbateDistribution},
	{"DECREE", model.InstrumentProbateDistribution},
	{"DISTRIBUTION", model.InstrumentProbateDistribution},
	{"HEIRSHIP", model.InstrumentProbateDistribution},
	{"PERSONAL REP", model.InstrumentProbateDistribution},
	{"EXECUTOR", model.InstrumentProbateDistribution},
	{"ADMINISTRAT", model.InstrumentProbateDistribution},
	{"CORRECTION DEED", model.InstrumentCorrectionDeed},
	{"CORRECTIVE", model.InstrumentCorrectionDeed},
	{"TAX DEED", model.InstrumentTaxDeed},
	{"QUIT", model.InstrumentQuitClaimDeed},
	{"MINERAL", model.InstrumentMineralDeed},
	{"WARRANTY", model.InstrumentWarrantyDeed},
}

var instrumentPunct = regexp.MustCompile(`[^A-Z0-9]+`)

// DetectInstrument maps free-text instrument names and abbreviations onto the
// canonical type. ok is false when nothing matched and the result is Other.
func DetectInstrument(raw string) (model.InstrumentType, bool) {
	key := strings.ReplaceAll(strings.ToUpper(raw), "&", " AND ")
	key = strings.TrimSpace(instrumentPunct.ReplaceAllString(key, " "))
	if key == "" {
		return model.InstrumentOther, false
	}
	if t, ok := instrumentAbbrev[key]; ok {
		return t, true
	}
	// "Q.C.D." and "Quit-Claim" collapse to their usual spellings
	if t, ok := instrumentAbbrev[strings.ReplaceAll(key, " ", "")]; ok {
		return t, true
	}
	if t, ok := instrumentAbbrev[strings.ReplaceAll(key, "QUIT CLAIM", "QUITCLAIM")]; ok {
		return t, true
	}
	for _, fb := range instrumentFallbacks {
		if strings.Contains(key, fb.needle) {
			return fb.typ, true
		}
	}
	return model.InstrumentOther, false
}
