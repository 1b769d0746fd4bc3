package ledger

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/names"
)

// NoteChainGap is the review note attached to owners whose grantor is missing from the chain
const NoteChainGap = "ownership source unverified; grantor not found in prior chain"

type replayer struct {
	opts       Options
	ledger     *Ledger
	patentSeen bool
}

func one() *big.Rat { return big.NewRat(1, 1) }

func (r *replayer) flag(sev model.Severity, owner, doc, format string, args ...any) {
	r.ledger.Flags = append(r.ledger.Flags, model.Flag{
		Stage:    model.StageLedger,
		Severity: sev,
		Owner:    owner,
		Document: doc,
		Note:     fmt.Sprintf(format, args...),
	})
}

func (r *replayer) seedPlaceholder() {
	r.ledger.Seeded = true
	r.ledger.Entries = append(r.ledger.Entries, Entry{
		Owner:       r.opts.UnknownOwnerName,
		Fraction:    one(),
		Source:      SourceUnknown,
		Active:      true,
		Placeholder: true,
	})
	r.flag(model.SeverityWarning, r.opts.UnknownOwnerName, "",
		"no patent of record; chain seeded with %q at 100%%; requires manual verification", r.opts.UnknownOwnerName)
}

// findActive returns the index of the active entry for name, preferring an exact
// normalized match over a tolerant one, or -1. It resolves grantors, whose
// spelling drifts between instruments.
func (r *replayer) findActive(name string) int {
	if i := r.findExact(name); i >= 0 {
		return i
	}
	return r.findTolerant(name)
}

func (r *replayer) findExact(name string) int {
	target := names.Normalize(name)
	for i, e := range r.ledger.Entries {
		if e.Active && !e.Placeholder && names.Normalize(e.Owner) == target {
			return i
		}
	}
	return -1
}

func (r *replayer) findTolerant(name string) int {
	for i, e := range r.ledger.Entries {
		if e.Active && !e.Placeholder && r.opts.Matcher.Match(e.Owner, name) {
			return i
		}
	}
	return -1
}

func (r *replayer) placeholderIndex() int {
	for i, e := range r.ledger.Entries {
		if e.Active && e.Placeholder {
			return i
		}
	}
	return -1
}

func (r *replayer) patent(ev model.LandRecordEvent) {
	if r.patentSeen {
		r.flag(model.SeverityWarning, "", ev.Ref(),
			"additional patent to %s ignored; earliest recorded patent seeds the chain", strings.Join(ev.GranteeNames(), ", "))
		return
	}
	r.patentSeen = true

	shares := r.absoluteShares(ev, one())
	for i, p := range ev.Grantees {
		r.credit(p, shares[i], SourcePatent, ev, nil, false)
	}
}

// absoluteShares sizes each grantee's portion when tokens are fractions of the whole
// tract: tokened grantees take their stated fraction and untokened grantees split
// what is left of pool equally.
func (r *replayer) absoluteShares(ev model.LandRecordEvent, pool *big.Rat) []*big.Rat {
	shares := make([]*big.Rat, len(ev.Grantees))
	stated := new(big.Rat)
	untokened := 0
	for i, p := range ev.Grantees {
		if !p.HasFraction() {
			untokened++
			continue
		}
		share := new(big.Rat).Set(p.Fraction)
		switch {
		case share.Cmp(one()) == 0 && pool.Cmp(one()) < 0:
			// "100%" or "All" from a partial owner conveys everything the grantor has.
			share.Set(pool)
			r.flag(model.SeverityInfo, p.Name, ev.Ref(),
				"%s conveys 100%% from a grantor holding %s; read as the grantor's entire interest",
				ev.Instrument.Label(), percent(pool))
		case share.Cmp(pool) > 0:
			r.flag(model.SeverityCritical, p.Name, ev.Ref(),
				"%s conveys %s to %s but grantor held %s; share capped at the grantor's interest; over-conveyance requires manual verification",
				ev.Instrument.Label(), percent(share), p.Name, percent(pool))
			share.Set(pool)
		}
		shares[i] = share
		stated.Add(stated, share)
	}

	if stated.Cmp(pool) > 0 {
		r.flag(model.SeverityCritical, "", ev.Ref(),
			"%s conveys %s but grantor held %s; over-conveyance requires manual verification",
			ev.Instrument.Label(), percent(stated), percent(pool))
	}
	if untokened == 0 {
		return shares
	}

	rest := new(big.Rat).Sub(pool, stated)
	if rest.Sign() <= 0 {
		r.flag(model.SeverityWarning, "", ev.Ref(),
			"no interest left for grantees without a stated share; they receive nothing")
		rest = new(big.Rat)
	}
	each := new(big.Rat).Quo(rest, big.NewRat(int64(untokened), 1))
	for i := range shares {
		if shares[i] == nil {
			shares[i] = new(big.Rat).Set(each)
		}
	}
	return shares
}

// relativeShares sizes grantee portions when tokens are fractions of the grantor's
// interest, as on probate distributions.
func (r *replayer) relativeShares(ev model.LandRecordEvent, pool *big.Rat) ([]*big.Rat, *big.Rat) {
	shares := make([]*big.Rat, len(ev.Grantees))
	stated := new(big.Rat)
	untokened := 0
	for i, p := range ev.Grantees {
		if p.HasFraction() {
			shares[i] = new(big.Rat).Mul(p.Fraction, pool)
			stated.Add(stated, p.Fraction)
		} else {
			untokened++
		}
	}

	if stated.Cmp(one()) > 0 {
		r.flag(model.SeverityCritical, "", ev.Ref(),
			"distribution shares total %s of the estate; requires manual verification", percent(stated))
	}

	distributed := new(big.Rat).Mul(stated, pool)
	if untokened > 0 {
		rest := new(big.Rat).Sub(one(), stated)
		if rest.Sign() <= 0 {
			r.flag(model.SeverityWarning, "", ev.Ref(),
				"no share of the estate left for distributees without a stated share; they receive nothing")
			rest = new(big.Rat)
		}
		each := new(big.Rat).Quo(new(big.Rat).Mul(rest, pool), big.NewRat(int64(untokened), 1))
		for i := range shares {
			if shares[i] == nil {
				shares[i] = new(big.Rat).Set(each)
				distributed.Add(distributed, each)
			}
		}
	}
	return shares, distributed
}

// credit adds amount to the grantee's active entry or opens a new one
func (r *replayer) credit(p model.Party, amount *big.Rat, src Source, ev model.LandRecordEvent, preds []Predecessor, unverified bool) {
	if amount.Sign() <= 0 {
		return
	}
	// Only an exact name merges holdings. A near match may be a different person,
	// such as a son with a suffix or an heir with a married name.
	if i := r.findExact(p.Name); i >= 0 {
		e := &r.ledger.Entries[i]
		e.Fraction = new(big.Rat).Add(e.Fraction, amount)
		e.Predecessors = appendPredecessors(e.Predecessors, preds)
		if p.Qualifier != "" && !slices.Contains(e.Qualifiers, p.Qualifier) {
			e.Qualifiers = append(e.Qualifiers, p.Qualifier)
		}
		e.Unverified = e.Unverified || unverified
		return
	}

	if i := r.findTolerant(p.Name); i >= 0 {
		r.flag(model.SeverityWarning, p.Name, ev.Ref(),
			"grantee %q resembles existing owner %q; kept as a separate owner; identity requires manual verification",
			p.Name, r.ledger.Entries[i].Owner)
	}

	e := Entry{
		Owner:        p.Name,
		Fraction:     new(big.Rat).Set(amount),
		Source:       src,
		AcquiredOn:   ev.EffectiveDate(),
		Active:       true,
		Predecessors: appendPredecessors(nil, preds),
		Document:     ev.Ref(),
		Unverified:   unverified,
	}
	if p.Qualifier != "" {
		e.Qualifiers = []model.InterestQualifier{p.Qualifier}
	}
	r.ledger.Entries = append(r.ledger.Entries, e)
}

func appendPredecessors(dst, src []Predecessor) []Predecessor {
	for _, p := range src {
		if !slices.ContainsFunc(dst, func(q Predecessor) bool { return q.Name == p.Name && q.Until.Time.Equal(p.Until.Time) }) {
			dst = append(dst, p)
		}
	}
	return dst
}

// grantorEntries resolves the event's grantors to active entry indexes and lists the
// grantor names that matched nothing.
func (r *replayer) grantorEntries(ev model.LandRecordEvent) ([]int, []string) {
	var found []int
	var missing []string
	for _, g := range ev.Grantors {
		i := r.findActive(g.Name)
		if i < 0 {
			missing = append(missing, g.Name)
			continue
		}
		if !slices.Contains(found, i) {
			found = append(found, i)
		}
	}
	return found, missing
}

// divest removes conveyed from the grantor entries in proportion to their holdings.
// Every touched entry is retired; a grantor keeping a remainder gets a new entry.
// It returns the predecessors the grantees inherit.
func (r *replayer) divest(idx []int, conveyed *big.Rat, ev model.LandRecordEvent) []Predecessor {
	pool := new(big.Rat)
	for _, i := range idx {
		pool.Add(pool, r.ledger.Entries[i].Fraction)
	}

	var keep *big.Rat
	if conveyed.Cmp(pool) < 0 && pool.Sign() > 0 {
		keep = new(big.Rat).Sub(pool, conveyed)
		keep.Quo(keep, pool)
	}

	until := ev.EffectiveDate()
	var preds []Predecessor
	var remainders []Entry
	for _, i := range idx {
		old := &r.ledger.Entries[i]
		old.Active = false
		preds = appendPredecessors(preds, []Predecessor{{Name: old.Owner, Until: until}})
		preds = appendPredecessors(preds, old.Predecessors)

		if keep != nil {
			rem := *old
			rem.Fraction = new(big.Rat).Mul(old.Fraction, keep)
			rem.Active = true
			rem.Qualifiers = slices.Clone(old.Qualifiers)
			rem.Predecessors = slices.Clone(old.Predecessors)
			remainders = append(remainders, rem)
		}
	}
	r.ledger.Entries = append(r.ledger.Entries, remainders...)
	return preds
}

// gapPool is what a grantor missing from the chain can convey: whatever the
// unknown-owner placeholder still carries, or the whole tract.
func (r *replayer) gapPool() (*big.Rat, int) {
	if i := r.placeholderIndex(); i >= 0 {
		return new(big.Rat).Set(r.ledger.Entries[i].Fraction), i
	}
	return one(), -1
}

// gap handles a conveyance whose grantors are all missing from the ledger
func (r *replayer) gap(ev model.LandRecordEvent, src Source, relative bool) {
	pool, ph := r.gapPool()

	var shares []*big.Rat
	conveyed := new(big.Rat)
	if relative {
		shares, conveyed = r.relativeShares(ev, pool)
	} else {
		shares = r.absoluteShares(ev, pool)
		for _, s := range shares {
			conveyed.Add(conveyed, s)
		}
	}

	if ph >= 0 {
		// Interest conveyed out of an unknown source comes out of the placeholder.
		r.divest([]int{ph}, conveyed, ev)
	}

	until := ev.EffectiveDate()
	var preds []Predecessor
	for _, g := range ev.Grantors {
		preds = append(preds, Predecessor{Name: g.Name, Until: until})
	}
	for i, p := range ev.Grantees {
		r.credit(p, shares[i], src, ev, preds, true)
		r.flag(model.SeverityWarning, p.Name, ev.Ref(), "%s (grantor: %s)", NoteChainGap, strings.Join(ev.GrantorNames(), ", "))
	}
}

func (r *replayer) deed(ev model.LandRecordEvent) {
	if len(ev.Grantees) == 0 {
		r.flag(model.SeverityWarning, "", ev.Ref(), "%s names no grantee; ledger unchanged", ev.Instrument.Label())
		return
	}
	r.resolveContracts(ev)
	r.noteQualifiers(ev)

	idx, missing := r.grantorEntries(ev)
	if len(idx) == 0 {
		if ev.Instrument == model.InstrumentCorrectionDeed && r.allGranteesActive(ev) {
			r.flag(model.SeverityInfo, "", ev.Ref(), "correction deed confirms a prior conveyance; ledger unchanged")
			return
		}
		r.gap(ev, SourceDeed, false)
		return
	}
	for _, name := range missing {
		r.flag(model.SeverityWarning, "", ev.Ref(),
			"grantor %q not found in prior chain; only matched grantors' interests conveyed", name)
	}

	pool := new(big.Rat)
	for _, i := range idx {
		pool.Add(pool, r.ledger.Entries[i].Fraction)
	}
	shares := r.absoluteShares(ev, pool)
	conveyed := new(big.Rat)
	for _, s := range shares {
		conveyed.Add(conveyed, s)
	}

	preds := r.divest(idx, conveyed, ev)
	for i, p := range ev.Grantees {
		r.credit(p, shares[i], SourceDeed, ev, preds, false)
	}
}

func (r *replayer) probate(ev model.LandRecordEvent) {
	if len(ev.Grantees) == 0 {
		r.flag(model.SeverityWarning, "", ev.Ref(), "probate distribution names no distributee; ledger unchanged")
		return
	}
	r.noteQualifiers(ev)

	idx, missing := r.grantorEntries(ev)
	if len(idx) == 0 {
		r.gap(ev, SourceProbate, true)
		return
	}
	for _, name := range missing {
		r.flag(model.SeverityWarning, "", ev.Ref(),
			"decedent %q not found in prior chain; only matched interests distributed", name)
	}

	pool := new(big.Rat)
	for _, i := range idx {
		pool.Add(pool, r.ledger.Entries[i].Fraction)
	}
	shares, distributed := r.relativeShares(ev, pool)
	if distributed.Cmp(pool) < 0 {
		r.flag(model.SeverityWarning, "", ev.Ref(),
			"distribution accounts for %s of the estate; remainder left with the estate of record",
			percent(new(big.Rat).Quo(distributed, pool)))
	}

	preds := r.divest(idx, distributed, ev)
	for i, p := range ev.Grantees {
		r.credit(p, shares[i], SourceProbate, ev, preds, false)
	}
}

// noteQualifiers flags life-estate and remainder interests, whose split of present
// leasing authority the ledger does not decide.
func (r *replayer) noteQualifiers(ev model.LandRecordEvent) {
	for _, p := range ev.Grantees {
		if p.Qualifier == "" {
			continue
		}
		how := "stated share"
		if !p.HasFraction() {
			how = "equal share"
		}
		r.flag(model.SeverityWarning, p.Name, ev.Ref(),
			"%s interest carried at %s; present leasing authority requires manual verification",
			strings.ReplaceAll(string(p.Qualifier), "_", " "), how)
	}
}

func (r *replayer) allGranteesActive(ev model.LandRecordEvent) bool {
	if len(ev.Grantees) == 0 {
		return false
	}
	for _, p := range ev.Grantees {
		if r.findActive(p.Name) < 0 {
			return false
		}
	}
	return true
}

func (r *replayer) contract(ev model.LandRecordEvent) {
	for _, p := range ev.Grantees {
		r.ledger.Contracts = append(r.ledger.Contracts, Contract{
			Vendors:  ev.GrantorNames(),
			Vendee:   p.Name,
			Document: ev.Ref(),
			Date:     ev.EffectiveDate(),
		})
	}
}

// resolveContracts closes pending contracts whose vendee takes by this deed
func (r *replayer) resolveContracts(ev model.LandRecordEvent) {
	for i := range r.ledger.Contracts {
		c := &r.ledger.Contracts[i]
		if c.Resolved {
			continue
		}
		if names.MatchAny(r.opts.Matcher, c.Vendee, ev.GranteeNames()) {
			c.Resolved = true
			c.ResolvedBy = ev.Ref()
		}
	}
}

// flagPendingContracts runs after the last event, when every contract still open
// has no deed completing it.
func (r *replayer) flagPendingContracts() {
	for _, c := range r.ledger.PendingContracts() {
		r.flag(model.SeverityWarning, c.Vendee, c.Document,
			"contract for deed from %s not followed by a deed to the vendee; vendee may hold leasing authority; requires manual verification",
			strings.Join(c.Vendors, ", "))
	}
}

func (r *replayer) checkSum() {
	sum := r.ledger.ActiveSum()
	diff := new(big.Rat).Sub(sum, one())
	diff.Abs(diff)
	tol := new(big.Rat)
	if tol.SetFloat64(r.opts.SumTolerance) == nil {
		tol = big.NewRat(1, 1_000_000)
	}
	if diff.Cmp(tol) > 0 {
		r.flag(model.SeverityCritical, "", "",
			"active interests total %s, not 100%%; requires manual verification", percent(sum))
	}
}

// percent renders a fraction as a percentage for flag text
func percent(r *big.Rat) string {
	p := new(big.Rat).Mul(r, big.NewRat(100, 1))
	return p.FloatString(8) + "%"
}
