package report

import (
	"math/big"
	"slices"

	"github.com/shopspring/decimal"
)

// percentPlaces is the precision of every percent string in a report
const percentPlaces = 8

// wholeUnits is 100% expressed in units of 1e-8 percent
var wholeUnits = big.NewInt(10_000_000_000)

// Allocation is the rounded percent form of a set of interest fractions
type Allocation struct {
	Percents []string
	Total    string
	Balanced bool // Total is exactly 100.00000000
	Adjusted bool // fractions were within tolerance of 1 but not exact, and were normalized
}

// Allocate converts exact fractions into 8-decimal percent strings.
//
// When the fractions sum to 1 within tolerance, the largest-remainder method hands
// out the final units so the strings total exactly 100.00000000. Otherwise each
// figure is rounded half-up on its own and the shortfall or excess shows in Total.
func Allocate(fractions []*big.Rat, tolerance float64) Allocation {
	sum := new(big.Rat)
	for _, f := range fractions {
		sum.Add(sum, f)
	}

	tol := new(big.Rat)
	tol.SetFloat64(tolerance)
	diff := new(big.Rat).Sub(sum, big.NewRat(1, 1))
	within := sum.Sign() > 0 && diff.Abs(diff).Cmp(tol) <= 0
	exact := sum.Cmp(big.NewRat(1, 1)) == 0

	units := make([]*big.Int, len(fractions))
	rems := make([]*big.Rat, len(fractions))
	for i, f := range fractions {
		q := new(big.Rat).Mul(f, new(big.Rat).SetInt(wholeUnits))
		if within && !exact {
			q.Quo(q, sum)
		}
		floor := new(big.Int).Quo(q.Num(), q.Denom())
		units[i] = floor
		rems[i] = new(big.Rat).Sub(q, new(big.Rat).SetInt(floor))
	}

	if within {
		assigned := new(big.Int)
		for _, u := range units {
			assigned.Add(assigned, u)
		}
		deficit := new(big.Int).Sub(wholeUnits, assigned).Int64()

		order := make([]int, len(fractions))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return rems[b].Cmp(rems[a])
		})
		for i := 0; i < int(deficit) && i < len(order); i++ {
			units[order[i]].Add(units[order[i]], big.NewInt(1))
		}
	} else {
		half := big.NewRat(1, 2)
		for i, r := range rems {
			if r.Cmp(half) >= 0 {
				units[i].Add(units[i], big.NewInt(1))
			}
		}
	}

	out := Allocation{Percents: make([]string, len(units)), Adjusted: within && !exact}
	total := new(big.Int)
	for i, u := range units {
		out.Percents[i] = formatUnits(u)
		total.Add(total, u)
	}
	out.Total = formatUnits(total)
	out.Balanced = total.Cmp(wholeUnits) == 0
	return out
}

func formatUnits(u *big.Int) string {
	return decimal.NewFromBigInt(u, -percentPlaces).StringFixed(percentPlaces)
}

// ratDecimal converts an exact fraction to a decimal rounded to the given places
func ratDecimal(r *big.Rat, places int32) decimal.Decimal {
	num := decimal.NewFromBigInt(r.Num(), 0)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.DivRound(den, places)
}

// netAcres multiplies gross acres by an interest fraction exactly, rounding once
func netAcres(gross decimal.Decimal, fraction *big.Rat) decimal.Decimal {
	return ratDecimal(new(big.Rat).Mul(gross.Rat(), fraction), percentPlaces)
}
