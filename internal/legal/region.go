package legal

import (
	"math/bits"

	"github.com/shopspring/decimal"
)

// gridSize is the number of cells along one side of a section. A 640-acre section
// becomes 256 cells of 2.5 acres, enough for four levels of quartering.
const gridSize = 16

var cellAcres = decimal.New(25, -1) // 2.5

// Region is a set of grid cells within one section, x west-to-east, y south-to-north
type Region [gridSize * gridSize / 64]uint64

// fullSection returns every cell
func fullSection() Region {
	var r Region
	for i := range r {
		r[i] = ^uint64(0)
	}
	return r
}

// rect returns the cells in [x0,x1) x [y0,y1)
func rect(x0, x1, y0, y1 int) Region {
	var r Region
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*gridSize + x
			r[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return r
}

// Union returns cells in either region
func (r Region) Union(o Region) Region {
	for i := range r {
		r[i] |= o[i]
	}
	return r
}

// Intersect returns cells in both regions
func (r Region) Intersect(o Region) Region {
	for i := range r {
		r[i] &= o[i]
	}
	return r
}

// Contains reports whether every cell of o is in r
func (r Region) Contains(o Region) bool {
	return r.Intersect(o) == o
}

// Empty reports whether the region has no cells
func (r Region) Empty() bool {
	return r == Region{}
}

// Cells counts the cells in the region
func (r Region) Cells() int {
	n := 0
	for _, w := range r {
		n += bits.OnesCount64(w)
	}
	return n
}

// Acres converts the cell count to acres under the standard 640-acre section
func (r Region) Acres() decimal.Decimal {
	return decimal.NewFromInt(int64(r.Cells())).Mul(cellAcres)
}

// box is the working rectangle while an aliquot chain is applied
type box struct {
	x0, x1, y0, y1 int
}

// apply narrows the box by one aliquot token ("NE4", "E2", ...). It fails when the
// grid cannot subdivide further.
func (b box) apply(token string) (box, bool) {
	midX := (b.x0 + b.x1) / 2
	midY := (b.y0 + b.y1) / 2
	if b.x1-b.x0 < 2 || b.y1-b.y0 < 2 {
		return b, false
	}

	switch token {
	case "NE4":
		return box{midX, b.x1, midY, b.y1}, true
	case "NW4":
		return box{b.x0, midX, midY, b.y1}, true
	case "SE4":
		return box{midX, b.x1, b.y0, midY}, true
	case "SW4":
		return box{b.x0, midX, b.y0, midY}, true
	case "N2":
		return box{b.x0, b.x1, midY, b.y1}, true
	case "S2":
		return box{b.x0, b.x1, b.y0, midY}, true
	case "E2":
		return box{midX, b.x1, b.y0, b.y1}, true
	case "W2":
		return box{b.x0, midX, b.y0, b.y1}, true
	default:
		return b, false
	}
}

func (b box) region() Region {
	return rect(b.x0, b.x1, b.y0, b.y1)
}

// aliquotRegion resolves a chain such as ["E2", "NE4"] (the E2 of the NE4).
// The rightmost token is the largest unit and is applied first.
func aliquotRegion(tokens []string) (Region, bool) {
	b := box{0, gridSize, 0, gridSize}
	for i := len(tokens) - 1; i >= 0; i-- {
		var ok bool
		b, ok = b.apply(tokens[i])
		if !ok {
			return Region{}, false
		}
	}
	return b.region(), true
}
