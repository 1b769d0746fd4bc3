package pipeline

import (
	"sync"

	"github.com/ppiankov/landchain/internal/engine"
	"github.com/ppiankov/landchain/internal/model"
)

// Accumulator collects rows that arrive in chunks (for example from a
// rate-limited extraction service) and recomputes the tract from scratch on
// every chunk. The engine keeps no state between runs, so the latest report
// always equals a single run over every row received so far.
type Accumulator struct {
	mu     sync.Mutex
	engine *engine.Engine
	req    engine.Request
	latest *model.Report
}

// NewAccumulator starts from req; req.Rows may already hold a first chunk
func NewAccumulator(e *engine.Engine, req engine.Request) *Accumulator {
	req.Rows = append([]model.RawRow(nil), req.Rows...)
	return &Accumulator{engine: e, req: req}
}

// Add appends a chunk and returns the recomputed report
func (a *Accumulator) Add(rows ...model.RawRow) *model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.req.Rows = append(a.req.Rows, rows...)
	a.latest = a.engine.Run(a.req)
	return a.latest
}

// Report returns the latest report, computing it if no chunk has been added
func (a *Accumulator) Report() *model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.latest == nil {
		a.latest = a.engine.Run(a.req)
	}
	return a.latest
}

// Len returns the number of rows received
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.req.Rows)
}
