package battery

import (
	"math"
	"time"

	"github.com/kilianp07/cellage/core/logger"
)

// Cell is a simulated cell. It must not be used from more than one
// goroutine; independent cells share nothing and can run in parallel.
type Cell struct {
	Params Parameters
	State

	// Now is the timestamp at which the next operation starts.
	Now time.Time

	// Trace, when non-nil, receives every micro-step.
	Trace *Trace

	log logger.Logger
}

// Option configures a Cell.
type Option func(*Cell)

// WithTrace records micro-steps into a fresh trace.
func WithTrace() Option {
	return func(c *Cell) { c.Trace = &Trace{} }
}

// WithLogger sets the logger used for degenerate-input diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Cell) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a cell in state st at time start.
func New(p Parameters, st State, start time.Time, opts ...Option) *Cell {
	c := &Cell{Params: p, State: st, Now: start, log: logger.NopLogger{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dead reports whether the cell has no usable capacity left.
func (c *Cell) Dead() bool { return c.CapRemaining <= 0 }

// OCV returns the open-circuit voltage at the present SoC.
func (c *Cell) OCV() float64 { return OCVFromSoC(c.SoC) }

// skip reports whether an operation must leave the cell untouched.
func (c *Cell) skip(op string, res time.Duration) bool {
	if c.Dead() {
		c.log.Debugf("%s skipped: cell has no usable capacity", op)
		return true
	}
	if res <= 0 {
		c.log.Debugf("%s skipped: resolution %s is not positive", op, res)
		return true
	}
	return false
}

// stepper runs the micro-steps of one operation. Capacity and resistance
// are frozen at the start; aging is accumulated on the side and committed
// by finish.
type stepper struct {
	c      *Cell
	rCell  float64
	capAt  float64
	aged   float64
	aging  AgingState
	blocks *agingBlocks
}

func (c *Cell) begin() *stepper {
	s := &stepper{
		c:     c,
		rCell: c.Params.RCell(c.CapRemaining),
		capAt: c.CapRemaining,
		aged:  c.CapRemaining,
		aging: c.Aging,
	}
	s.blocks = newAgingBlocks(c.Params.AgeApplyPeriod, func(pt AgingPoint) {
		s.aged, s.aging = c.Params.ApplyAging(s.aged, s.aging, pt)
	})
	return s
}

// step applies current i for dt seconds starting at t.
func (s *stepper) step(t time.Time, dt, ocv, i, tempAmb float64) {
	c := s.c
	soc, v, p, temp := c.Params.CellStep(dt, c.SoC, ocv, i, c.TempCell, tempAmb, s.capAt, s.rCell)
	c.SoC, c.TempCell = soc, temp
	s.record(t, dt, v, i, p, tempAmb)
}

// rest lets the cell relax for dt seconds starting at t.
func (s *stepper) rest(t time.Time, dt, ocv, tempAmb float64) {
	c := s.c
	c.TempCell = c.Params.ThermalStep(dt, c.TempCell, tempAmb, 0)
	s.record(t, dt, ocv, 0, 0, tempAmb)
}

func (s *stepper) record(t time.Time, dt, v, i, p, tempAmb float64) {
	c := s.c
	if c.Trace != nil {
		c.Trace.Samples = append(c.Trace.Samples, Sample{
			Time:        t,
			Voltage:     v,
			Current:     i,
			Power:       p,
			TempCell:    c.TempCell,
			TempAmbient: tempAmb,
			SoC:         c.SoC,
		})
	}
	s.blocks.add(t, dt, v, i, c.TempCell)
}

// finish applies the collected aging and moves the cell clock to next.
func (s *stepper) finish(next time.Time) {
	s.blocks.close()
	s.c.CapRemaining = s.aged
	s.c.Aging = s.aging
	s.c.Now = next
}

// maxStepDuration bounds operation lengths derived from floating point
// estimates so they stay representable as time.Duration.
const maxStepDuration = 100 * 365 * 24 * time.Hour

func secondsToDuration(s float64) time.Duration {
	if math.IsNaN(s) || s <= 0 {
		return 0
	}
	if s >= maxStepDuration.Seconds() {
		return maxStepDuration
	}
	return time.Duration(s * float64(time.Second))
}

// stepCount returns the number of steps k with k*res < total.
func stepCount(total, res time.Duration) int {
	if total <= 0 || res <= 0 {
		return 0
	}
	return int((total + res - 1) / res)
}
