package battery

import (
	"math"
	"time"
)

// CCCVRequest parameterises a constant-current constant-voltage phase.
// Positive ILim charges, negative discharges.
type CCCVRequest struct {
	VLim       float64
	ILim       float64
	ICutoff    float64
	Resolution time.Duration
	Ambient    Ambient
	// EndMax optionally bounds the phase. Zero means unbounded.
	EndMax time.Time
}

// CPCVRequest parameterises a constant-power constant-voltage phase.
// Positive PLim charges, negative discharges.
type CPCVRequest struct {
	VLim       float64
	PLim       float64
	ICutoff    float64
	Resolution time.Duration
	Ambient    Ambient
	EndMax     time.Time
}

// CCCV drives the cell towards VLim at ILim until the resolved current
// crosses ICutoff in the direction of travel, EndMax is reached or the
// step budget of twice the naive full-charge time runs out. A zero ILim
// runs a single idle step.
func (c *Cell) CCCV(r CCCVRequest) {
	if c.skip("cccv", r.Resolution) {
		return
	}
	p := c.Params
	vLim := p.LimitVoltage(r.VLim)
	iLim := p.LimitCurrent(r.ILim)
	budget := r.Resolution
	if iLim != 0 {
		budget = secondsToDuration(2 * math.Abs(c.CapRemaining/iLim) * 3600)
	}
	c.limited("cccv", budget, r.Resolution, r.EndMax, r.Ambient, iLim, r.ICutoff,
		func(ocv, rCell float64) float64 {
			return p.CurrentFromVoltageCurrentLimit(ocv, rCell, vLim, iLim)
		})
}

// CPCV is CCCV with a power limit. The step budget assumes the current
// PLim/VNominal.
func (c *Cell) CPCV(r CPCVRequest) {
	if c.skip("cpcv", r.Resolution) {
		return
	}
	p := c.Params
	vLim := p.LimitVoltage(r.VLim)
	budget := r.Resolution
	if r.PLim != 0 {
		budget = secondsToDuration(2 * math.Abs(c.CapRemaining/(r.PLim/p.VNominal)) * 3600)
	}
	c.limited("cpcv", budget, r.Resolution, r.EndMax, r.Ambient, r.PLim, r.ICutoff,
		func(ocv, rCell float64) float64 {
			return p.CurrentFromVoltagePowerLimit(ocv, rCell, vLim, r.PLim)
		})
}

// limited is the loop shared by CCCV and CPCV. dir carries the sign of the
// requested direction.
func (c *Cell) limited(op string, budget, res time.Duration, endMax time.Time, amb Ambient,
	dir, cutoff float64, resolve func(ocv, rCell float64) float64) {
	start := c.Now
	end := start.Add(budget)
	if !endMax.IsZero() && end.After(endMax) {
		end = endMax
	}
	n := stepCount(end.Sub(start), res)
	if n == 0 {
		c.log.Debugf("%s skipped: no time left before %s", op, end)
		return
	}
	ambAt := amb.resolve(n)
	dt := res.Seconds()
	s := c.begin()
	last := start
	for k := 0; k < n; k++ {
		t := start.Add(time.Duration(k) * res)
		ocv := c.OCV()
		i := resolve(ocv, s.rCell)
		done := cutoffReached(dir, i, cutoff)
		s.step(t, dt, ocv, i, ambAt(k, t))
		last = t
		if done {
			break
		}
	}
	s.finish(last.Add(res))
}

// cutoffReached reports whether a phase in direction dir ends after a step
// at current i.
func cutoffReached(dir, i, cutoff float64) bool {
	switch {
	case dir > 0:
		return i < cutoff
	case dir < 0:
		return i > cutoff
	}
	return true
}
