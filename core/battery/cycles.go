package battery

import "time"

// CyclesRequest describes alternating CC-CV charge and discharge phases,
// each followed by a rest. At least one of NMax and EndMax must be set.
type CyclesRequest struct {
	NMax   int       // full cycles, 0 means unbounded
	EndMax time.Time // zero means unbounded

	VMax, VMin    float64
	IChg, IDischg float64
	ChgCutoff     float64
	DischgCutoff  float64
	Rest          time.Duration
	ActiveRes     time.Duration
	RestRes       time.Duration
	StartCharging bool
	Ambient       Ambient
}

// ProfileCyclesRequest is CyclesRequest with the discharge phase replaced
// by repeating Profile until the OCV reaches VMin.
type ProfileCyclesRequest struct {
	NMax   int
	EndMax time.Time

	VMax, VMin    float64
	IChg          float64
	ChgCutoff     float64
	Profile       Profile
	Rest          time.Duration
	ChargeRes     time.Duration
	RestRes       time.Duration
	StartCharging bool
	Ambient       Ambient
}

// Cycles runs charge/discharge cycles. With StartCharging each cycle is
// charge then discharge. Otherwise the cell is discharged once first and each
// cycle is charge then discharge with the bounds checked after the charge,
// so NMax cycles give D C D C ... C and the run ends charged.
func (c *Cell) Cycles(r CyclesRequest) {
	charge := func() {
		c.CCCV(CCCVRequest{VLim: r.VMax, ILim: r.IChg, ICutoff: r.ChgCutoff, Resolution: r.ActiveRes, Ambient: r.Ambient})
	}
	discharge := func() {
		c.CCCV(CCCVRequest{VLim: r.VMin, ILim: r.IDischg, ICutoff: r.DischgCutoff, Resolution: r.ActiveRes, Ambient: r.Ambient})
	}
	c.alternate("cycles", cycleBounds{r.NMax, r.EndMax, r.StartCharging, r.Rest, r.RestRes, r.Ambient}, charge, discharge)
}

// ProfileCycles runs CC-CV charges alternating with profile discharges.
func (c *Cell) ProfileCycles(r ProfileCyclesRequest) {
	charge := func() {
		c.CCCV(CCCVRequest{VLim: r.VMax, ILim: r.IChg, ICutoff: r.ChgCutoff, Resolution: r.ChargeRes, Ambient: r.Ambient})
	}
	discharge := func() {
		c.PowerProfileRepeat(RepeatRequest{Profile: r.Profile, Ambient: r.Ambient, VMax: r.VMax, VMin: r.VMin})
	}
	c.alternate("profile cycles", cycleBounds{r.NMax, r.EndMax, r.StartCharging, r.Rest, r.RestRes, r.Ambient}, charge, discharge)
}

type cycleBounds struct {
	nMax          int
	endMax        time.Time
	startCharging bool
	rest          time.Duration
	restRes       time.Duration
	ambient       Ambient
}

func (b cycleBounds) done(n int, now time.Time) bool {
	if !b.endMax.IsZero() && !now.Before(b.endMax) {
		return true
	}
	return b.nMax > 0 && n >= b.nMax
}

func (c *Cell) alternate(op string, b cycleBounds, charge, discharge func()) {
	switch {
	case c.Dead():
		c.log.Debugf("%s skipped: cell has no usable capacity", op)
		return
	case b.nMax < 0:
		c.log.Debugf("%s skipped: negative cycle count %d", op, b.nMax)
		return
	case b.nMax == 0 && b.endMax.IsZero():
		c.log.Debugf("%s skipped: no stop condition", op)
		return
	case !b.endMax.IsZero() && !c.Now.Before(b.endMax):
		return
	}
	rest := func() { c.Pause(b.rest, b.restRes, b.ambient) }

	if !b.startCharging {
		discharge()
		rest()
		if c.Dead() {
			return
		}
	}
	n := 0
	for {
		charge()
		rest()
		if c.Dead() {
			return
		}
		if !b.startCharging {
			n++
			if b.done(n, c.Now) {
				return
			}
		}
		discharge()
		rest()
		if c.Dead() {
			return
		}
		if b.startCharging {
			n++
			if b.done(n, c.Now) {
				return
			}
		}
	}
}
