package battery

import "math"

// CurrentFromPower resolves a power setpoint into a current. Positive power
// charges the cell. The result respects the current limits and never pushes
// the terminal voltage beyond VMax or VMin. A request that cannot be served
// in its own direction yields 0.
func (p Parameters) CurrentFromPower(ocv, rCell, pSet float64) float64 {
	switch {
	case pSet > 0:
		return p.CurrentFromVoltagePowerLimit(ocv, rCell, p.VMax, pSet)
	case pSet < 0:
		return p.CurrentFromVoltagePowerLimit(ocv, rCell, p.VMin, pSet)
	}
	return 0
}

// CurrentFromVoltageCurrentLimit is the CC-CV rule: iLim until the terminal
// voltage would reach vLim, then the current that holds it there.
func (p Parameters) CurrentFromVoltageCurrentLimit(ocv, rCell, vLim, iLim float64) float64 {
	vLim = p.LimitVoltage(vLim)
	iLim = p.LimitCurrent(iLim)
	switch {
	case iLim > 0:
		if ocv >= vLim {
			return 0
		}
		return math.Min(iLim, (vLim-ocv)/rCell)
	case iLim < 0:
		if ocv <= vLim {
			return 0
		}
		return math.Max(iLim, (vLim-ocv)/rCell)
	}
	return 0
}

// CurrentFromVoltagePowerLimit is the CP-CV rule. The power-limited current
// is bounded by the current that reaches vLim (itself within the absolute
// voltage window) and by the current limit of the same direction.
func (p Parameters) CurrentFromVoltagePowerLimit(ocv, rCell, vLim, pLim float64) float64 {
	switch {
	case pLim > 0:
		i := powerCurrent(ocv, rCell, pLim)
		if i <= 0 {
			return 0
		}
		bound := math.Min((math.Min(p.VMax, vLim)-ocv)/rCell, p.IMaxChg)
		if bound <= 0 {
			return 0
		}
		return math.Min(i, bound)
	case pLim < 0:
		i := powerCurrent(ocv, rCell, pLim)
		if i >= 0 {
			return 0
		}
		bound := math.Max((math.Max(p.VMin, vLim)-ocv)/rCell, p.IMinDischg)
		if bound >= 0 {
			return 0
		}
		return math.Max(i, bound)
	}
	return 0
}

// powerCurrent solves (ocv + r*i)*i = pSet for the root closest to zero.
// Discharge requests beyond the maximum deliverable power get the current
// at maximum power.
func powerCurrent(ocv, rCell, pSet float64) float64 {
	disc := ocv*ocv + 4*rCell*pSet
	if disc < 0 {
		disc = 0
	}
	return (-ocv + math.Sqrt(disc)) / (2 * rCell)
}
