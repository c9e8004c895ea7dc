package battery

import "math"

// OCV curve fit, valid for SoC in [-0.02, 1.05].
const (
	ocvLinA      = 3.3
	ocvLinB      = 0.9
	ocvLowSoC    = 0.1326
	ocvLowFac    = 0.02
	ocvLowExp    = 28.0
	ocvHighMid   = 0.935
	ocvHighDelta = 0.065
	ocvHighAmp   = 0.03
)

// Thresholds of the inverse. socHighOCV is OCVFromSoC(ocvHighMid-ocvHighDelta).
const (
	socLowOCV  = 3.43
	socLowD    = 0.144444444
	socLowE    = 0.1493
	socLowF    = 0.45
	socHighOCV = 4.083
	socQuadA   = 7.100591716
	socQuadB   = -12.37810651
	socQuadC   = 9.477514793
)

const (
	socNewtonIter = 50
	socNewtonTol  = 1e-12
)

// OCVFromSoC returns the open-circuit voltage for a state of charge.
func OCVFromSoC(soc float64) float64 {
	v := ocvLinA + ocvLinB*soc
	if soc < ocvLowSoC {
		return v + ocvLowFac*(1-math.Exp(ocvLowExp*(ocvLowSoC-soc)))
	}
	if soc > ocvHighMid-ocvHighDelta {
		d := (soc - ocvHighMid) / ocvHighDelta
		v += ocvHighAmp * (d*d - 1)
	}
	return v
}

// SoCFromOCV inverts OCVFromSoC.
//
// Above socHighOCV the quadratic branch is solved in closed form and the
// middle branch is linear. Below socLowOCV the power-law fit is used as
// the starting point of a Newton iteration on the forward curve, so the
// round trip is exact to numerical precision across the low knee.
func SoCFromOCV(ocv float64) float64 {
	if math.IsNaN(ocv) {
		return math.NaN()
	}
	if ocv > socHighOCV {
		disc := socQuadB*socQuadB - 4*socQuadA*(socQuadC-ocv)
		return (-socQuadB + math.Sqrt(disc)) / (2 * socQuadA)
	}
	if ocv >= socLowOCV {
		return -11.0/3.0 + (10.0/9.0)*ocv
	}
	soc := socLowD - socLowE*math.Pow(socLowOCV-ocv, socLowF)
	for i := 0; i < socNewtonIter; i++ {
		f := OCVFromSoC(soc) - ocv
		step := f / ocvSlope(soc)
		soc -= step
		if math.Abs(step) < socNewtonTol {
			break
		}
	}
	return soc
}

// ocvSlope is dOCV/dSoC below the high knee.
func ocvSlope(soc float64) float64 {
	if soc < ocvLowSoC {
		return ocvLinB + ocvLowFac*ocvLowExp*math.Exp(ocvLowExp*(ocvLowSoC-soc))
	}
	return ocvLinB
}

// SoEFromSoC converts capacity-based SoC to energy-based SoE.
func SoEFromSoC(soc float64) float64 {
	const fac = 0.12
	d := soc - 0.5
	return soc + fac*d*d - fac*0.25
}

// Anode potential segments, from the highest cell voltage down.
const (
	anodeV1 = 4.095
	anodeV2 = 3.83
	anodeV3 = 3.65
	anodeV4 = 3.5
	anodeC1 = 2.5
	anodeM1 = 0.59047619
	anodeC2 = 0.082
	anodeC3 = 0.890555556
	anodeM3 = 0.211111111
	anodeC4 = 0.12
	anodeC5 = 2.15
	anodeM5 = 0.58
)

// AnodePotential estimates the anode potential vs. Li/Li+ from the cell
// voltage. Segment bounds are open below and closed above. The lowest
// segment is a poor estimate below roughly 25 % SoC.
func AnodePotential(vCell float64) float64 {
	switch {
	case vCell > anodeV1:
		return anodeC1 - anodeM1*vCell
	case vCell > anodeV2:
		return anodeC2
	case vCell > anodeV3:
		return anodeC3 - anodeM3*vCell
	case vCell > anodeV4:
		return anodeC4
	default:
		return anodeC5 - anodeM5*vCell
	}
}

// AnodePotentials applies AnodePotential elementwise.
func AnodePotentials(vCell []float64) []float64 {
	out := make([]float64, len(vCell))
	for i, v := range vCell {
		out[i] = AnodePotential(v)
	}
	return out
}
