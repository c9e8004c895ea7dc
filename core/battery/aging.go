package battery

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// AgingPoint is an operating point held for Duration seconds.
type AgingPoint struct {
	Duration float64 `json:"duration"`
	Voltage  float64 `json:"voltage"`
	Current  float64 `json:"current"`
	Temp     float64 `json:"temp"` // °C
}

// ApplyAging integrates the loss mechanisms over one operating point and
// returns the new remaining capacity and aging state. NaN input or a dead
// cell leaves both unchanged.
//
// Each mechanism rate is its driving force minus a counterforce proportional
// to the loss already accumulated. Only positive rates are integrated and
// every fraction saturates at 1.
func (p Parameters) ApplyAging(capRemaining float64, st AgingState, pt AgingPoint) (float64, AgingState) {
	if math.IsNaN(pt.Duration) || math.IsNaN(pt.Voltage) || math.IsNaN(pt.Current) || math.IsNaN(pt.Temp) ||
		capRemaining <= 0 {
		return capRemaining, st
	}
	a := p.Aging
	dt := pt.Duration
	v, i := pt.Voltage, pt.Current
	tk := pt.Temp + KelvinOffset
	qTotal := st.QLossTotal()
	dq := 0.0

	seiForce := a.S0 * math.Exp(a.S1*(1/tk-1/a.TRef)) * math.Exp(a.S2*(v-a.VRef))
	if rate := seiForce - a.S3*st.QSEI; rate > 0 {
		st.QSEI = math.Min(st.QSEI+rate*dt, 1)
		dq += rate * dt
	}

	if i != 0 {
		dQ := i * dt / 3600
		dE := dQ * v
		if i > 0 {
			st.QChg += dQ
			st.EChg += dE
		} else {
			st.QDischg -= dQ
			st.EDischg -= dE
		}

		cRate := i / capRemaining
		dqAbs := math.Abs(cRate) * dt

		cycForce := a.W0 * math.Abs(v-a.VRef)
		if qTotal > a.W2 {
			cycForce *= math.Exp(a.W1 * (qTotal - a.W2))
		}
		if rate := cycForce - a.W3*st.QCyclic; rate > 0 {
			st.QCyclic = math.Min(st.QCyclic+rate*dqAbs, 1)
			dq += rate * dqAbs
		}

		if v < a.C2 {
			lowForce := a.C0 * math.Exp(a.C1*(1/tk-1/a.TRef)) * (a.C2 - v)
			if rate := lowForce - a.C3*st.QCyclicLow; rate > 0 {
				st.QCyclicLow = math.Min(st.QCyclicLow+rate*dqAbs, 1)
				dq += rate * dqAbs
			}
		}

		if cRate > 0 {
			rEff := a.P0
			if tk < a.P2 {
				rEff += math.Pow(a.P1*(a.P2-tk), a.P3)
			}
			rEff *= math.Exp(a.P4 * qTotal)
			if vPlating := AnodePotential(v) - rEff*cRate; vPlating < 0 {
				inc := math.Abs(vPlating) * a.P5 * dt * math.Pow(cRate, a.P6)
				st.QPlating = math.Min(st.QPlating+inc, 1)
				dq += inc
			}
		}
	}

	return math.Max(capRemaining-dq*p.CapNominal, 0), st
}

// agingBlocks averages micro-steps over fixed periods aligned to the Unix
// epoch and hands each closed block to emit. A step belongs to the block
// containing its start time. A block's duration is the sum of its step
// durations, so steps coarser than the period produce one block each.
type agingBlocks struct {
	period time.Duration
	emit   func(AgingPoint)
	key    int64
	open   bool
	dur    float64
	vs     []float64
	is     []float64
	ts     []float64
}

func newAgingBlocks(period time.Duration, emit func(AgingPoint)) *agingBlocks {
	if period <= 0 {
		period = 30 * time.Second
	}
	return &agingBlocks{period: period, emit: emit}
}

func (b *agingBlocks) add(t time.Time, dt, v, i, temp float64) {
	key := floorDiv(t.UnixNano(), int64(b.period))
	if b.open && key != b.key {
		b.close()
	}
	if !b.open {
		b.open = true
		b.key = key
	}
	b.dur += dt
	b.vs = append(b.vs, v)
	b.is = append(b.is, i)
	b.ts = append(b.ts, temp)
}

func (b *agingBlocks) close() {
	if !b.open {
		return
	}
	if b.dur > 0 {
		b.emit(AgingPoint{
			Duration: b.dur,
			Voltage:  stat.Mean(b.vs, nil),
			Current:  stat.Mean(b.is, nil),
			Temp:     stat.Mean(b.ts, nil),
		})
	}
	b.open = false
	b.dur = 0
	b.vs, b.is, b.ts = b.vs[:0], b.is[:0], b.ts[:0]
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
