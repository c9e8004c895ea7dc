package battery

import "time"

// Sampler returns a value at an arbitrary timestamp.
// *timeseries.Series implements it.
type Sampler interface {
	At(t time.Time) float64
}

type ambientKind uint8

const (
	ambientConstant ambientKind = iota
	ambientRamp
	ambientSeries
)

// Ambient is the ambient or coolant temperature (°C) seen by an operation.
// The zero value is a constant 0 °C.
type Ambient struct {
	kind     ambientKind
	value    float64
	from, to float64
	series   Sampler
}

// Constant holds the ambient temperature at v.
func Constant(v float64) Ambient { return Ambient{kind: ambientConstant, value: v} }

// Ramp moves linearly from one temperature towards another over the steps of
// the operation, excluding the end point.
func Ramp(from, to float64) Ambient { return Ambient{kind: ambientRamp, from: from, to: to} }

// FromSeries samples s at each step's timestamp. A nil sampler behaves as
// Constant(0).
func FromSeries(s Sampler) Ambient {
	if s == nil {
		return Constant(0)
	}
	return Ambient{kind: ambientSeries, series: s}
}

// ambientFunc returns the temperature of step k starting at t.
type ambientFunc func(k int, t time.Time) float64

// resolve picks the lookup once for an operation of n steps.
func (a Ambient) resolve(n int) ambientFunc {
	switch a.kind {
	case ambientRamp:
		if n <= 0 {
			return func(int, time.Time) float64 { return a.from }
		}
		step := (a.to - a.from) / float64(n)
		return func(k int, _ time.Time) float64 { return a.from + step*float64(k) }
	case ambientSeries:
		return func(_ int, t time.Time) float64 { return a.series.At(t) }
	default:
		v := a.value
		return func(int, time.Time) float64 { return v }
	}
}
