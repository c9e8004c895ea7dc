package battery

import "time"

// Sample is one recorded micro-step. Voltage and power refer to the start
// of the step, temperature and SoC to its end.
type Sample struct {
	Time        time.Time `json:"time"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	Power       float64   `json:"power"`
	TempCell    float64   `json:"temp_cell"`
	TempAmbient float64   `json:"temp_ambient"`
	SoC         float64   `json:"soc"`
}

// Trace accumulates samples across operations.
type Trace struct {
	Samples []Sample `json:"samples"`
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Samples) }

// Since returns the samples at or after ts.
func (t *Trace) Since(ts time.Time) []Sample {
	for i, s := range t.Samples {
		if !s.Time.Before(ts) {
			return t.Samples[i:]
		}
	}
	return nil
}

// Reset drops all samples and keeps the allocation.
func (t *Trace) Reset() { t.Samples = t.Samples[:0] }

// Column extracts one field of every sample.
func (t *Trace) Column(field func(Sample) float64) []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = field(s)
	}
	return out
}

// Field selectors for Column.
func Voltage(s Sample) float64  { return s.Voltage }
func Current(s Sample) float64  { return s.Current }
func Power(s Sample) float64    { return s.Power }
func TempCell(s Sample) float64 { return s.TempCell }
func SoC(s Sample) float64      { return s.SoC }
