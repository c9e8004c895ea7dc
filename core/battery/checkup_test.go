package battery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOperatingPoint = OperatingPoint{V: 3.736, IChg: 1, IDischg: -1, ChgCutoff: 0.15, DischgCutoff: -0.15, Temp: 40}

func checkupCell(opts ...Option) *Cell {
	p := DefaultParameters()
	c := New(p, Init(p, DefaultInitOptions(p)), t0, opts...)
	c.Pause(2*time.Hour, time.Minute, Constant(25))
	return c
}

func TestCheckup_CapacityFades(t *testing.T) {
	c := checkupCell()
	proto := DefaultCheckupProtocol()

	first := c.Checkup(proto, testOperatingPoint)
	assert.Equal(t, t0.Add(2*time.Hour), first.Start)
	assert.Equal(t, c.Now, first.End)
	assert.InDelta(t, 85755, first.End.Sub(first.Start).Seconds(), 60)
	assert.InDelta(t, 3.0579652951836964, first.MeasuredAh, 1e-4)
	assert.InDelta(t, 3.0580805155089443, first.CapRemaining, 1e-4)
	assert.InDelta(t, 3.736, c.OCV(), 0.01, "back at the operating point")

	c.Pause(21*24*time.Hour, time.Minute, Constant(40))
	assert.InDelta(t, 3.0466550918058877, c.CapRemaining, 1e-4)

	second := c.Checkup(proto, testOperatingPoint)
	assert.InDelta(t, 3.023557499554678, second.MeasuredAh, 1e-4)
	assert.InDelta(t, 3.0254586601442663, second.CapRemaining, 1e-4)
	assert.Less(t, second.MeasuredAh, first.MeasuredAh)
	assert.Greater(t, second.Aging.QSEI, first.Aging.QSEI)
	assert.Greater(t, second.Aging.QChg, first.Aging.QChg)
}

func TestCheckup_TraceDoesNotChangeResult(t *testing.T) {
	fast := checkupCell()
	full := checkupCell(WithTrace())
	proto := DefaultCheckupProtocol()

	a := fast.Checkup(proto, testOperatingPoint)
	b := full.Checkup(proto, testOperatingPoint)
	assert.Equal(t, a, b)
	assert.Equal(t, fast.State, full.State)
	assert.Equal(t, fast.Now, full.Now)
	require.NotZero(t, full.Trace.Len())
	since := full.Trace.Since(a.Start)
	require.NotEmpty(t, since)
	assert.Equal(t, a.Start, since[0].Time)
}

func TestCheckup_DeadCell(t *testing.T) {
	c := New(DefaultParameters(), State{SoC: 0.5, TempCell: 25}, t0)
	res := c.Checkup(DefaultCheckupProtocol(), testOperatingPoint)
	assert.Equal(t, t0, res.Start)
	assert.Equal(t, t0, res.End)
	assert.Zero(t, res.MeasuredAh)
	assert.Equal(t, t0, c.Now)
}
