package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellStep(t *testing.T) {
	p := DefaultParameters()
	soc, v, pw, temp := p.CellStep(60, 0.5, 3.75, 3, 25, 25, 3, 0.05)
	assert.InDelta(t, 0.5+3*60/(3*3600.0), soc, 1e-12)
	assert.InDelta(t, 3.9, v, 1e-12)
	assert.InDelta(t, 11.7, pw, 1e-12)
	// 0.45 W of loss heats the cell by RTh*pLoss/tau per second.
	assert.InDelta(t, 25+15*0.45/450*60, temp, 1e-12)

	soc, _, _, _ = p.CellStep(60, 0.5, 3.75, 3, 25, 25, 0, 0.05)
	assert.Equal(t, 0.5, soc, "no capacity, no SoC change")
}

func TestThermalStep(t *testing.T) {
	p := DefaultParameters()
	assert.Equal(t, 25.0, p.ThermalStep(60, 25, 25, 0))
	assert.InDelta(t, 30-5.0/450*60, p.ThermalStep(60, 30, 25, 0), 1e-12)
	assert.Greater(t, p.ThermalStep(60, 25, 25, 1), 25.0)
}
