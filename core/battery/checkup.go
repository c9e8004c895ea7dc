package battery

import "time"

// CheckupProtocol is the scripted reference test run between aging
// intervals.
type CheckupProtocol struct {
	Rest       time.Duration `json:"rest"`
	TempChange time.Duration `json:"temp_change"`
	TempWait   time.Duration `json:"temp_wait"`
	Dwell      time.Duration `json:"dwell"`

	VPrepare     float64 `json:"v_prepare"`
	VMax         float64 `json:"v_max"`
	VMin         float64 `json:"v_min"`
	IChg         float64 `json:"i_chg"`
	IDischg      float64 `json:"i_dischg"`
	ChgCutoff    float64 `json:"chg_cutoff"`
	DischgCutoff float64 `json:"dischg_cutoff"`
	TempRoom     float64 `json:"temp_room"`

	// ReferenceSoCs are visited in ascending order while charging and in
	// descending order while discharging.
	ReferenceSoCs []float64 `json:"reference_socs"`

	ActiveRes time.Duration `json:"active_res"`
	RestRes   time.Duration `json:"rest_res"`
}

// DefaultCheckupProtocol returns the laboratory protocol of the aging study.
func DefaultCheckupProtocol() CheckupProtocol {
	return CheckupProtocol{
		Rest:          5 * time.Minute,
		TempChange:    45 * time.Minute,
		TempWait:      45 * time.Minute,
		Dwell:         30 * time.Minute,
		VPrepare:      2.6,
		VMax:          4.2,
		VMin:          2.5,
		IChg:          1.0,
		IDischg:       -1.0,
		ChgCutoff:     0.15,
		DischgCutoff:  -0.15,
		TempRoom:      25,
		ReferenceSoCs: []float64{0.1, 0.3, 0.5, 0.7, 0.9},
		ActiveRes:     5 * time.Second,
		RestRes:       60 * time.Second,
	}
}

// OperatingPoint is where the cell returns to after a check-up.
type OperatingPoint struct {
	V            float64 `json:"v"`
	IChg         float64 `json:"i_chg"`
	IDischg      float64 `json:"i_dischg"`
	ChgCutoff    float64 `json:"chg_cutoff"`
	DischgCutoff float64 `json:"dischg_cutoff"`
	Temp         float64 `json:"temp"`
}

// CheckupResult summarises one check-up.
type CheckupResult struct {
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	CapRemaining float64    `json:"cap_remaining"`
	MeasuredAh   float64    `json:"measured_ah"`
	Aging        AgingState `json:"aging"`
}

// Checkup runs the protocol: ramp to room temperature and soak, prepare
// discharge, one full capacity cycle, charge steps with dwell at each
// reference SoC, ramp back to the operating temperature and soak, discharge
// steps through the reference SoCs and a final charge to op.V.
//
// MeasuredAh is the charge delivered by the discharge half of the capacity
// cycle.
func (c *Cell) Checkup(proto CheckupProtocol, op OperatingPoint) CheckupResult {
	res := CheckupResult{Start: c.Now}
	if c.Dead() {
		c.log.Debugf("checkup skipped: cell has no usable capacity")
		res.End = c.Now
		res.Aging = c.Aging
		return res
	}
	room := Constant(proto.TempRoom)
	opTemp := Constant(op.Temp)
	cccv := func(v, i, cutoff float64, amb Ambient) {
		c.CCCV(CCCVRequest{VLim: v, ILim: i, ICutoff: cutoff, Resolution: proto.ActiveRes, Ambient: amb})
	}
	pause := func(d time.Duration, amb Ambient) { c.Pause(d, proto.RestRes, amb) }

	pause(proto.TempChange, Ramp(op.Temp, proto.TempRoom))
	pause(proto.TempWait, room)

	cccv(proto.VPrepare, op.IDischg, op.DischgCutoff, room)
	pause(proto.Rest, room)
	cccv(proto.VMin, proto.IDischg, proto.DischgCutoff, room)
	pause(proto.Rest, room)

	cccv(proto.VMax, proto.IChg, proto.ChgCutoff, room)
	pause(proto.Rest, room)
	capTop, socTop := c.CapRemaining, c.SoC
	cccv(proto.VMin, proto.IDischg, proto.DischgCutoff, room)
	res.MeasuredAh = (socTop - c.SoC) * capTop
	pause(proto.Rest, room)

	for _, soc := range proto.ReferenceSoCs {
		cccv(OCVFromSoC(soc), proto.IChg, proto.ChgCutoff, room)
		pause(proto.Rest+proto.Dwell, room)
	}

	pause(proto.TempChange, Ramp(proto.TempRoom, op.Temp))
	pause(proto.TempWait, opTemp)

	for k := len(proto.ReferenceSoCs) - 1; k >= 0; k-- {
		cccv(OCVFromSoC(proto.ReferenceSoCs[k]), proto.IDischg, proto.DischgCutoff, opTemp)
		pause(proto.Rest+proto.Dwell, opTemp)
	}

	cccv(op.V, op.IChg, op.ChgCutoff, opTemp)

	res.End = c.Now
	res.CapRemaining = c.CapRemaining
	res.Aging = c.Aging
	return res
}
