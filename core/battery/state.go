package battery

import "time"

// State is the mutable condition of a cell carried between operations.
type State struct {
	SoC          float64    `json:"soc"`
	TempCell     float64    `json:"temp_cell"`     // °C
	CapRemaining float64    `json:"cap_remaining"` // Ah, 0 means dead
	Aging        AgingState `json:"aging"`
}

// AgingState holds the four relative loss fractions and the lifetime
// throughput counters. Counters are positive totals and only used for
// reporting.
type AgingState struct {
	QSEI       float64 `json:"q_sei"`
	QCyclic    float64 `json:"q_cyclic"`
	QCyclicLow float64 `json:"q_cyclic_low"`
	QPlating   float64 `json:"q_plating"`
	QChg       float64 `json:"q_chg"`    // Ah
	QDischg    float64 `json:"q_dischg"` // Ah
	EChg       float64 `json:"e_chg"`    // Wh
	EDischg    float64 `json:"e_dischg"` // Wh
}

// QLossTotal returns the sum of the four loss fractions.
func (a AgingState) QLossTotal() float64 {
	return a.QSEI + a.QCyclic + a.QCyclicLow + a.QPlating
}

// InitOptions describes the pre-use storage applied by Init.
type InitOptions struct {
	CapInitial  float64 `json:"cap_initial"` // Ah
	StorageDays int     `json:"storage_days"`
	StorageSoC  float64 `json:"storage_soc"`
	StorageTemp float64 `json:"storage_temp"` // °C
}

// DefaultInitOptions returns 30 days of storage at 25 % SoC and 18 °C.
func DefaultInitOptions(p Parameters) InitOptions {
	return InitOptions{
		CapInitial:  p.CapInitial,
		StorageDays: 30,
		StorageSoC:  0.25,
		StorageTemp: 18,
	}
}

const storageStep = 24 * time.Hour

// Init returns a fresh cell state after calendar aging in storage. The cell
// is assumed to sit in thermal equilibrium at the storage temperature.
func Init(p Parameters, o InitOptions) State {
	st := State{
		SoC:          o.StorageSoC,
		TempCell:     o.StorageTemp,
		CapRemaining: o.CapInitial,
	}
	pt := AgingPoint{
		Duration: storageStep.Seconds(),
		Voltage:  OCVFromSoC(o.StorageSoC),
		Temp:     o.StorageTemp,
	}
	for d := 0; d < o.StorageDays; d++ {
		st.CapRemaining, st.Aging = p.ApplyAging(st.CapRemaining, st.Aging, pt)
	}
	return st
}
