package experiment

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/kilianp07/cellage/core/battery"
)

// Settings are the protocol constants shared by every condition.
type Settings struct {
	// Start is when the first cell leaves storage.
	Start   time.Time           `json:"start"`
	Storage battery.InitOptions `json:"storage"`
	// InitialPause lets the cell settle at room temperature before the
	// first check-up.
	InitialPause time.Duration `json:"initial_pause"`

	FirstInterval time.Duration `json:"first_interval"`
	NextInterval  time.Duration `json:"next_interval"`
	MaxCheckups   int           `json:"max_checkups"`
	// EndOfLife stops a run once a check-up measures less than this
	// fraction of the nominal capacity.
	EndOfLife float64 `json:"end_of_life"`

	ActiveRes    time.Duration `json:"active_res"`
	RestRes      time.Duration `json:"rest_res"`
	CyclingPause time.Duration `json:"cycling_pause"`

	CalendarCurrents Currents `json:"calendar_currents"`
	CalendarCutoff   float64  `json:"calendar_cutoff"`
	CyclicCutoff     float64  `json:"cyclic_cutoff"`

	// ThermalResistance overrides battery.Parameters.RTh for the test
	// chamber (K/W). Zero keeps the cell parameter.
	ThermalResistance float64 `json:"thermal_resistance"`

	Protocol battery.CheckupProtocol `json:"protocol"`

	// Workers bounds the number of cells simulated at once.
	Workers int `json:"workers"`
}

// DefaultSettings returns the laboratory protocol: 685 days of storage
// before the study, check-ups after 7 and then every 21 days, liquid
// cooled cells.
func DefaultSettings(p battery.Parameters) Settings {
	return Settings{
		Start: time.Unix(1665593100, 0).UTC(),
		Storage: battery.InitOptions{
			CapInitial:  p.CapInitial,
			StorageDays: 685,
			StorageSoC:  0.267,
			StorageTemp: 18,
		},
		InitialPause:      2 * time.Hour,
		FirstInterval:     7 * 24 * time.Hour,
		NextInterval:      21 * 24 * time.Hour,
		MaxCheckups:       3,
		EndOfLife:         0.5,
		ActiveRes:         5 * time.Second,
		RestRes:           60 * time.Second,
		CyclingPause:      5 * time.Minute,
		CalendarCurrents:  Currents{IDischg: -1, IChg: 1},
		CalendarCutoff:    0.15,
		CyclicCutoff:      0.3,
		ThermalResistance: 3,
		Protocol:          battery.DefaultCheckupProtocol(),
		Workers:           runtime.NumCPU(),
	}
}

// Validate rejects settings under which a run would not progress.
func (s Settings) Validate() error {
	var errs []error
	if s.MaxCheckups < 1 {
		errs = append(errs, fmt.Errorf("max_checkups must be >= 1, got %d", s.MaxCheckups))
	}
	if s.FirstInterval <= 0 || s.NextInterval <= 0 {
		errs = append(errs, errors.New("check-up intervals must be positive"))
	}
	if s.ActiveRes <= 0 || s.RestRes <= 0 {
		errs = append(errs, errors.New("resolutions must be positive"))
	}
	if s.Protocol.ActiveRes <= 0 || s.Protocol.RestRes <= 0 {
		errs = append(errs, errors.New("check-up protocol resolutions must be positive"))
	}
	if s.EndOfLife < 0 || s.EndOfLife > 2 {
		errs = append(errs, fmt.Errorf("end_of_life %g outside [0, 2]", s.EndOfLife))
	}
	if s.CalendarCutoff <= 0 || s.CyclicCutoff <= 0 {
		errs = append(errs, errors.New("cutoff currents must be positive"))
	}
	if s.CalendarCurrents.IChg <= 0 || s.CalendarCurrents.IDischg >= 0 {
		errs = append(errs, errors.New("calendar currents need IChg > 0 and IDischg < 0"))
	}
	if s.ThermalResistance < 0 {
		errs = append(errs, fmt.Errorf("thermal_resistance %g is negative", s.ThermalResistance))
	}
	if s.Storage.StorageDays < 0 {
		errs = append(errs, fmt.Errorf("storage_days %d is negative", s.Storage.StorageDays))
	}
	return errors.Join(errs...)
}

// workers returns the pool size, at least one.
func (s Settings) workers() int {
	if s.Workers < 1 {
		return 1
	}
	return s.Workers
}
