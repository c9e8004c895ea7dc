package experiment

import (
	"fmt"
	"strings"

	"github.com/kilianp07/cellage/core/battery"
)

// AgeType is how a cell is operated between check-ups.
type AgeType string

const (
	Calendar AgeType = "calendar"
	Cyclic   AgeType = "cyclic"
	Profile  AgeType = "profile"
)

// AgeTypes lists the types in matrix order.
var AgeTypes = []AgeType{Calendar, Cyclic, Profile}

// ParseAgeType accepts the type name or its short form.
func ParseAgeType(s string) (AgeType, error) {
	for _, a := range AgeTypes {
		if strings.EqualFold(s, string(a)) || strings.EqualFold(s, a.Short()) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown age type %q", s)
}

// Code is the numeric type used in exported tables.
func (a AgeType) Code() int {
	switch a {
	case Cyclic:
		return 1
	case Profile:
		return 2
	default:
		return 0
	}
}

// Short is the three-letter tag used in condition names.
func (a AgeType) Short() string {
	switch a {
	case Cyclic:
		return "CYC"
	case Profile:
		return "PRF"
	default:
		return "CAL"
	}
}

// Window is a cycling voltage range and its approximate SoC range in %.
type Window struct {
	VMin   float64 `json:"v_min"`
	VMax   float64 `json:"v_max"`
	SoCMin float64 `json:"soc_min"`
	SoCMax float64 `json:"soc_max"`
}

// Currents is a discharge/charge current pair in A.
type Currents struct {
	IDischg float64 `json:"i_dischg"`
	IChg    float64 `json:"i_chg"`
}

// Condition is one simulated cell of the matrix.
type Condition struct {
	AgeType AgeType
	Temp    float64 // °C

	// V and SoC apply to calendar aging: the storage voltage and its
	// approximate SoC in %.
	V   float64
	SoC float64

	Window   Window
	Currents Currents

	// ProfileIndex is -1 for non-profile conditions.
	ProfileIndex int
	Profile      battery.Profile
}

// Name identifies the condition in logs, metrics and reports.
func (c Condition) Name() string {
	switch c.AgeType {
	case Cyclic:
		return fmt.Sprintf("CYC %g°C %g-%g%% %+g/%+gA", c.Temp, c.Window.SoCMin, c.Window.SoCMax, c.Currents.IChg, c.Currents.IDischg)
	case Profile:
		return fmt.Sprintf("PRF %g°C %g-%g%% %+gA %s", c.Temp, c.Window.SoCMin, c.Window.SoCMax, c.Currents.IChg, c.Profile.Name)
	default:
		return fmt.Sprintf("CAL %g°C %g%%", c.Temp, c.SoC)
	}
}

// SoCRange returns the SoC labels in % used in exported tables. Calendar
// conditions report their storage SoC as both bounds.
func (c Condition) SoCRange() (float64, float64) {
	if c.AgeType == Calendar {
		return c.SoC, c.SoC
	}
	return c.Window.SoCMin, c.Window.SoCMax
}

// OperatingPoint is where check-ups return the cell to. Calendar cells go
// back to their storage voltage, cycled cells to the bottom of their window.
func (c Condition) OperatingPoint(s Settings) battery.OperatingPoint {
	if c.AgeType == Calendar {
		return battery.OperatingPoint{
			V:            c.V,
			IChg:         s.CalendarCurrents.IChg,
			IDischg:      s.CalendarCurrents.IDischg,
			ChgCutoff:    s.CalendarCutoff,
			DischgCutoff: -s.CalendarCutoff,
			Temp:         c.Temp,
		}
	}
	return battery.OperatingPoint{
		V:            c.Window.VMin,
		IChg:         c.Currents.IChg,
		IDischg:      c.Currents.IDischg,
		ChgCutoff:    s.CyclicCutoff,
		DischgCutoff: -s.CyclicCutoff,
		Temp:         c.Temp,
	}
}
