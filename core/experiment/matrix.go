package experiment

import (
	"errors"
	"fmt"

	"github.com/kilianp07/cellage/core/battery"
)

// ProfileCondition is a profile aging setting: cycling window, the currents
// used to discharge before check-ups and to charge in operation, and the
// name of the power profile.
type ProfileCondition struct {
	Window   Window   `json:"window"`
	Currents Currents `json:"currents"`
	Profile  string   `json:"profile"`
}

// Matrix spans the operating conditions of an aging study. Every list is
// crossed with every temperature.
type Matrix struct {
	Temps []float64 `json:"temps"`

	CalendarVoltages []float64 `json:"calendar_voltages"`
	// CalendarSoCs labels CalendarVoltages in %, index by index.
	CalendarSoCs []float64 `json:"calendar_socs"`

	CyclicWindows  []Window   `json:"cyclic_windows"`
	CyclicCurrents []Currents `json:"cyclic_currents"`

	ProfileConditions []ProfileCondition `json:"profile_conditions"`

	// AgeTypes restricts the matrix. Empty means all types.
	AgeTypes []AgeType `json:"age_types"`
}

// DefaultMatrix is the laboratory study: 4 temperatures, 4 storage
// voltages, 3 cycling windows with 4 current pairs and 3 profile settings.
func DefaultMatrix() Matrix {
	return Matrix{
		Temps:            []float64{0, 10, 25, 40},
		CalendarVoltages: []float64{3.3, 3.736, 4.089, 4.2},
		CalendarSoCs:     []float64{10, 50, 90, 100},
		CyclicWindows: []Window{
			{VMin: 2.5, VMax: 4.2, SoCMin: 0, SoCMax: 100},
			{VMin: 3.249, VMax: 4.2, SoCMin: 10, SoCMax: 100},
			{VMin: 3.249, VMax: 4.092, SoCMin: 10, SoCMax: 90},
		},
		CyclicCurrents: []Currents{
			{IDischg: -1, IChg: 1},
			{IDischg: -3, IChg: 1},
			{IDischg: -3, IChg: 3},
			{IDischg: -3, IChg: 5},
		},
		ProfileConditions: []ProfileCondition{
			{Window: Window{VMin: 3.249, VMax: 4.2, SoCMin: 10, SoCMax: 100}, Currents: Currents{IDischg: -1, IChg: 1}, Profile: "full"},
			{Window: Window{VMin: 3.249, VMax: 4.092, SoCMin: 10, SoCMax: 90}, Currents: Currents{IDischg: -1, IChg: 1}, Profile: "full"},
			{Window: Window{VMin: 3.249, VMax: 4.092, SoCMin: 10, SoCMax: 90}, Currents: Currents{IDischg: -3, IChg: 5}, Profile: "extra_high"},
		},
	}
}

// ProfileSource resolves profile names. profiles.Library implements it.
type ProfileSource interface {
	Get(name string) (battery.Profile, error)
}

// Validate checks the matrix for inconsistent or non-physical entries.
func (m Matrix) Validate() error {
	var errs []error
	if len(m.Temps) == 0 {
		errs = append(errs, errors.New("matrix: no temperatures"))
	}
	if len(m.CalendarSoCs) != 0 && len(m.CalendarSoCs) != len(m.CalendarVoltages) {
		errs = append(errs, fmt.Errorf("matrix: %d calendar SoC labels for %d voltages", len(m.CalendarSoCs), len(m.CalendarVoltages)))
	}
	for i, w := range append(append([]Window{}, m.CyclicWindows...), profileWindows(m.ProfileConditions)...) {
		if w.VMin >= w.VMax {
			errs = append(errs, fmt.Errorf("matrix: window %d has VMin %g >= VMax %g", i, w.VMin, w.VMax))
		}
	}
	for i, c := range m.CyclicCurrents {
		if c.IChg <= 0 || c.IDischg >= 0 {
			errs = append(errs, fmt.Errorf("matrix: current pair %d needs IChg > 0 and IDischg < 0", i))
		}
	}
	for i, p := range m.ProfileConditions {
		if p.Currents.IChg <= 0 || p.Currents.IDischg >= 0 {
			errs = append(errs, fmt.Errorf("matrix: profile condition %d needs IChg > 0 and IDischg < 0", i))
		}
		if p.Profile == "" {
			errs = append(errs, fmt.Errorf("matrix: profile condition %d has no profile", i))
		}
	}
	for _, a := range m.AgeTypes {
		if _, err := ParseAgeType(string(a)); err != nil {
			errs = append(errs, fmt.Errorf("matrix: %w", err))
		}
	}
	return errors.Join(errs...)
}

func profileWindows(pcs []ProfileCondition) []Window {
	out := make([]Window, len(pcs))
	for i, p := range pcs {
		out[i] = p.Window
	}
	return out
}

func (m Matrix) includes(a AgeType) bool {
	if len(m.AgeTypes) == 0 {
		return true
	}
	for _, t := range m.AgeTypes {
		if t == a {
			return true
		}
	}
	return false
}

// Conditions expands the matrix type by type, temperature first. Profile
// names are resolved through src, which may be nil when the matrix has no
// profile conditions.
func (m Matrix) Conditions(src ProfileSource) ([]Condition, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var out []Condition
	if m.includes(Calendar) {
		for _, temp := range m.Temps {
			for i, v := range m.CalendarVoltages {
				soc := 100 * battery.SoCFromOCV(v)
				if len(m.CalendarSoCs) > 0 {
					soc = m.CalendarSoCs[i]
				}
				out = append(out, Condition{AgeType: Calendar, Temp: temp, V: v, SoC: soc, ProfileIndex: -1})
			}
		}
	}
	if m.includes(Cyclic) {
		for _, temp := range m.Temps {
			for _, w := range m.CyclicWindows {
				for _, c := range m.CyclicCurrents {
					out = append(out, Condition{AgeType: Cyclic, Temp: temp, Window: w, Currents: c, ProfileIndex: -1})
				}
			}
		}
	}
	if m.includes(Profile) && len(m.ProfileConditions) > 0 {
		if src == nil {
			return nil, errors.New("matrix: profile conditions need a profile source")
		}
		resolved := make([]battery.Profile, len(m.ProfileConditions))
		for i, pc := range m.ProfileConditions {
			p, err := src.Get(pc.Profile)
			if err != nil {
				return nil, fmt.Errorf("matrix: profile condition %d: %w", i, err)
			}
			resolved[i] = p
		}
		for _, temp := range m.Temps {
			for i, pc := range m.ProfileConditions {
				out = append(out, Condition{
					AgeType:      Profile,
					Temp:         temp,
					Window:       pc.Window,
					Currents:     pc.Currents,
					ProfileIndex: i,
					Profile:      resolved[i],
				})
			}
		}
	}
	return out, nil
}
