package battery

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParameters is returned by Parameters.Validate.
var ErrInvalidParameters = errors.New("invalid cell parameters")

// KelvinOffset converts °C to K.
const KelvinOffset = 273.15

// Parameters is the immutable cell configuration shared by all operations.
type Parameters struct {
	VMax       float64 `json:"v_max"`
	VMin       float64 `json:"v_min"`
	IMaxChg    float64 `json:"i_max_chg"`
	IMinDischg float64 `json:"i_min_dischg"`

	// R0 is the resistance of a fresh cell, RAge the increase at full fade.
	R0   float64 `json:"r0"`
	RAge float64 `json:"r_age"`

	// RTh [K/W] and CTh [J/K] form the single thermal node.
	RTh float64 `json:"r_th"`
	CTh float64 `json:"c_th"`

	CapNominal float64 `json:"cap_nominal"` // Ah
	ENominal   float64 `json:"e_nominal"`   // Wh
	VNominal   float64 `json:"v_nominal"`
	CapInitial float64 `json:"cap_initial"` // Ah, before storage aging

	// AgeApplyPeriod is the block length used to average V, I and T before
	// integrating aging.
	AgeApplyPeriod time.Duration `json:"age_apply_period"`

	Aging AgingParameters `json:"aging"`
}

// AgingParameters are the fitted constants of the four loss mechanisms.
type AgingParameters struct {
	TRef float64 `json:"t_ref"` // K
	VRef float64 `json:"v_ref"` // V

	// SEI growth.
	S0 float64 `json:"s0"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`

	// Cyclic wearout.
	W0 float64 `json:"w0"`
	W1 float64 `json:"w1"`
	W2 float64 `json:"w2"`
	W3 float64 `json:"w3"`

	// Low-voltage wearout. C2 is the voltage threshold.
	C0 float64 `json:"c0"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
	C3 float64 `json:"c3"`

	// Lithium plating. P2 is the temperature threshold in K.
	P0 float64 `json:"p0"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
	P3 float64 `json:"p3"`
	P4 float64 `json:"p4"`
	P5 float64 `json:"p5"`
	P6 float64 `json:"p6"`
}

// DefaultParameters returns the fitted parameter set of the modelled cell.
func DefaultParameters() Parameters {
	return Parameters{
		VMax:           4.2,
		VMin:           2.5,
		IMaxChg:        5.0,
		IMinDischg:     -6.0,
		R0:             0.05,
		RAge:           0.1,
		RTh:            15,
		CTh:            30,
		CapNominal:     3.0,
		ENominal:       11.0,
		VNominal:       3.6,
		CapInitial:     3.0 * 1.03,
		AgeApplyPeriod: 30 * time.Second,
		Aging:          DefaultAgingParameters(),
	}
}

// DefaultAgingParameters returns the fitted aging constants.
func DefaultAgingParameters() AgingParameters {
	return AgingParameters{
		TRef: 25 + KelvinOffset,
		VRef: 3.73,

		S0: 1.49e-9,
		S1: -2375,
		S2: 1.2,
		S3: 1.78e-8,

		W0: 2.67e-7,
		W1: 2.25,
		W2: 0.14,
		W3: 9.5e-7,

		C0: 3.60e-5,
		C1: 1050,
		C2: 3.2,
		C3: 2.47e-4,

		P0: 0.07,
		P1: 0.029,
		P2: 41.5 + KelvinOffset,
		P3: 3.5,
		P4: 0.33,
		P5: 5.3e-8,
		P6: 2.15,
	}
}

// Validate checks that the parameters describe a physical cell.
func (p Parameters) Validate() error {
	switch {
	case p.R0 <= 0:
		return fmt.Errorf("%w: r0 must be positive", ErrInvalidParameters)
	case p.RAge < 0:
		return fmt.Errorf("%w: r_age must not be negative", ErrInvalidParameters)
	case p.VMax <= p.VMin:
		return fmt.Errorf("%w: v_max %.3f must exceed v_min %.3f", ErrInvalidParameters, p.VMax, p.VMin)
	case p.IMaxChg <= 0 || p.IMinDischg >= 0:
		return fmt.Errorf("%w: current limits must bracket zero", ErrInvalidParameters)
	case p.RTh <= 0 || p.CTh <= 0:
		return fmt.Errorf("%w: thermal resistance and capacitance must be positive", ErrInvalidParameters)
	case p.CapNominal <= 0:
		return fmt.Errorf("%w: cap_nominal must be positive", ErrInvalidParameters)
	case p.CapInitial < 0:
		return fmt.Errorf("%w: cap_initial must not be negative", ErrInvalidParameters)
	case p.AgeApplyPeriod <= 0:
		return fmt.Errorf("%w: age_apply_period must be positive", ErrInvalidParameters)
	case p.VNominal <= 0:
		return fmt.Errorf("%w: v_nominal must be positive", ErrInvalidParameters)
	}
	return nil
}

// RCell returns the internal resistance for the given remaining capacity.
// It grows linearly as the cell fades.
func (p Parameters) RCell(capRemaining float64) float64 {
	return p.R0 + p.RAge*(1-capRemaining/p.CapNominal)
}

// ThermalTimeConstant returns RTh*CTh.
func (p Parameters) ThermalTimeConstant() time.Duration {
	return time.Duration(p.RTh * p.CTh * float64(time.Second))
}

// LimitCurrent clamps i to [IMinDischg, IMaxChg].
func (p Parameters) LimitCurrent(i float64) float64 {
	return clamp(i, p.IMinDischg, p.IMaxChg)
}

// LimitVoltage clamps v to [VMin, VMax].
func (p Parameters) LimitVoltage(v float64) float64 {
	return clamp(v, p.VMin, p.VMax)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
