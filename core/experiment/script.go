package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/metrics"
)

// CheckupFunc receives every check-up of a run. Index counts from 1.
// Returning an error aborts the run.
type CheckupFunc func(index int, res battery.CheckupResult) error

// Outcome is the end state of one simulated cell.
type Outcome struct {
	// Status is a metrics.Run* constant.
	Status   string
	Checkups int
	Final    battery.State
	// Start and End bound the simulated study, storage excluded.
	Start time.Time
	End   time.Time
}

// Simulate runs one condition on a fresh cell: storage, a settling pause,
// an initial check-up, then aging phases each followed by a check-up until
// MaxCheckups or end of life. ctx is checked between operations; on
// cancellation the partial outcome is returned with ctx.Err().
func Simulate(ctx context.Context, p battery.Parameters, s Settings, cond Condition, onCheckup CheckupFunc, opts ...battery.Option) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: metrics.RunCanceled, Start: s.Start}, err
	}
	if s.ThermalResistance > 0 {
		p.RTh = s.ThermalResistance
	}
	storage := s.Storage
	if storage.CapInitial == 0 {
		storage.CapInitial = p.CapInitial
	}
	cell := battery.New(p, battery.Init(p, storage), s.Start, opts...)
	out := Outcome{Status: metrics.RunCompleted, Start: s.Start}
	finish := func(status string, err error) (Outcome, error) {
		out.Status = status
		out.Final = cell.State
		out.End = cell.Now
		return out, err
	}

	room := battery.Constant(s.Protocol.TempRoom)
	cell.Pause(s.InitialPause, s.RestRes, room)

	op := cond.OperatingPoint(s)
	endCap := s.EndOfLife * p.CapNominal
	amb := battery.Constant(cond.Temp)

	checkup := func() error {
		res := cell.Checkup(s.Protocol, op)
		out.Checkups++
		if onCheckup == nil {
			return nil
		}
		if err := onCheckup(out.Checkups, res); err != nil {
			return fmt.Errorf("check-up %d: %w", out.Checkups, err)
		}
		return nil
	}

	nextCheckup := cell.Now.Add(s.FirstInterval)
	if err := checkup(); err != nil {
		return finish(metrics.RunFailed, err)
	}
	for out.Checkups < s.MaxCheckups {
		if err := ctx.Err(); err != nil {
			return finish(metrics.RunCanceled, err)
		}
		switch cond.AgeType {
		case Calendar:
			cell.PauseUntil(nextCheckup, s.RestRes, amb)
		case Cyclic:
			cell.Cycles(battery.CyclesRequest{
				EndMax:        nextCheckup,
				VMax:          cond.Window.VMax,
				VMin:          cond.Window.VMin,
				IChg:          cond.Currents.IChg,
				IDischg:       cond.Currents.IDischg,
				ChgCutoff:     s.CyclicCutoff,
				DischgCutoff:  -s.CyclicCutoff,
				Rest:          s.CyclingPause,
				ActiveRes:     s.ActiveRes,
				RestRes:       s.RestRes,
				StartCharging: true,
				Ambient:       amb,
			})
			if cell.CapRemaining < endCap {
				return finish(metrics.RunEndOfLife, nil)
			}
		case Profile:
			cell.ProfileCycles(battery.ProfileCyclesRequest{
				EndMax:        nextCheckup,
				VMax:          cond.Window.VMax,
				VMin:          cond.Window.VMin,
				IChg:          cond.Currents.IChg,
				ChgCutoff:     s.CyclicCutoff,
				Profile:       cond.Profile,
				Rest:          s.CyclingPause,
				ChargeRes:     s.ActiveRes,
				RestRes:       s.RestRes,
				StartCharging: true,
				Ambient:       amb,
			})
		default:
			return finish(metrics.RunFailed, fmt.Errorf("unknown age type %q", cond.AgeType))
		}
		if err := ctx.Err(); err != nil {
			return finish(metrics.RunCanceled, err)
		}

		nextCheckup = cell.Now.Add(s.NextInterval)
		if err := checkup(); err != nil {
			return finish(metrics.RunFailed, err)
		}
		if cell.CapRemaining < endCap {
			return finish(metrics.RunEndOfLife, nil)
		}
	}
	return finish(metrics.RunCompleted, nil)
}
