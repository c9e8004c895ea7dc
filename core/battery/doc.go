// Package battery implements a lumped electrical, thermal and aging model of
// a single lithium-ion cell.
//
// The leaf models are pure functions of a Parameters value: the OCV curve
// (OCVFromSoC, SoCFromOCV, SoEFromSoC, AnodePotential), the per-step
// electrical and thermal transition (CellStep) and the setpoint resolvers
// (CurrentFromPower, CurrentFromVoltageCurrentLimit, CurrentFromVoltagePowerLimit).
// The aging engine integrates four saturating loss mechanisms over
// block-averaged operating points.
//
// Cell composes them into timed operations. Each operation loops over
// micro-steps, ages the cell block by block, commits the new capacity at the
// end and advances Cell.Now to the next free timestamp:
//
//	p := battery.DefaultParameters()
//	st := battery.Init(p, battery.DefaultInitOptions(p))
//	c := battery.New(p, st, time.Unix(1665593100, 0).UTC(), battery.WithTrace())
//	c.CCCV(battery.CCCVRequest{VLim: 4.2, ILim: 1, ICutoff: 0.15,
//	    Resolution: 5 * time.Second, Ambient: battery.Constant(25)})
//
// Operations never fail. Degenerate input (dead cell, NaN, infeasible
// direction, unbounded repeat) is suppressed and logged at debug level.
package battery
