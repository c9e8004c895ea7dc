package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/metrics"
)

// fastSettings shortens storage and intervals so a run takes a few
// simulated days.
func fastSettings() Settings {
	s := DefaultSettings(battery.DefaultParameters())
	s.Storage.StorageDays = 30
	s.FirstInterval = 24 * time.Hour
	s.NextInterval = 2 * 24 * time.Hour
	s.MaxCheckups = 2
	s.Workers = 4
	return s
}

var (
	calendarCond = Condition{AgeType: Calendar, Temp: 40, V: 3.736, SoC: 50, ProfileIndex: -1}
	cyclicCond   = Condition{
		AgeType:      Cyclic,
		Temp:         25,
		Window:       Window{VMin: 3.249, VMax: 4.092, SoCMin: 10, SoCMax: 90},
		Currents:     Currents{IDischg: -3, IChg: 3},
		ProfileIndex: -1,
	}
	profileCond = Condition{
		AgeType:  Profile,
		Temp:     25,
		Window:   Window{VMin: 3.249, VMax: 4.092, SoCMin: 10, SoCMax: 90},
		Currents: Currents{IDischg: -1, IChg: 1},
		Profile:  battery.Profile{Name: "steady", Resolution: time.Second, Power: constant(600, -6)},
	}
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func collect(ctx context.Context, t *testing.T, s Settings, c Condition) (Outcome, []battery.CheckupResult) {
	t.Helper()
	var cus []battery.CheckupResult
	out, err := Simulate(ctx, battery.DefaultParameters(), s, c, func(i int, r battery.CheckupResult) error {
		assert.Equal(t, len(cus)+1, i)
		cus = append(cus, r)
		return nil
	})
	require.NoError(t, err)
	return out, cus
}

func TestSimulate_Calendar(t *testing.T) {
	s := fastSettings()
	out, cus := collect(context.Background(), t, s, calendarCond)

	assert.Equal(t, metrics.RunCompleted, out.Status)
	assert.Equal(t, 2, out.Checkups)
	require.Len(t, cus, 2)
	assert.Less(t, cus[1].CapRemaining, cus[0].CapRemaining)

	firstStart := s.Start.Add(s.InitialPause)
	assert.True(t, cus[0].Start.Equal(firstStart))
	want := firstStart.Add(s.FirstInterval)
	if cus[0].End.After(want) {
		want = cus[0].End
	}
	assert.True(t, cus[1].Start.Equal(want), "second check-up starts at %s, want %s", cus[1].Start, want)
	assert.True(t, out.End.Equal(cus[1].End))
	assert.InDelta(t, 3.736, battery.OCVFromSoC(out.Final.SoC), 0.01)
}

func TestSimulate_CyclicEndOfLife(t *testing.T) {
	s := fastSettings()
	s.EndOfLife = 1.1
	out, cus := collect(context.Background(), t, s, cyclicCond)

	assert.Equal(t, metrics.RunEndOfLife, out.Status)
	assert.Equal(t, 1, out.Checkups)
	assert.Len(t, cus, 1)
	due := s.Start.Add(s.InitialPause + s.FirstInterval)
	assert.False(t, out.End.Before(due), "cycling runs until the next check-up is due")
}

func TestSimulate_CalendarEndOfLife(t *testing.T) {
	s := fastSettings()
	s.EndOfLife = 1.1
	s.MaxCheckups = 5
	out, cus := collect(context.Background(), t, s, calendarCond)

	assert.Equal(t, metrics.RunEndOfLife, out.Status)
	assert.Equal(t, 2, out.Checkups, "the initial check-up never ends a run")
	assert.Len(t, cus, 2)
}

func TestSimulate_ProfileThroughput(t *testing.T) {
	// A check-up alone takes about a day, so leave room for many profile cycles.
	s := fastSettings()
	s.FirstInterval = 4 * 24 * time.Hour
	_, calCus := collect(context.Background(), t, s, calendarCond)
	prf, cus := collect(context.Background(), t, s, profileCond)

	assert.Equal(t, metrics.RunCompleted, prf.Status)
	require.Len(t, cus, 2)
	require.Len(t, calCus, 2)

	// Between two check-ups a calendar cell only discharges inside the second
	// check-up; a profile cell also replays roughly 9 Wh per cycle.
	calGain := calCus[1].Aging.EDischg - calCus[0].Aging.EDischg
	prfGain := cus[1].Aging.EDischg - cus[0].Aging.EDischg
	assert.Greater(t, prfGain, calGain+50, "profile cycling discharges the cell")
	assert.Less(t, prf.Final.CapRemaining, cus[0].CapRemaining)
}

func TestSimulate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := Simulate(ctx, battery.DefaultParameters(), fastSettings(), calendarCond, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.RunCanceled, out.Status)
	assert.Zero(t, out.Checkups)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	out, err = Simulate(ctx, battery.DefaultParameters(), fastSettings(), calendarCond, func(int, battery.CheckupResult) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.RunCanceled, out.Status)
	assert.Equal(t, 1, out.Checkups)
	assert.Greater(t, out.Final.CapRemaining, 0.0)
}

func TestSimulate_Failures(t *testing.T) {
	boom := errors.New("disk full")
	out, err := Simulate(context.Background(), battery.DefaultParameters(), fastSettings(), calendarCond,
		func(int, battery.CheckupResult) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "check-up 1")
	assert.Equal(t, metrics.RunFailed, out.Status)

	bad := calendarCond
	bad.AgeType = "storage"
	out, err = Simulate(context.Background(), battery.DefaultParameters(), fastSettings(), bad, nil)
	assert.ErrorContains(t, err, `unknown age type "storage"`)
	assert.Equal(t, metrics.RunFailed, out.Status)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		errMsg string
	}{
		{"checkups", func(s *Settings) { s.MaxCheckups = 0 }, "max_checkups"},
		{"interval", func(s *Settings) { s.NextInterval = 0 }, "intervals"},
		{"resolution", func(s *Settings) { s.RestRes = 0 }, "resolutions"},
		{"protocol", func(s *Settings) { s.Protocol.ActiveRes = 0 }, "protocol"},
		{"end of life", func(s *Settings) { s.EndOfLife = 3 }, "end_of_life"},
		{"cutoff", func(s *Settings) { s.CyclicCutoff = -0.3 }, "cutoff"},
		{"calendar currents", func(s *Settings) { s.CalendarCurrents.IDischg = 1 }, "calendar currents"},
		{"thermal", func(s *Settings) { s.ThermalResistance = -1 }, "thermal_resistance"},
		{"storage", func(s *Settings) { s.Storage.StorageDays = -1 }, "storage_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings(battery.DefaultParameters())
			tt.mutate(&s)
			assert.ErrorContains(t, s.Validate(), tt.errMsg)
		})
	}
	assert.NoError(t, DefaultSettings(battery.DefaultParameters()).Validate())
}
