// Package timeseries holds exogenous inputs such as ambient temperature or
// electricity prices and evaluates them at arbitrary timestamps.
//
// A Series is immutable after construction and safe for concurrent use by
// any number of simulations.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrEmpty is returned when a series has no points.
	ErrEmpty = errors.New("timeseries: no points")
	// ErrUnsorted is returned when timestamps are not strictly increasing.
	ErrUnsorted = errors.New("timeseries: timestamps not strictly increasing")
)

// Point is one observation.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a piecewise linear function of time. Outside its range it is
// held at the first or last value, or wrapped when built with Wrap.
type Series struct {
	name  string
	start time.Time
	end   time.Time
	wrap  bool
	pl    *interp.PiecewiseLinear
	// single is used when the series has one point.
	single *float64
}

// Option configures a Series.
type Option func(*Series)

// Wrap repeats the series outside its range, so a year of temperature data
// can drive a multi-year simulation.
func Wrap() Option { return func(s *Series) { s.wrap = true } }

// Named attaches a name used in log lines and errors.
func Named(name string) Option { return func(s *Series) { s.name = name } }

// New builds a series from points ordered by time.
func New(points []Point, opts ...Option) (*Series, error) {
	s := &Series{}
	for _, o := range opts {
		o(s)
	}
	if len(points) == 0 {
		return nil, s.wrapErr(ErrEmpty)
	}
	s.start, s.end = points[0].Time, points[len(points)-1].Time
	if len(points) == 1 {
		v := points[0].Value
		s.single = &v
		return s, nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = s.offset(p.Time)
		ys[i] = p.Value
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, s.wrapErr(fmt.Errorf("%w: point %d at %s", ErrUnsorted, i, p.Time.Format(time.RFC3339)))
		}
	}
	s.pl = &interp.PiecewiseLinear{}
	if err := s.pl.Fit(xs, ys); err != nil {
		return nil, s.wrapErr(err)
	}
	return s, nil
}

func (s *Series) wrapErr(err error) error {
	if s.name == "" {
		return err
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

// offset is seconds since the first point.
func (s *Series) offset(t time.Time) float64 { return t.Sub(s.start).Seconds() }

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Span returns the first and last timestamps.
func (s *Series) Span() (time.Time, time.Time) { return s.start, s.end }

// At returns the interpolated value at t.
func (s *Series) At(t time.Time) float64 {
	if s.single != nil {
		return *s.single
	}
	x := s.offset(t)
	if s.wrap {
		period := s.offset(s.end)
		x -= period * math.Floor(x/period)
	}
	return s.pl.Predict(x)
}
