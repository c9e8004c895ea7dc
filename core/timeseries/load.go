package timeseries

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/cellage/core/logger"
)

// TimeUnix selects Unix seconds (fractions allowed) in CSVOptions.TimeLayout.
const TimeUnix = "unix"

// CSVOptions describes a delimited file with a header row.
type CSVOptions struct {
	TimeColumn  string `json:"time_column"`
	ValueColumn string `json:"value_column"`
	// Comma is the field separator, "," when empty.
	Comma string `json:"comma"`
	// TimeLayout is a time.Parse layout or TimeUnix. Empty means RFC 3339.
	TimeLayout string `json:"time_layout"`
	// Location is used for layouts without a zone. Nil means UTC.
	Location *time.Location `json:"-"`
	// DecimalComma accepts values such as "49,98".
	DecimalComma bool `json:"decimal_comma"`
	// Scale multiplies every value. Zero means 1.
	Scale float64 `json:"scale"`
	Wrap  bool    `json:"wrap"`
}

// LoadCSV reads a series from r. Rows whose time or value cannot be parsed
// are logged and skipped.
func LoadCSV(r io.Reader, o CSVOptions, log logger.Logger) (*Series, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	cr := csv.NewReader(r)
	if o.Comma != "" {
		cr.Comma = []rune(o.Comma)[0]
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	tCol, vCol := indexOf(header, o.TimeColumn), indexOf(header, o.ValueColumn)
	if tCol < 0 || vCol < 0 {
		return nil, fmt.Errorf("columns %q and %q required, header is %v", o.TimeColumn, o.ValueColumn, header)
	}
	scale := o.Scale
	if scale == 0 {
		scale = 1
	}
	var points []Point
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if tCol >= len(rec) || vCol >= len(rec) {
			log.Warnf("timeseries: line %d skipped: %d fields", line, len(rec))
			continue
		}
		ts, err := parseTime(rec[tCol], o)
		if err != nil {
			log.Warnf("timeseries: line %d skipped: %v", line, err)
			continue
		}
		v, err := parseValue(rec[vCol], o.DecimalComma)
		if err != nil {
			log.Warnf("timeseries: line %d skipped: %v", line, err)
			continue
		}
		points = append(points, Point{Time: ts, Value: v * scale})
	}
	var opts []Option
	if o.Wrap {
		opts = append(opts, Wrap())
	}
	return New(points, opts...)
}

// LoadJSON reads an array of {"time", "value"} objects.
func LoadJSON(r io.Reader, opts ...Option) (*Series, error) {
	var points []Point
	if err := json.NewDecoder(r).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return New(points, opts...)
}

// LoadFile picks the decoder from the file extension: .json, otherwise CSV.
func LoadFile(path string, o CSVOptions, log logger.Logger) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var s *Series
	if strings.EqualFold(filepath.Ext(path), ".json") {
		opts := []Option{Named(name)}
		if o.Wrap {
			opts = append(opts, Wrap())
		}
		s, err = LoadJSON(f, opts...)
	} else {
		s, err = LoadCSV(f, o, log)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.name = name
	return s, nil
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == col {
			return i
		}
	}
	return -1
}

func parseTime(s string, o CSVOptions) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch o.TimeLayout {
	case TimeUnix:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, fmt.Errorf("invalid unix time %q", s)
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case "":
		return time.Parse(time.RFC3339, s)
	default:
		loc := o.Location
		if loc == nil {
			loc = time.UTC
		}
		return time.ParseInLocation(o.TimeLayout, s, loc)
	}
}

func parseValue(s string, decimalComma bool) (float64, error) {
	s = strings.TrimSpace(s)
	if decimalComma {
		s = strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
