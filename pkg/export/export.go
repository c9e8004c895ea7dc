// Package export writes simulation traces and check-up results as CSV or
// JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/experiment"
	"github.com/kilianp07/cellage/core/results"
)

// TraceHeader is the column order of trace CSV files.
var TraceHeader = []string{"time", "voltage", "current", "power", "temp_cell", "temp_ambient", "soc"}

// ResultsHeader is the column order of results CSV files.
var ResultsHeader = []string{
	"time", "run_id", "condition", "age_type", "temperature", "soc_min", "soc_max",
	"i_chg", "i_dischg", "profile", "checkup", "cap_remaining", "measured_ah",
	"q_sei", "q_cyclic", "q_cyclic_low", "q_plating",
	"Q_chg", "Q_dischg", "E_chg", "E_dischg",
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteTraceJSON writes samples to w as a JSON array.
func WriteTraceJSON(w io.Writer, samples []battery.Sample) error {
	if samples == nil {
		samples = []battery.Sample{}
	}
	return json.NewEncoder(w).Encode(samples)
}

// WriteTraceCSV writes samples to w, one row per micro-step. Time is in
// Unix seconds.
func WriteTraceCSV(w io.Writer, samples []battery.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TraceHeader); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{
			strconv.FormatInt(s.Time.Unix(), 10),
			ff(s.Voltage),
			ff(s.Current),
			ff(s.Power),
			ff(s.TempCell),
			ff(s.TempAmbient),
			ff(s.SoC),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsCSV writes check-up records to w. The age type is written as
// its numeric code and the profile column is empty for conditions without
// a load profile.
func WriteResultsCSV(w io.Writer, recs []results.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return err
	}
	for _, r := range recs {
		code := ""
		if at, err := experiment.ParseAgeType(r.AgeType); err == nil {
			code = strconv.Itoa(at.Code())
		}
		profile := ""
		if r.Profile >= 0 {
			profile = strconv.Itoa(r.Profile)
		}
		a := r.Aging
		rec := []string{
			r.Time.UTC().Format(time.RFC3339),
			r.RunID,
			r.Condition,
			code,
			ff(r.Temp),
			ff(r.SoCMin),
			ff(r.SoCMax),
			ff(r.IChg),
			ff(r.IDischg),
			profile,
			strconv.Itoa(r.Index),
			ff(r.CapRemaining),
			ff(r.MeasuredAh),
			ff(a.QSEI),
			ff(a.QCyclic),
			ff(a.QCyclicLow),
			ff(a.QPlating),
			ff(a.QChg),
			ff(a.QDischg),
			ff(a.EChg),
			ff(a.EDischg),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsJSON writes check-up records to w as a JSON array.
func WriteResultsJSON(w io.Writer, recs []results.Record) error {
	if recs == nil {
		recs = []results.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// SaveTrace writes samples to path, choosing the format from its extension.
func SaveTrace(path string, samples []battery.Sample) error {
	return save(path, func(w io.Writer, asJSON bool) error {
		if asJSON {
			return WriteTraceJSON(w, samples)
		}
		return WriteTraceCSV(w, samples)
	})
}

// SaveResults writes recs to path, choosing the format from its extension.
func SaveResults(path string, recs []results.Record) error {
	return save(path, func(w io.Writer, asJSON bool) error {
		if asJSON {
			return WriteResultsJSON(w, recs)
		}
		return WriteResultsCSV(w, recs)
	})
}

func save(path string, write func(io.Writer, bool) error) error {
	var asJSON bool
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		asJSON = true
	case ".csv":
	default:
		return fmt.Errorf("export %s: unsupported extension %q", path, ext)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, asJSON); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}
