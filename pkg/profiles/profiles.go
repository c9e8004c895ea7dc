// Package profiles loads power profiles for profile aging and provides
// synthetic drive cycles when no measured profile is available.
package profiles

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cellage/core/battery"
)

// ErrUnsupportedFormat is returned for file extensions other than
// .yaml, .yml, .json and .csv.
var ErrUnsupportedFormat = errors.New("profiles: unsupported format")

// DefaultResolution applies when a file does not specify one.
const DefaultResolution = time.Second

type fileProfile struct {
	Name       string    `json:"name" yaml:"name"`
	Resolution string    `json:"resolution" yaml:"resolution"`
	Scale      float64   `json:"scale" yaml:"scale"`
	Power      []float64 `json:"power" yaml:"power"`
}

func (f fileProfile) profile() (battery.Profile, error) {
	res := DefaultResolution
	if f.Resolution != "" {
		d, err := time.ParseDuration(f.Resolution)
		if err != nil {
			return battery.Profile{}, fmt.Errorf("resolution: %w", err)
		}
		res = d
	}
	scale := f.Scale
	if scale == 0 {
		scale = 1
	}
	p := battery.Profile{Name: f.Name, Resolution: res, Power: make([]float64, len(f.Power))}
	for i, v := range f.Power {
		p.Power[i] = v * scale
	}
	return p, Validate(p)
}

// Validate rejects profiles the cell cannot replay.
func Validate(p battery.Profile) error {
	if p.Resolution <= 0 {
		return fmt.Errorf("profile %q: resolution %s must be positive", p.Name, p.Resolution)
	}
	if len(p.Power) == 0 {
		return fmt.Errorf("profile %q: no samples", p.Name)
	}
	for i, v := range p.Power {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("profile %q: sample %d is not finite", p.Name, i)
		}
	}
	return nil
}

// Decode reads a profile in the given format: "yaml", "json" or "csv".
// CSV files hold one power value per row in a column named "power"; a file
// without that header is read as a single unnamed column.
func Decode(r io.Reader, format string) (battery.Profile, error) {
	var f fileProfile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&f); err != nil {
			return battery.Profile{}, fmt.Errorf("decode yaml profile: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return battery.Profile{}, fmt.Errorf("decode json profile: %w", err)
		}
	case "csv":
		power, err := readCSV(r)
		if err != nil {
			return battery.Profile{}, err
		}
		f.Power = power
	default:
		return battery.Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return f.profile()
}

func readCSV(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv profile: %w", err)
	}
	col := 0
	if len(rows) > 0 {
		for i, h := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(h), "power") {
				col = i
				rows = rows[1:]
				break
			}
		}
	}
	out := make([]float64, 0, len(rows))
	for n, row := range rows {
		if col >= len(row) {
			return nil, fmt.Errorf("csv profile row %d: missing column %d", n+1, col)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("csv profile row %d: %w", n+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Load reads a profile file. The format follows the extension and the name
// defaults to the file's base name.
func Load(path string) (battery.Profile, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "json", "csv":
	default:
		return battery.Profile{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return battery.Profile{}, err
	}
	defer func() { _ = f.Close() }()
	p, err := Decode(f, ext)
	if err != nil {
		return battery.Profile{}, fmt.Errorf("load %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Library resolves profiles by name.
type Library map[string]battery.Profile

// NewLibrary starts from the synthetic profiles and adds or replaces entries
// with the given files, keyed by profile name.
func NewLibrary(files ...string) (Library, error) {
	lib := Library{}
	for _, name := range SyntheticNames() {
		p, _ := Synthetic(name)
		lib[name] = p
	}
	for _, path := range files {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		lib[p.Name] = p
	}
	return lib, nil
}

// Get returns the named profile.
func (l Library) Get(name string) (battery.Profile, error) {
	p, ok := l[name]
	if !ok {
		return battery.Profile{}, fmt.Errorf("unknown profile %q (have %s)", name, strings.Join(l.Names(), ", "))
	}
	return p, nil
}

// Names lists the profile names in lexical order.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
