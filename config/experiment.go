package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/cellage/core/experiment"
)

// ExperimentConfig describes an aging study.
type ExperimentConfig struct {
	Settings experiment.Settings `json:"settings"`
	Matrix   experiment.Matrix   `json:"matrix"`
	// Profiles are power profile files added to the built-in library.
	Profiles []string `json:"profiles"`
	// ResultsCSV and Report are written when the study ends. An empty
	// Report skips the HTML page.
	ResultsCSV string `json:"results_csv"`
	Report     string `json:"report"`
}

// SetDefaults applies sane defaults.
func (c *ExperimentConfig) SetDefaults() {
	if c.ResultsCSV == "" {
		c.ResultsCSV = "results.csv"
	}
}

// Validate checks the protocol and the matrix.
func (c ExperimentConfig) Validate() error {
	var errs []error
	if err := c.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Matrix.Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, p := range c.Profiles {
		if p == "" {
			errs = append(errs, fmt.Errorf("profiles[%d] is empty", i))
		}
	}
	return errors.Join(errs...)
}
