// Package models holds the study specification and result structures shared
// by the loader, runner, reporters, and cache.
package models

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/exchangelabs/permutest/internal/permutation"
)

// Study is a complete two-sample study specification, normally loaded from
// a study.yaml file.
type Study struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Samples     Samples            `yaml:"samples"`
	Config      permutation.Config `yaml:"config,omitempty"`
}

// Samples names the two observation sources of a study.
type Samples struct {
	Control   SampleRef `yaml:"control"`
	Treatment SampleRef `yaml:"treatment"`
}

// SampleRef points at one observation source. In YAML it is either a plain
// scalar path or a mapping with path/column/format keys:
//
//	control: control.dat
//	treatment: {path: trial.csv, column: days}
type SampleRef struct {
	Path   string `yaml:"path" json:"path" mapstructure:"path"`
	Column string `yaml:"column,omitempty" json:"column,omitempty" mapstructure:"column"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" mapstructure:"format"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (r *SampleRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&r.Path)
	}

	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      r,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("sample reference: %w", err)
	}
	return nil
}

// LoadStudy loads and validates a study from a YAML file. Decoding is
// strict: an unknown key anywhere in the document is an error, so a typo
// like trails_per_worker fails the load instead of silently falling back to
// the default. Missing config values are defaulted to the standard trial
// budget.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading study file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var study Study
	if err := dec.Decode(&study); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	study.ApplyDefaults()
	if err := study.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &study, nil
}

// ApplyDefaults fills unset config values with the standard trial budget.
func (s *Study) ApplyDefaults() {
	if s.Config.Workers == 0 {
		s.Config.Workers = permutation.DefaultWorkers
	}
	if s.Config.TrialsPerWorker == 0 {
		s.Config.TrialsPerWorker = permutation.DefaultTrialsPerWorker
	}
}

// Validate checks that the study is runnable.
func (s *Study) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("study name is required")
	}
	if s.Samples.Control.Path == "" {
		return fmt.Errorf("samples.control is required")
	}
	if s.Samples.Treatment.Path == "" {
		return fmt.Errorf("samples.treatment is required")
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	return nil
}
