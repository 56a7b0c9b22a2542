// Package synth draws synthetic observation samples from named
// distributions, for building null-case and power-check datasets.
package synth

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution draws one observation at a time.
type Distribution interface {
	Rand() float64
}

type normalParams struct {
	Mean   float64 `mapstructure:"mean"`
	Stddev float64 `mapstructure:"stddev"`
}

type lognormalParams struct {
	Mu    float64 `mapstructure:"mu"`
	Sigma float64 `mapstructure:"sigma"`
}

type uniformParams struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type exponentialParams struct {
	Rate float64 `mapstructure:"rate"`
}

// Names lists the supported distribution names.
func Names() []string {
	names := []string{"normal", "lognormal", "uniform", "exponential"}
	sort.Strings(names)
	return names
}

// New builds a named distribution from loosely-typed parameters (as parsed
// from --param key=value flags). Unknown parameter keys are rejected so a
// typo fails loudly rather than silently using a default.
func New(name string, params map[string]any, seed uint64) (Distribution, error) {
	src := rand.NewSource(seed)

	switch name {
	case "normal":
		p := normalParams{Mean: 0, Stddev: 1}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Stddev <= 0 {
			return nil, fmt.Errorf("normal: stddev must be positive, got %v", p.Stddev)
		}
		return distuv.Normal{Mu: p.Mean, Sigma: p.Stddev, Src: src}, nil

	case "lognormal":
		p := lognormalParams{Mu: 0, Sigma: 1}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Sigma <= 0 {
			return nil, fmt.Errorf("lognormal: sigma must be positive, got %v", p.Sigma)
		}
		return distuv.LogNormal{Mu: p.Mu, Sigma: p.Sigma, Src: src}, nil

	case "uniform":
		p := uniformParams{Min: 0, Max: 1}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Max <= p.Min {
			return nil, fmt.Errorf("uniform: max (%v) must exceed min (%v)", p.Max, p.Min)
		}
		return distuv.Uniform{Min: p.Min, Max: p.Max, Src: src}, nil

	case "exponential":
		p := exponentialParams{Rate: 1}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Rate <= 0 {
			return nil, fmt.Errorf("exponential: rate must be positive, got %v", p.Rate)
		}
		return distuv.Exponential{Rate: p.Rate, Src: src}, nil

	default:
		return nil, fmt.Errorf("unknown distribution %q (supported: %v)", name, Names())
	}
}

// Sample draws n observations.
func Sample(dist Distribution, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = dist.Rand()
	}
	return values
}

func decodeParams(params map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("distribution parameters: %w", err)
	}
	return nil
}
