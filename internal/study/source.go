// Package study orchestrates one hypothesis-test run: it resolves and loads
// the two observation sources, computes the empirical means and the observed
// difference, invokes the permutation engine, and assembles the outcome.
package study

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/exchangelabs/permutest/internal/dataset"
	"github.com/exchangelabs/permutest/internal/models"
)

//go:generate go tool mockgen -source=source.go -destination=source_mock.go -package=study

// Source supplies one observation sequence. Implementations cover local
// plain-text and gzip files, CSV columns, and Azure blob URLs.
type Source interface {
	// Label names the sample ("control" or "treatment") for diagnostics.
	Label() string

	// Describe returns a human-readable locator for the data.
	Describe() string

	// Load reads and parses the full observation sequence. Any I/O or
	// format problem is fatal for the run.
	Load(ctx context.Context) ([]float64, error)
}

// Resolve maps a sample reference to a concrete source. Relative local paths
// are resolved against baseDir. Remote references (az:// or an Azure blob
// https URL) become blob sources; everything else is resolved by the
// explicit format or the file extension.
func Resolve(ref models.SampleRef, label, baseDir string) (Source, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("%s: sample path is required", label)
	}

	if strings.HasPrefix(ref.Path, "az://") || isBlobURL(ref.Path) {
		return newBlobSource(ref.Path, label)
	}

	path := ref.Path
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	format := ref.Format
	if format == "" {
		switch {
		case strings.HasSuffix(path, ".csv"):
			format = "csv"
		default:
			format = "dat"
		}
	}

	switch format {
	case "csv":
		if ref.Column == "" {
			return nil, fmt.Errorf("%s: csv source %s requires a column", label, path)
		}
		return &csvSource{label: label, path: path, column: ref.Column}, nil
	case "dat":
		return &fileSource{label: label, path: path, gzipped: strings.HasSuffix(path, ".gz")}, nil
	default:
		return nil, fmt.Errorf("%s: unknown sample format %q", label, format)
	}
}

func isBlobURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && strings.Contains(u.Host, ".blob.core.windows.net")
}

// fileSource reads the line-per-value format, transparently
// decompressing .gz files.
type fileSource struct {
	label   string
	path    string
	gzipped bool
}

func (s *fileSource) Label() string    { return s.label }
func (s *fileSource) Describe() string { return s.path }

func (s *fileSource) Load(_ context.Context) ([]float64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%s sample: %w", s.label, err)
	}
	defer f.Close() //nolint:errcheck

	if !s.gzipped {
		return dataset.ReadFloat64Lines(f, s.path)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s sample: %s: %w", s.label, s.path, err)
	}
	defer gz.Close() //nolint:errcheck
	return dataset.ReadFloat64Lines(gz, s.path)
}

// csvSource reads one named column from a headed CSV file.
type csvSource struct {
	label  string
	path   string
	column string
}

func (s *csvSource) Label() string    { return s.label }
func (s *csvSource) Describe() string { return fmt.Sprintf("%s#%s", s.path, s.column) }

func (s *csvSource) Load(_ context.Context) ([]float64, error) {
	values, err := dataset.ColumnFloat64s(s.path, s.column)
	if err != nil {
		return nil, fmt.Errorf("%s sample: %w", s.label, err)
	}
	return values, nil
}
