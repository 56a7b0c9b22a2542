// Package dataset loads observation sequences from on-disk formats.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	// The reader locks the field count to the header row's, so every record
	// returned by ReadAll has exactly len(headers) fields.
	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ColumnFloat64s extracts one named column from a CSV file as float64
// observations. Every cell of the column must parse as a finite float64;
// the first offending row aborts the load with its row number.
func ColumnFloat64s(path, column string) ([]float64, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(rows))
	for i, row := range rows {
		cell, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("csv: %s has no column %q", path, column)
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("csv: %s row %d column %q: not a number: %q", path, i+2, column, cell)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("csv: %s row %d column %q: non-finite value %q", path, i+2, column, cell)
		}
		values = append(values, v)
	}

	return values, nil
}

// ReadFloat64Lines parses the plain observation format: one float64 literal
// per line, no header, no delimiters. Blank lines and unparseable lines are
// fatal, reported with the given name and the 1-based line number. Non-finite
// values (NaN, Inf) are rejected.
func ReadFloat64Lines(r io.Reader, name string) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	var values []float64
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: not a number: %q", name, line, text)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s:%d: non-finite value %q", name, line, text)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: read: %w", name, err)
	}
	return values, nil
}
