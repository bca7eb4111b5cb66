// Package dataset loads labeled measurement tables from CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyDataset  = errors.New("dataset has no complete rows")
	ErrMissingColumn = errors.New("missing column")
)

// Dataset is a numeric table. Missing cells hold NaN.
type Dataset struct {
	Columns []string
	Rows    [][]float64
}

// Load reads a CSV file with a header row.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	ds, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV from r. A leading byte order mark is dropped.
func Read(r io.Reader) (*Dataset, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	ds := &Dataset{Columns: columns}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(record))
		for i, cell := range record {
			value, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, columns[i], err)
			}
			row[i] = value
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// Column returns the index of a named column.
func (d *Dataset) Column(name string) (int, error) {
	for i, c := range d.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}

// DropIncomplete returns a copy without rows that have a missing value in
// any column.
func (d *Dataset) DropIncomplete() *Dataset {
	out := &Dataset{Columns: d.Columns, Rows: make([][]float64, 0, len(d.Rows))}
	for _, row := range d.Rows {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Select extracts the feature matrix and integer labels.
func (d *Dataset) Select(features []string, label string) ([][]float64, []int, error) {
	featureIdx := make([]int, len(features))
	for i, name := range features {
		idx, err := d.Column(name)
		if err != nil {
			return nil, nil, err
		}
		featureIdx[i] = idx
	}
	labelIdx, err := d.Column(label)
	if err != nil {
		return nil, nil, err
	}
	if len(d.Rows) == 0 {
		return nil, nil, ErrEmptyDataset
	}

	x := make([][]float64, len(d.Rows))
	y := make([]int, len(d.Rows))
	for i, row := range d.Rows {
		vector := make([]float64, len(featureIdx))
		for j, idx := range featureIdx {
			vector[j] = row[idx]
		}
		value := row[labelIdx]
		if value != math.Trunc(value) {
			return nil, nil, fmt.Errorf("row %d: label %v is not an integer", i+1, value)
		}
		x[i] = vector
		y[i] = int(value)
	}
	return x, y, nil
}
