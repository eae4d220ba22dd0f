// Package data loads and prepares training datasets: CSV tables with a
// trailing label column, and images rescaled into flat feature rows.
package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV reads a numeric CSV file where the last column is the label. A
// non-numeric first row is treated as a header and skipped.
func LoadCSV(path string) (features [][]float64, labels []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("read %s: file is empty", path)
	}

	start := 0
	if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
		start = 1
	}

	for line, record := range records[start:] {
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("%s line %d: need at least one feature and a label", path, start+line+1)
		}
		row := make([]float64, len(record)-1)
		for i, field := range record[:len(record)-1] {
			if row[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("%s line %d column %d: %w", path, start+line+1, i+1, err)
			}
		}
		label, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d label: %w", path, start+line+1, err)
		}
		features = append(features, row)
		labels = append(labels, label)
	}
	return features, labels, nil
}

// MinMaxNormalize rescales every column to [0, 1] in place. Constant columns
// are left untouched.
func MinMaxNormalize(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	for col := range rows[0] {
		lo, hi := rows[0][col], rows[0][col]
		for _, row := range rows {
			if row[col] < lo {
				lo = row[col]
			}
			if row[col] > hi {
				hi = row[col]
			}
		}
		if hi == lo {
			continue
		}
		for _, row := range rows {
			row[col] = (row[col] - lo) / (hi - lo)
		}
	}
}

// OneHot expands class-index labels into one-hot rows.
func OneHot(labels []float64, numClasses int) [][]float64 {
	out := make([][]float64, len(labels))
	for i, label := range labels {
		row := make([]float64, numClasses)
		idx := int(label)
		if idx >= 0 && idx < numClasses {
			row[idx] = 1
		}
		out[i] = row
	}
	return out
}

// Flatten concatenates feature rows into a single slice, row-major.
func Flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}
