// Package fundamentals declares the column catalogs of the financial
// statement datasets as plain data. The catalogs are large enumerations of
// line items (name and human-readable description), so they live in an
// embedded CSV rather than per-field declarations in code.
package fundamentals

import (
	"bytes"
	"encoding/csv"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"sync"
)

//go:embed columns.csv
var columnsCSV []byte

// Column is one line item of a dataset.
type Column struct {
	Name        string
	Description string
}

var (
	loadOnce sync.Once
	loadErr  error
	catalogs map[string][]Column
)

// load parses the embedded catalog. Rows are dataset,name,description.
func load() {
	r := csv.NewReader(bytes.NewReader(columnsCSV))
	r.FieldsPerRecord = 3

	header, err := r.Read()
	if err != nil {
		loadErr = fmt.Errorf("reading column catalog header: %w", err)
		return
	}
	if header[0] != "dataset" || header[1] != "name" || header[2] != "description" {
		loadErr = fmt.Errorf("unexpected column catalog header: %v", header)
		return
	}

	catalogs = make(map[string][]Column)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			loadErr = fmt.Errorf("reading column catalog: %w", err)
			return
		}
		catalogs[rec[0]] = append(catalogs[rec[0]], Column{Name: rec[1], Description: rec[2]})
	}
}

// Datasets returns the catalog's dataset names, sorted.
func Datasets() ([]string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Columns returns the line items of one dataset in catalog order.
func Columns(dataset string) ([]Column, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	cols, ok := catalogs[dataset]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", dataset)
	}
	return cols, nil
}
