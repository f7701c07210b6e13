// Package report builds the option-chain dashboard: it reads an uploaded
// option sheet, derives the underlying NSE tickers, classifies each one with
// the SMA/EMA crossover rules and renders spreadsheets and charts.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidFormat is returned for files that are not .csv, .xlsx or .xlsm.
	ErrInvalidFormat = errors.New("invalid file format, expected .csv, .xlsx or .xlsm")

	// ErrMissingColumns means the option symbol CE/PE columns were not found.
	ErrMissingColumns = errors.New("'option symbol ce' or 'option symbol pe' column not found")
)

const (
	ceColumn = "option symbol ce"
	peColumn = "option symbol pe"
)

// Sheet is an uploaded table with normalized (trimmed, lower-cased) headers.
type Sheet struct {
	Headers []string
	Rows    [][]string
	CECol   string
	PECol   string
}

// LoadSheet parses an upload by file extension. Every cell is kept as text.
func LoadSheet(name string, r io.Reader) (*Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrInvalidFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("load %s: empty file: %w", name, ErrMissingColumns)
	}
	return newSheet(rows[0], rows[1:])
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// newSheet drops unnamed columns (blank headers or "unnamed..." ones left by
// spreadsheet exports) and locates the CE/PE symbol columns.
func newSheet(header []string, body [][]string) (*Sheet, error) {
	var keep []int
	s := &Sheet{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "" || strings.HasPrefix(h, "unnamed") {
			continue
		}
		keep = append(keep, i)
		s.Headers = append(s.Headers, h)
		if s.CECol == "" && strings.Contains(h, ceColumn) {
			s.CECol = h
		}
		if s.PECol == "" && strings.Contains(h, peColumn) {
			s.PECol = h
		}
	}
	if s.CECol == "" || s.PECol == "" {
		return nil, ErrMissingColumns
	}
	for _, rec := range body {
		row := make([]string, len(keep))
		for j, i := range keep {
			if i < len(rec) {
				row[j] = strings.TrimSpace(rec[i])
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// Column returns the non-empty values of the named column in row order.
func (s *Sheet) Column(name string) []string {
	idx := -1
	for i, h := range s.Headers {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []string
	for _, row := range s.Rows {
		if v := row[idx]; v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CESymbols returns the distinct CE option symbols.
func (s *Sheet) CESymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range s.Column(s.CECol) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// SheetFromBytes is LoadSheet over an in-memory upload.
func SheetFromBytes(name string, data []byte) (*Sheet, error) {
	return LoadSheet(name, bytes.NewReader(data))
}
