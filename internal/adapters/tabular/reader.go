// Package tabular reads per-frame CSV exports and writes derived
// per-recording tables.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/facewin/internal/domain/derive"
)

// Table is an in-memory CSV with whitespace-trimmed column names.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// ReadFile reads the CSV at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses a CSV stream. The first record is the header. Rows may be
// ragged; absent cells read as missing.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	t := &Table{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.columns[i] = name
		// first occurrence wins for duplicated names
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// Columns returns the trimmed header.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether column is present.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Row returns a view of data row i.
func (t *Table) Row(i int) derive.Row { return row{t: t, cells: t.rows[i]} }

type row struct {
	t     *Table
	cells []string
}

// Float parses the named cell. Absent, empty and non-finite cells are
// missing.
func (r row) Float(column string) (float64, bool) {
	i, ok := r.t.index[column]
	if !ok || i >= len(r.cells) {
		return 0, false
	}
	s := strings.TrimSpace(r.cells[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
