// dataset models tabular data as an ordered header and rows keyed by column
// name, and loads and saves it as CSV or XLSX
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row maps a column name to the raw text of its cell
type Row map[string]string

// Dataset is an ordered sequence of rows sharing a header
type Dataset struct {
	Header []string
	Rows   []Row
}

var ErrEmptyHeader = errors.New("dataset has no header")

// New builds a dataset from a header and header-ordered records. Records
// shorter than the header are padded with empty cells
func New(header []string, records [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, ErrEmptyHeader
	}

	seen := make(map[string]struct{}, len(header))

	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}

		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate column %q", name)
		}

		seen[name] = struct{}{}
	}

	ds := &Dataset{
		Header: append([]string(nil), header...),
		Rows:   make([]Row, 0, len(records)),
	}

	for i, record := range records {
		if len(record) > len(header) {
			return nil, fmt.Errorf("record %d has %d fields, header has %d", i+1, len(record), len(header))
		}

		row := make(Row, len(header))

		for j, name := range header {
			if j < len(record) {
				row[name] = record[j]
			} else {
				row[name] = ""
			}
		}

		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) HasColumn(name string) bool {
	for _, column := range d.Header {
		if column == name {
			return true
		}
	}

	return false
}

// Column returns the cells of the named column in row order
func (d *Dataset) Column(name string) ([]string, bool) {
	if !d.HasColumn(name) {
		return nil, false
	}

	cells := make([]string, len(d.Rows))

	for i, row := range d.Rows {
		cells[i] = row[name]
	}

	return cells, true
}

// Clone deep copies the dataset so the copy can be mutated freely
func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{
		Header: append([]string(nil), d.Header...),
		Rows:   make([]Row, len(d.Rows)),
	}

	for i, row := range d.Rows {
		clone.Rows[i] = row.Clone()
	}

	return clone
}

func (r Row) Clone() Row {
	clone := make(Row, len(r))

	for k, v := range r {
		clone[k] = v
	}

	return clone
}

// BlankRow returns a row with every column empty
func (d *Dataset) BlankRow() Row {
	row := make(Row, len(d.Header))

	for _, name := range d.Header {
		row[name] = ""
	}

	return row
}

func (d *Dataset) AppendRow(row Row) {
	d.Rows = append(d.Rows, row)
}

// InsertRow places row at index, shifting the rows at and after index down.
// index may equal Len to append
func (d *Dataset) InsertRow(index int, row Row) error {
	if index < 0 || index > len(d.Rows) {
		return fmt.Errorf("row index %d out of range [0, %d]", index, len(d.Rows))
	}

	d.Rows = append(d.Rows, nil)
	copy(d.Rows[index+1:], d.Rows[index:])
	d.Rows[index] = row
	return nil
}

// Records returns the rows as header-ordered string slices
func (d *Dataset) Records() [][]string {
	records := make([][]string, len(d.Rows))

	for i, row := range d.Rows {
		record := make([]string, len(d.Header))

		for j, name := range d.Header {
			record[j] = row[name]
		}

		records[i] = record
	}

	return records
}

var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"null": {},
}

// IsMissing reports whether the cell holds no value
func IsMissing(cell string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// ParseNumber parses a cell into a finite float. missing is true for empty
// and NA-like cells, in which case value and err are zero
func ParseNumber(cell string) (value float64, missing bool, err error) {
	if IsMissing(cell) {
		return 0, true, nil
	}

	value, err = strconv.ParseFloat(strings.TrimSpace(cell), 64)

	if err != nil {
		return 0, false, err
	}

	if math.IsInf(value, 0) {
		return 0, false, fmt.Errorf("%q is not finite", cell)
	}

	return value, false, nil
}

// FormatNumber renders a value with the fewest digits that round trip
func FormatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
