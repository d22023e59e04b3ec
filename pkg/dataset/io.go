package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

var (
	ErrEmptyInput        = errors.New("input is empty")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// IOError wraps a failure to read or write a dataset with the operation and path
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err.Error())
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatFromPath derives the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func resolveFormat(path string, format Format) (Format, error) {
	if format == "" {
		return FormatFromPath(path)
	}

	if format != CSV && format != XLSX {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return format, nil
}

// Load reads the dataset at path. An empty format is derived from the extension
func Load(path string, format Format) (*Dataset, error) {
	format, err := resolveFormat(path, format)

	if err != nil {
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}

	var ds *Dataset

	switch format {
	case XLSX:
		ds, err = ReadXLSX(path)
	default:
		ds, err = readCSVFile(path)
	}

	if err != nil {
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}

	return ds, nil
}

// Save writes the dataset to path, replacing any existing file
func Save(path string, format Format, ds *Dataset) error {
	format, err := resolveFormat(path, format)

	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}

	switch format {
	case XLSX:
		err = WriteXLSX(path, ds)
	default:
		err = writeCSVFile(path, ds)
	}

	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}

	return nil
}

func readCSVFile(path string) (*Dataset, error) {
	file, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	return ReadCSV(bufio.NewReader(file))
}

// ReadCSV parses a CSV stream whose first record is the header
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)

	records, err := reader.ReadAll()

	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	return New(header, records[1:])
}

func writeCSVFile(path string, ds *Dataset) error {
	file, err := os.Create(path)

	if err != nil {
		return err
	}

	writer := bufio.NewWriter(file)

	if err := WriteCSV(writer, ds); err != nil {
		file.Close()
		return err
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// WriteCSV writes the header followed by every row
func WriteCSV(w io.Writer, ds *Dataset) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ds.Header); err != nil {
		return err
	}

	if err := writer.WriteAll(ds.Records()); err != nil {
		return err
	}

	return writer.Error()
}

// ReadXLSX reads the first sheet of a workbook, the first row being the header
func ReadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	sheets := f.GetSheetList()

	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})

	if err != nil {
		return nil, err
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyInput
	}

	return New(rows[0], rows[1:])
}

// WriteXLSX writes the dataset into the first sheet of a new workbook.
// Cells holding a canonical number are stored as numbers
func WriteXLSX(path string, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(ds.Header))

	for i, name := range ds.Header {
		header[i] = name
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, record := range ds.Records() {
		cells := make([]interface{}, len(record))

		for j, cell := range record {
			cells[j] = xlsxValue(cell)
		}

		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)

	if err != nil {
		return err
	}

	return f.SetSheetRow(sheet, cell, &cells)
}

func xlsxValue(cell string) interface{} {
	value, err := strconv.ParseFloat(cell, 64)

	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || FormatNumber(value) != cell {
		return cell
	}

	return value
}
