package outlier

import "fmt"

// InvalidParameterError is returned when the count, multiplier or an option
// is out of range
type InvalidParameterError struct {
	Parameter string
	msg       string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Parameter, e.msg)
}

type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column '%s' not found in dataset", e.Column)
}

// NonNumericColumnError: the column holds a value that is not a number, or no
// numbers at all in which case Row is -1
type NonNumericColumnError struct {
	Column string
	Row    int
	Value  string
}

func (e *NonNumericColumnError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column '%s' contains no numeric values", e.Column)
	}

	return fmt.Sprintf("column '%s' must be numeric: row %d holds %q", e.Column, e.Row+1, e.Value)
}
