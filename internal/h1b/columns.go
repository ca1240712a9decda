package h1b

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingColumn is matched (via errors.Is) by every MissingColumnError.
var ErrMissingColumn = eris.New("missing required column")

// Field is a logical column the report needs, independent of the header naming scheme.
type Field string

const (
	FieldOccupation Field = "occupation"
	FieldStatus     Field = "status"
	FieldLocation   Field = "location"
)

// columnCandidates lists accepted header names per field, most recent naming scheme first.
// The first name present in the header wins.
var columnCandidates = map[Field][]string{
	FieldOccupation: {"LCA_CASE_SOC_NAME", "SOC_NAME"},
	FieldStatus:     {"STATUS", "CASE_STATUS"},
	FieldLocation:   {"LCA_CASE_WORKLOC1_STATE", "WORKSITE_STATE"},
}

// MissingColumnError reports a field that none of its candidate header names resolved.
type MissingColumnError struct {
	Field      Field
	Candidates []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column for %s (expected one of %s)",
		e.Field, strings.Join(e.Candidates, ", "))
}

// Is reports whether target is ErrMissingColumn.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Columns is the resolved position of each field in a data row.
type Columns struct {
	Occupation int
	Status     int
	Location   int
}

// Max returns the highest resolved index. A row needs more than Max cells to be usable.
func (c Columns) Max() int {
	return max(c.Occupation, c.Status, c.Location)
}

// ResolveColumns locates every field in the header. Names match exactly; a duplicated
// header name resolves to its first position.
func ResolveColumns(header []string) (Columns, error) {
	var cols Columns
	for _, target := range []struct {
		field Field
		dst   *int
	}{
		{FieldOccupation, &cols.Occupation},
		{FieldStatus, &cols.Status},
		{FieldLocation, &cols.Location},
	} {
		idx, ok := firstMatch(header, columnCandidates[target.field])
		if !ok {
			return Columns{}, &MissingColumnError{
				Field:      target.field,
				Candidates: columnCandidates[target.field],
			}
		}
		*target.dst = idx
	}
	return cols, nil
}

// firstMatch returns the header position of the first candidate that is present.
func firstMatch(header, candidates []string) (int, bool) {
	for _, name := range candidates {
		for i, h := range header {
			if h == name {
				return i, true
			}
		}
	}
	return -1, false
}
