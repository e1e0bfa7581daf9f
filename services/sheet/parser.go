// Package sheet reads result uploads from xlsx workbooks.
package sheet

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/grading"
)

// Columns expected on the header row, in any order.
var Columns = []string{"student_id", "course", "quiz", "assignment", "midterm", "final"}

var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// ParseResults reads the first worksheet of r. Rows without a student id are skipped
// and marks that are not numbers count as 0.
func ParseResults(r io.Reader) ([]grading.NewResult, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheets[0])
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	var missing []core.FieldError
	for _, col := range Columns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, core.FieldError{Field: col, Error: "missing column"})
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(errors.New("invalid header row"), missing...)
	}

	results := make([]grading.NewResult, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(col string) string {
			if i := colIdx[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		id := get("student_id")
		if id == "" {
			continue
		}
		results = append(results, grading.NewResult{
			StudentID:  id,
			Course:     get("course"),
			Quiz:       mark(get("quiz")),
			Assignment: mark(get("assignment")),
			Midterm:    mark(get("midterm")),
			Final:      mark(get("final")),
		})
	}
	return results, nil
}

func mark(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
