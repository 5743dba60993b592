package gridcalc

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ImportXLSX loads one worksheet of an .xlsx file into the grid through
// LoadGrid. cell text is taken as raw values, so formula-marked cells
// are evaluated by the engine rather than trusting the file's cached
// results.
func ImportXLSX(path, sheet string, g *Grid) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return NewAppError(InvalidArgument, fmt.Sprintf("cannot open workbook: %v", err))
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return NewAppError(NotFound, fmt.Sprintf("cannot read sheet %q: %v", sheet, err))
	}
	return g.LoadGrid(rows)
}

// SheetNames lists the worksheets of an .xlsx file
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, NewAppError(InvalidArgument, fmt.Sprintf("cannot open workbook: %v", err))
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
