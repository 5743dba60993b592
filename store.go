package gridcalc

import "fmt"

// minimum dimensions a grid may shrink to
const (
	MinRows = 2
	MinCols = 2
)

// GridStore owns the two parallel 2-D stores: raw values (literal text
// or marker-prefixed formula text) and cached calculated values. the
// declared height and width always equal the dimensions of both stores.
//
// shape operations shift cell contents positionally. dependency edges
// are keyed by cell ID and are not re-keyed to follow shifted cells;
// each formula's edges are rebuilt from its text on its next
// recalculation.
type GridStore struct {
	height int
	width  int
	raw    [][]string
	calc   [][]CellValue

	// invoked after every shape mutation. no-op in headless use.
	rerender func()
}

// NewGridStore creates a store of the given dimensions with empty cells
func NewGridStore(height, width int, rerender func()) *GridStore {
	if rerender == nil {
		rerender = func() {}
	}
	s := &GridStore{
		height:   height,
		width:    width,
		rerender: rerender,
	}
	s.raw = make([][]string, height)
	s.calc = make([][]CellValue, height)
	for r := 0; r < height; r++ {
		s.raw[r] = make([]string, width)
		s.calc[r] = make([]CellValue, width)
	}
	return s
}

// Height returns the declared row count
func (s *GridStore) Height() int {
	return s.height
}

// Width returns the declared column count
func (s *GridStore) Width() int {
	return s.width
}

// InRange reports whether (row, col) addresses a cell of the store
func (s *GridStore) InRange(row, col int) bool {
	return row >= 0 && row < s.height && col >= 0 && col < s.width
}

// RawValue returns the raw value at (row, col), or the empty string if
// out of range
func (s *GridStore) RawValue(row, col int) string {
	if !s.InRange(row, col) {
		return ""
	}
	return s.raw[row][col]
}

// SetRaw stores a raw value without any recalculation side effects
func (s *GridStore) SetRaw(row, col int, value string) {
	s.raw[row][col] = value
}

// CalcValue returns the cached calculated value at (row, col). an
// out-of-range address reads as empty.
func (s *GridStore) CalcValue(row, col int) CellValue {
	if !s.InRange(row, col) {
		return Empty()
	}
	return s.calc[row][col]
}

// SetCalc commits a calculated value to the cache
func (s *GridStore) SetCalc(row, col int, value CellValue) {
	s.calc[row][col] = value
}

// ClearCalc evicts the cached calculated value at (row, col)
func (s *GridStore) ClearCalc(row, col int) {
	s.calc[row][col] = Empty()
}

// AddRow appends an empty row at the bottom
func (s *GridStore) AddRow() {
	s.raw = append(s.raw, make([]string, s.width))
	s.calc = append(s.calc, make([]CellValue, s.width))
	s.height++
	s.rerender()
}

// AddColumn appends an empty column at the right
func (s *GridStore) AddColumn() {
	for r := 0; r < s.height; r++ {
		s.raw[r] = append(s.raw[r], "")
		s.calc[r] = append(s.calc[r], Empty())
	}
	s.width++
	s.rerender()
}

// InsertRowBefore inserts an empty row before idx, shifting idx and
// everything below it down by one
func (s *GridStore) InsertRowBefore(idx int) error {
	if idx < 0 || idx >= s.height {
		return NewAppError(OutOfRange, fmt.Sprintf("row index %d out of range", idx))
	}
	s.raw = append(s.raw, nil)
	copy(s.raw[idx+1:], s.raw[idx:])
	s.raw[idx] = make([]string, s.width)

	s.calc = append(s.calc, nil)
	copy(s.calc[idx+1:], s.calc[idx:])
	s.calc[idx] = make([]CellValue, s.width)

	s.height++
	s.rerender()
	return nil
}

// InsertColumnBefore inserts an empty column before idx, shifting idx
// and everything right of it over by one
func (s *GridStore) InsertColumnBefore(idx int) error {
	if idx < 0 || idx >= s.width {
		return NewAppError(OutOfRange, fmt.Sprintf("column index %d out of range", idx))
	}
	for r := 0; r < s.height; r++ {
		s.raw[r] = append(s.raw[r], "")
		copy(s.raw[r][idx+1:], s.raw[r][idx:])
		s.raw[r][idx] = ""

		s.calc[r] = append(s.calc[r], Empty())
		copy(s.calc[r][idx+1:], s.calc[r][idx:])
		s.calc[r][idx] = Empty()
	}
	s.width++
	s.rerender()
	return nil
}

// RemoveRow removes the row at idx. fails with state unchanged if the
// height would drop below MinRows or idx is out of range.
func (s *GridStore) RemoveRow(idx int) error {
	if s.height <= MinRows {
		return NewAppError(FailedPrecondition, fmt.Sprintf("cannot shrink below %d rows", MinRows))
	}
	if idx < 0 || idx >= s.height {
		return NewAppError(OutOfRange, fmt.Sprintf("row index %d out of range", idx))
	}
	s.raw = append(s.raw[:idx], s.raw[idx+1:]...)
	s.calc = append(s.calc[:idx], s.calc[idx+1:]...)
	s.height--
	s.rerender()
	return nil
}

// RemoveColumn removes the column at idx. fails with state unchanged if
// the width would drop below MinCols or idx is out of range.
func (s *GridStore) RemoveColumn(idx int) error {
	if s.width <= MinCols {
		return NewAppError(FailedPrecondition, fmt.Sprintf("cannot shrink below %d columns", MinCols))
	}
	if idx < 0 || idx >= s.width {
		return NewAppError(OutOfRange, fmt.Sprintf("column index %d out of range", idx))
	}
	for r := 0; r < s.height; r++ {
		s.raw[r] = append(s.raw[r][:idx], s.raw[r][idx+1:]...)
		s.calc[r] = append(s.calc[r][:idx], s.calc[r][idx+1:]...)
	}
	s.width--
	s.rerender()
	return nil
}

// PopRow removes the bottom row
func (s *GridStore) PopRow() error {
	return s.RemoveRow(s.height - 1)
}

// PopColumn removes the rightmost column
func (s *GridStore) PopColumn() error {
	return s.RemoveColumn(s.width - 1)
}
