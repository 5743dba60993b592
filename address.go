package gridcalc

import (
	"fmt"
	"strconv"
)

// CellID is the stable string identifier of a cell: spreadsheet-style
// column letters followed by a 1-based row number ("A1", "AB12"). the
// mapping is bijective and does not change when the grid is resized.
type CellID string

// AddressOf converts zero-based (row, col) coordinates to a cell ID
func AddressOf(row, col int) CellID {
	return CellID(columnLetters(col) + strconv.Itoa(row+1))
}

// PositionOf converts a cell ID back to zero-based (row, col)
// coordinates. it is the inverse of AddressOf.
func PositionOf(id CellID) (row, col int, err error) {
	s := string(id)
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, NewAppError(InvalidArgument, fmt.Sprintf("invalid cell id %q", s))
	}
	n, convErr := strconv.Atoi(s[i:])
	if convErr != nil || n < 1 {
		return 0, 0, NewAppError(InvalidArgument, fmt.Sprintf("invalid cell id %q", s))
	}
	return n - 1, col - 1, nil
}

// columnLetters converts a zero-based column index to letters: 0 -> A,
// 25 -> Z, 26 -> AA
func columnLetters(col int) string {
	letters := make([]byte, 0, 3)
	for col >= 0 {
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col = col/26 - 1
	}
	return string(letters)
}
