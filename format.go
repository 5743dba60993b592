package gridcalc

import (
	"math"
	"strconv"
)

// layout used for temporal display text
const timeDisplayLayout = "1/2/2006 3:04:05 PM"

// Format converts a calculated value to display text. it is a pure
// function dispatched exhaustively over the value union.
func Format(v CellValue) string {
	switch v.Kind {
	case KindEmpty:
		return ""

	case KindNumber:
		if math.IsInf(v.Number, 0) {
			return divZeroMarker
		}
		if math.IsNaN(v.Number) {
			return valueErrorMarker
		}
		return formatNumber(v.Number)

	case KindText:
		return v.Text

	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"

	case KindTime:
		return v.Time.Format(timeDisplayLayout)

	case KindError:
		return v.Err.Error()
	}

	return valueErrorMarker
}

// formatNumber renders canonical numeric text: plain decimal notation
// for ordinary magnitudes, exponent notation past float64's exact
// integer range
func formatNumber(f float64) string {
	if abs := math.Abs(f); abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
