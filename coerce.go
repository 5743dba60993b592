package gridcalc

import (
	"strconv"
	"strings"
	"time"
)

// layouts accepted when coercing raw text to a temporal value
var coerceTimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
}

// CoerceLiteral converts raw cell text to a literal calculated value:
// number, boolean, temporal, or text, in that order of preference.
// empty text coerces to the empty value.
func CoerceLiteral(raw string) CellValue {
	if raw == "" {
		return Empty()
	}

	trimmed := strings.TrimSpace(raw)

	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(n)
	}

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}

	for _, layout := range coerceTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return TimeValue(t)
		}
	}

	return Text(raw)
}
