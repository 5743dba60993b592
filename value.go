package gridcalc

import (
	"math"
	"time"
)

// ValueKind identifies which member of the calculated-value union a
// CellValue carries
type ValueKind uint8

const (
	KindEmpty  ValueKind = 0 // never evaluated / cleared
	KindNumber ValueKind = 1
	KindText   ValueKind = 2
	KindBool   ValueKind = 3
	KindTime   ValueKind = 4
	KindError  ValueKind = 5
)

// ErrorKind classifies a ComputeError by where it originated
type ErrorKind uint8

const (
	ErrKindSyntax    ErrorKind = 1 // formula failed to compile
	ErrKindEval      ErrorKind = 2 // formula failed at runtime
	ErrKindReference ErrorKind = 3 // reference to an unknown grid or cell
)

// errorMarkers maps error kinds to their display marker text following
// spreadsheet conventions
var errorMarkers = map[ErrorKind]string{
	ErrKindSyntax:    "#ERROR!",
	ErrKindEval:      "#VALUE!",
	ErrKindReference: "#REF!",
}

const (
	divZeroMarker    = "#DIV/0!"
	valueErrorMarker = "#VALUE!"
)

// ComputeError is a formula fault stored as a calculated value. it never
// escapes to callers as a Go error from the engine's public operations.
type ComputeError struct {
	Kind    ErrorKind
	Message string
}

func (e *ComputeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return errorMarkers[e.Kind]
}

func NewComputeError(kind ErrorKind, message string) *ComputeError {
	if message == "" {
		message = errorMarkers[kind]
	}
	return &ComputeError{
		Kind:    kind,
		Message: message,
	}
}

// CellValue is the closed union for a cell's calculated state. exactly
// the member selected by Kind is meaningful.
type CellValue struct {
	Kind   ValueKind
	Number float64
	Text   string
	Bool   bool
	Time   time.Time
	Err    *ComputeError
}

// Empty returns the never-evaluated value
func Empty() CellValue {
	return CellValue{Kind: KindEmpty}
}

func Number(f float64) CellValue {
	return CellValue{Kind: KindNumber, Number: f}
}

func Text(s string) CellValue {
	return CellValue{Kind: KindText, Text: s}
}

func Bool(b bool) CellValue {
	return CellValue{Kind: KindBool, Bool: b}
}

func TimeValue(t time.Time) CellValue {
	return CellValue{Kind: KindTime, Time: t}
}

func ErrValue(e *ComputeError) CellValue {
	return CellValue{Kind: KindError, Err: e}
}

// IsEmpty reports whether the value is the never-evaluated sentinel
func (v CellValue) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// EqualWithin reports whether two values are close enough to be treated
// as unchanged for propagation purposes. numbers compare within epsilon,
// all other kinds compare exactly. an empty value never equals a
// non-empty one, so a first evaluation always commits.
func (v CellValue) EqualWithin(other CellValue, epsilon float64) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindEmpty:
		return true
	case KindNumber:
		// NaN is treated as unequal to everything, including itself, so
		// a NaN result recommits once and then stabilizes via the error
		// marker text rather than the numeric path
		if math.IsNaN(v.Number) || math.IsNaN(other.Number) {
			return math.IsNaN(v.Number) && math.IsNaN(other.Number)
		}
		return math.Abs(v.Number-other.Number) <= epsilon
	case KindText:
		return v.Text == other.Text
	case KindBool:
		return v.Bool == other.Bool
	case KindTime:
		return v.Time.Equal(other.Time)
	case KindError:
		if v.Err == nil || other.Err == nil {
			return v.Err == other.Err
		}
		return v.Err.Kind == other.Err.Kind && v.Err.Message == other.Err.Message
	}
	return false
}
