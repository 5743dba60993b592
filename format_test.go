package gridcalc

import (
	"math"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	stamp := time.Date(2024, 3, 9, 14, 5, 30, 0, time.UTC)
	cases := []struct {
		name string
		in   CellValue
		want string
	}{
		{"empty", Empty(), ""},
		{"integer", Number(42), "42"},
		{"negative", Number(-1.5), "-1.5"},
		{"trailing zeros trimmed", Number(2.50), "2.5"},
		{"tiny magnitude", Number(0.0000001), "1e-07"},
		{"huge magnitude", Number(1e22), "1e+22"},
		{"positive infinity", Number(math.Inf(1)), "#DIV/0!"},
		{"negative infinity", Number(math.Inf(-1)), "#DIV/0!"},
		{"not a number", Number(math.NaN()), "#VALUE!"},
		{"text", Text("hello"), "hello"},
		{"true", Bool(true), "TRUE"},
		{"false", Bool(false), "FALSE"},
		{"time", TimeValue(stamp), "3/9/2024 2:05:30 PM"},
		{"error with message", ErrValue(NewComputeError(ErrKindEval, "error in calculation")), "error in calculation"},
		{"error without message", ErrValue(NewComputeError(ErrKindReference, "")), "#REF!"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Format(c.in); got != c.want {
				t.Errorf("Format(%+v) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestCoerceLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want ValueKind
	}{
		{"", KindEmpty},
		{"42", KindNumber},
		{"-3.5", KindNumber},
		{"TRUE", KindBool},
		{"false", KindBool},
		{"2024-03-09", KindTime},
		{"2024-03-09 14:05:30", KindTime},
		{"3/9/2024", KindTime},
		{"hello", KindText},
		{"12abc", KindText},
	}
	for _, c := range cases {
		if got := CoerceLiteral(c.in); got.Kind != c.want {
			t.Errorf("CoerceLiteral(%q).Kind = %d, want %d", c.in, got.Kind, c.want)
		}
	}
}

func TestEqualWithin(t *testing.T) {
	if !Number(1.0).EqualWithin(Number(1.0005), 0.001) {
		t.Error("numbers within epsilon should compare equal")
	}
	if Number(1.0).EqualWithin(Number(1.01), 0.001) {
		t.Error("numbers past epsilon should compare unequal")
	}
	if Empty().EqualWithin(Number(0), 0.001) {
		t.Error("empty must never equal a committed value")
	}
	if !Number(math.NaN()).EqualWithin(Number(math.NaN()), 0.001) {
		t.Error("two NaN results should be treated as unchanged")
	}
	if Text("a").EqualWithin(Text("b"), 0.001) {
		t.Error("distinct texts should compare unequal")
	}
	if !Bool(true).EqualWithin(Bool(true), 0) {
		t.Error("equal booleans should compare equal")
	}
}
