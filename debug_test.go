package gridcalc

import (
	"strings"
	"testing"
)

func TestConsumerTree(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	g.SetValueByID("A1", "1", false)
	g.SetValueByID("B1", "=A1*2", false)
	g.SetValueByID("C1", "=B1+1", false)

	drawn := ConsumerTree(g, "A1")
	for _, id := range []string{"A1", "B1", "C1"} {
		if !strings.Contains(drawn, id) {
			t.Errorf("rendered tree is missing %s:\n%s", id, drawn)
		}
	}
}

func TestConsumerTreeMarksCycles(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4, Iterate: true})
	if err != nil {
		t.Fatal(err)
	}
	g.SetValueByID("A1", "=B1", false)
	g.SetValueByID("B1", "=A1", false)

	drawn := ConsumerTree(g, "A1")
	if !strings.Contains(drawn, "(cycle)") {
		t.Errorf("rendered tree should mark the cycle:\n%s", drawn)
	}
}
