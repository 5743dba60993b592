package gridcalc

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeTestWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "3")
	f.SetCellValue("Sheet1", "A2", "4")
	f.SetCellValue("Sheet1", "B1", "=A1*A2")

	path := filepath.Join(t.TempDir(), "import.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestImportXLSX(t *testing.T) {
	path := writeTestWorkbook(t)

	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := ImportXLSX(path, "Sheet1", g); err != nil {
		t.Fatal(err)
	}

	// formula text is re-evaluated by the engine, not read back as a
	// cached result
	v, err := g.GetCalculatedValueByID("B1")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNumber || v.Number != 12 {
		t.Errorf("B1 = %+v, want 12", v)
	}

	g.SetValueByID("A1", "10", false)
	v, _ = g.GetCalculatedValueByID("B1")
	if v.Number != 40 {
		t.Errorf("B1 = %+v, want 40 after the import stays live", v)
	}
}

func TestImportXLSXUnknownSheet(t *testing.T) {
	path := writeTestWorkbook(t)

	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := ImportXLSX(path, "NoSuchSheet", g); err == nil {
		t.Error("expected an error for an unknown sheet")
	}
}

func TestSheetNames(t *testing.T) {
	path := writeTestWorkbook(t)

	sheets, err := SheetNames(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 1 || sheets[0] != "Sheet1" {
		t.Errorf("SheetNames = %v", sheets)
	}

	if _, err := SheetNames("no/such/file.xlsx"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
