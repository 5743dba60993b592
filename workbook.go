package gridcalc

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/BurntSushi/toml"
)

// WorkbookFile is the TOML definition of a context of grids:
//
//	[[grid]]
//	name = "sales"
//	height = 6
//	width = 6
//
//	[grid.cells]
//	A1 = "100"
//	B1 = "=A1*2"
type WorkbookFile struct {
	Grids []GridDef `toml:"grid"`
}

// GridDef defines one grid of a workbook
type GridDef struct {
	Name             string            `toml:"name"`
	Height           int               `toml:"height"`
	Width            int               `toml:"width"`
	Iterate          bool              `toml:"iterate"`
	MaxIterations    int               `toml:"max_iterations"`
	IterationEpsilon float64           `toml:"iteration_epsilon"`
	Cells            map[string]string `toml:"cells"`
}

// LoadWorkbook reads a TOML workbook file and builds its grids in a
// fresh context. grids are created before any cell is written so
// cross-grid references resolve regardless of definition order.
func LoadWorkbook(path string, logger *slog.Logger) (*Context, error) {
	var file WorkbookFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, NewAppError(InvalidArgument, fmt.Sprintf("cannot read workbook: %v", err))
	}
	return buildWorkbook(&file, logger)
}

// ParseWorkbook builds a workbook from TOML text
func ParseWorkbook(data string, logger *slog.Logger) (*Context, error) {
	var file WorkbookFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, NewAppError(InvalidArgument, fmt.Sprintf("cannot parse workbook: %v", err))
	}
	return buildWorkbook(&file, logger)
}

func buildWorkbook(file *WorkbookFile, logger *slog.Logger) (*Context, error) {
	if len(file.Grids) == 0 {
		return nil, NewAppError(InvalidArgument, "workbook defines no grids")
	}

	ctx := NewContext()
	for _, def := range file.Grids {
		_, err := NewGrid(Config{
			Name:             def.Name,
			Height:           def.Height,
			Width:            def.Width,
			Iterate:          def.Iterate,
			MaxIterations:    def.MaxIterations,
			IterationEpsilon: def.IterationEpsilon,
			Context:          ctx,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
	}

	// write cells in sorted ID order for deterministic evaluation
	for _, def := range file.Grids {
		g := ctx.GridByName(def.Name)
		ids := make([]string, 0, len(def.Cells))
		for id := range def.Cells {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, err := g.SetValueByID(CellID(id), def.Cells[id], false); err != nil {
				return nil, fmt.Errorf("grid %q cell %s: %w", def.Name, id, err)
			}
		}
	}
	return ctx, nil
}
