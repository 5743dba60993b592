// Package main provides the CLI entry point for gridcalc.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gridcalc/gridcalc"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridcalc",
		Short: "Evaluate formula grids",
		Long: `gridcalc loads grid definitions, evaluates their formulas with full
dependency tracking, and prints the calculated results.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine diagnostics to stderr")

	evalCmd := &cobra.Command{
		Use:   "eval [workbook.toml]",
		Short: "Evaluate a TOML workbook and print every grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [workbook.toml] [grid] [cell]",
		Short: "Draw the consumer tree of a cell after evaluation",
		Args:  cobra.ExactArgs(3),
		RunE:  runInspect,
	}

	xlsxCmd := &cobra.Command{
		Use:   "xlsx [input.xlsx] [sheet]",
		Short: "Import a worksheet from an xlsx file, evaluate it, and print it",
		Long: `xlsx imports one worksheet's cell text as raw values, so formula cells
are re-evaluated by the engine instead of trusting the file's cached
results. with no sheet argument the available sheet names are listed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runXLSX,
	}

	rootCmd.AddCommand(evalCmd, inspectCmd, xlsxCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx, err := gridcalc.LoadWorkbook(args[0], logger())
	if err != nil {
		return err
	}
	for _, name := range ctx.GridNames() {
		fmt.Printf("[%s]\n", name)
		printGrid(ctx.GridByName(name))
		fmt.Println()
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, err := gridcalc.LoadWorkbook(args[0], logger())
	if err != nil {
		return err
	}
	g := ctx.GridByName(args[1])
	if g == nil {
		return fmt.Errorf("grid %q not found in workbook", args[1])
	}
	fmt.Println(gridcalc.ConsumerTree(g, gridcalc.CellID(strings.ToUpper(args[2]))))
	return nil
}

func runXLSX(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		sheets, err := gridcalc.SheetNames(args[0])
		if err != nil {
			return err
		}
		for _, sheet := range sheets {
			fmt.Println(sheet)
		}
		return nil
	}

	g, err := gridcalc.NewGrid(gridcalc.Config{Logger: logger()})
	if err != nil {
		return err
	}
	if err := gridcalc.ImportXLSX(args[0], args[1], g); err != nil {
		return err
	}
	printGrid(g)
	return nil
}

func printGrid(g *gridcalc.Grid) {
	widths := make([]int, g.Width())
	cells := make([][]string, g.Height())
	for r := 0; r < g.Height(); r++ {
		cells[r] = make([]string, g.Width())
		for c := 0; c < g.Width(); c++ {
			text, err := g.GetDisplayValue(r, c)
			if err != nil {
				text = "?"
			}
			cells[r][c] = text
			if len(text) > widths[c] {
				widths[c] = len(text)
			}
		}
	}
	for r := 0; r < g.Height(); r++ {
		parts := make([]string, g.Width())
		for c := 0; c < g.Width(); c++ {
			parts[c] = fmt.Sprintf("%-*s", widths[c], cells[r][c])
		}
		fmt.Println(strings.TrimRight(strings.Join(parts, " | "), " "))
	}
}
