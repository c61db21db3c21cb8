package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forcetrack/readiness/modules/readiness/infrastructure/persistence"
	"github.com/forcetrack/readiness/pkg/composables"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the unit forest into a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), output)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output CSV path (required)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runExport(ctx context.Context, output string) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	ctx = composables.WithPool(ctx, pool)
	units, err := persistence.NewUnitRepository().GetAll(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}

	f, err := os.Create(output)
	if err != nil {
		return withCode(exitData, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(unitsHeader); err != nil {
		return withCode(exitData, err)
	}
	for _, u := range units {
		row := []string{u.Code(), u.Name(), u.ShortName(), string(u.Echelon()), u.ParentCode()}
		if err := w.Write(row); err != nil {
			return withCode(exitData, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return withCode(exitData, err)
	}

	fmt.Printf("exported %d unit(s) to %s\n", len(units), output)
	return nil
}
