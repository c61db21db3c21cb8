package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forcetrack/readiness/modules/readiness/domain/unit"
	"github.com/forcetrack/readiness/modules/readiness/infrastructure/persistence"
	"github.com/forcetrack/readiness/modules/readiness/services"
	"github.com/forcetrack/readiness/pkg/composables"
)

var unitsHeader = []string{"code", "name", "short_name", "echelon", "parent_code"}

type unitRow struct {
	code       string
	name       string
	shortName  string
	echelon    unit.Echelon
	parentCode string
	line       int
}

func newImportCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the unit forest from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readUnitRows(input)
			if err != nil {
				return withCode(exitData, err)
			}
			return runImport(cmd.Context(), rows)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to units CSV (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readUnitRows(path string) ([]unitRow, error) {
	r, closeFn, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	if err := readHeader(r, unitsHeader); err != nil {
		return nil, err
	}

	rows := make([]unitRow, 0, 64)
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(record) != len(unitsHeader) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(unitsHeader), len(record))
		}
		code := strings.TrimSpace(record[0])
		if code == "" {
			return nil, fmt.Errorf("line %d: code is required", line)
		}
		rows = append(rows, unitRow{
			code:       code,
			name:       strings.TrimSpace(record[1]),
			shortName:  strings.TrimSpace(record[2]),
			echelon:    unit.ParseEchelon(record[3]),
			parentCode: strings.TrimSpace(record[4]),
			line:       line,
		})
	}
	return rows, nil
}

// runImport registers rows parents-first so each parent exists before its
// children, regardless of row order in the file.
func runImport(ctx context.Context, rows []unitRow) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	ctx = composables.WithPool(ctx, pool)
	hierarchy := services.NewHierarchyService(persistence.NewUnitRepository(), nil)
	if err := hierarchy.Load(ctx); err != nil {
		return withCode(exitDB, err)
	}

	pending := rows
	registered := make(map[string]struct{}, len(rows))
	for len(pending) > 0 {
		next := pending[:0]
		progressed := false
		for _, row := range pending {
			_, parentKnown := registered[row.parentCode]
			if row.parentCode != "" && !parentKnown {
				if _, err := hierarchy.GetUnit(ctx, row.parentCode); err != nil {
					next = append(next, row)
					continue
				}
			}
			u := unit.New(row.code, row.name, row.shortName, row.echelon, row.parentCode)
			if err := hierarchy.RegisterUnit(ctx, u); err != nil {
				return withCode(exitData, fmt.Errorf("line %d: %w", row.line, err))
			}
			registered[row.code] = struct{}{}
			progressed = true
		}
		if !progressed {
			codes := make([]string, 0, len(next))
			for _, row := range next {
				codes = append(codes, row.code)
			}
			return withCode(exitData, fmt.Errorf("unresolvable parent references for units: %s", strings.Join(codes, ", ")))
		}
		pending = next
	}

	fmt.Printf("imported %d unit(s)\n", len(rows))
	return nil
}
