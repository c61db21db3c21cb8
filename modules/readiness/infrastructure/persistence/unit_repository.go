package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/forcetrack/readiness/modules/readiness/domain/unit"
	"github.com/forcetrack/readiness/pkg/composables"
)

type UnitRepository struct{}

func NewUnitRepository() unit.Repository {
	return &UnitRepository{}
}

func (r *UnitRepository) GetAll(ctx context.Context) ([]unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT code, name, short_name, echelon, parent_code
FROM readiness_units
ORDER BY code
`)
	if err != nil {
		return nil, errors.Wrap(err, "list units")
	}
	defer rows.Close()

	out := make([]unit.Unit, 0, 64)
	for rows.Next() {
		var (
			code, name, shortName, echelon string
			parent                         *string
		)
		if err := rows.Scan(&code, &name, &shortName, &echelon, &parent); err != nil {
			return nil, errors.Wrap(err, "scan unit")
		}
		out = append(out, unit.New(code, name, shortName, unit.ParseEchelon(echelon), textOrEmpty(parent)))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *UnitRepository) GetByCode(ctx context.Context, code string) (unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return unit.Unit{}, err
	}

	var (
		name, shortName, echelon string
		parent                   *string
	)
	err = tx.QueryRow(ctx, `
SELECT name, short_name, echelon, parent_code
FROM readiness_units
WHERE code = $1
`, code).Scan(&name, &shortName, &echelon, &parent)
	if err != nil {
		return unit.Unit{}, errors.Wrapf(err, "get unit %s", code)
	}
	return unit.New(code, name, shortName, unit.ParseEchelon(echelon), textOrEmpty(parent)), nil
}

func (r *UnitRepository) Create(ctx context.Context, u unit.Unit) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO readiness_units (code, name, short_name, echelon, parent_code)
VALUES ($1, $2, $3, $4, $5)
`, u.Code(), u.Name(), u.ShortName(), string(u.Echelon()), nullableText(u.ParentCode()))
	return errors.Wrapf(err, "create unit %s", u.Code())
}

func (r *UnitRepository) UpdateParent(ctx context.Context, code, parentCode string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
UPDATE readiness_units
SET parent_code = $2, updated_at = now()
WHERE code = $1
`, code, nullableText(parentCode))
	return errors.Wrapf(err, "reparent unit %s", code)
}

func (r *UnitRepository) Delete(ctx context.Context, code string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM readiness_units WHERE code = $1`, code)
	return errors.Wrapf(err, "delete unit %s", code)
}

func (r *UnitRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM readiness_units`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count units")
	}
	return n, nil
}
