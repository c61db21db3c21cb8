package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/forcetrack/readiness/modules/readiness/domain/flag"
	"github.com/forcetrack/readiness/pkg/composables"
)

type FlagRepository struct{}

func NewFlagRepository() flag.Repository {
	return &FlagRepository{}
}

const flagColumns = `id, severity, category, payload, start_date, end_date, remarks, person_code, unit_code, removed, last_modified_by, updated_at`

func (r *FlagRepository) GetByID(ctx context.Context, id uuid.UUID) (flag.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return flag.Record{}, err
	}

	row := tx.QueryRow(ctx, `
SELECT `+flagColumns+`
FROM readiness_flags
WHERE id = $1
`, pgUUIDFromUUID(id))
	return scanFlag(row)
}

func (r *FlagRepository) Create(ctx context.Context, rec flag.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	payload, err := flag.MarshalPayload(rec.Payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO readiness_flags (`+flagColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`,
		pgUUIDFromUUID(rec.ID),
		rec.Severity.String(),
		string(rec.Category()),
		payload,
		rec.StartDate,
		nullableDate(rec.EndDate),
		rec.Remarks,
		nullableText(rec.PersonCode),
		nullableText(rec.UnitCode),
		rec.Removed,
		rec.LastModifiedBy,
		rec.UpdatedAt,
	)
	return errors.Wrapf(err, "create flag %s", rec.ID)
}

func (r *FlagRepository) Update(ctx context.Context, rec flag.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	payload, err := flag.MarshalPayload(rec.Payload)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
UPDATE readiness_flags
SET severity = $2,
	category = $3,
	payload = $4,
	start_date = $5,
	end_date = $6,
	remarks = $7,
	person_code = $8,
	unit_code = $9,
	removed = $10,
	last_modified_by = $11,
	updated_at = $12
WHERE id = $1
`,
		pgUUIDFromUUID(rec.ID),
		rec.Severity.String(),
		string(rec.Category()),
		payload,
		rec.StartDate,
		nullableDate(rec.EndDate),
		rec.Remarks,
		nullableText(rec.PersonCode),
		nullableText(rec.UnitCode),
		rec.Removed,
		rec.LastModifiedBy,
		rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update flag %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *FlagRepository) ListByPerson(ctx context.Context, personCode string) ([]flag.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT `+flagColumns+`
FROM readiness_flags
WHERE person_code = $1 AND NOT removed
ORDER BY updated_at DESC
`, personCode)
	if err != nil {
		return nil, errors.Wrapf(err, "list flags for person %s", personCode)
	}
	defer rows.Close()
	return scanFlags(rows)
}

func (r *FlagRepository) ListUnitScoped(ctx context.Context, unitCodes []string) ([]flag.Record, error) {
	if len(unitCodes) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT `+flagColumns+`
FROM readiness_flags
WHERE unit_code = ANY($1) AND person_code IS NULL AND NOT removed
ORDER BY updated_at DESC
`, unitCodes)
	if err != nil {
		return nil, errors.Wrap(err, "list unit-scoped flags")
	}
	defer rows.Close()
	return scanFlags(rows)
}

func (r *FlagRepository) ExistsUnitCategory(ctx context.Context, unitCode string, category flag.Category) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM readiness_flags
	WHERE unit_code = $1 AND category = $2 AND person_code IS NULL AND NOT removed
)
`, unitCode, string(category)).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "check open flag on unit %s", unitCode)
	}
	return exists, nil
}

func scanFlags(rows pgx.Rows) ([]flag.Record, error) {
	out := make([]flag.Record, 0, 16)
	for rows.Next() {
		rec, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanFlag(row pgx.Row) (flag.Record, error) {
	var (
		rec        flag.Record
		severity   string
		category   string
		payload    []byte
		endDate    *time.Time
		personCode *string
		unitCode   *string
	)
	err := row.Scan(
		&rec.ID,
		&severity,
		&category,
		&payload,
		&rec.StartDate,
		&endDate,
		&rec.Remarks,
		&personCode,
		&unitCode,
		&rec.Removed,
		&rec.LastModifiedBy,
		&rec.UpdatedAt,
	)
	if err != nil {
		return flag.Record{}, err
	}

	sev, ok := flag.ParseSeverity(severity)
	if !ok {
		return flag.Record{}, errors.Errorf("flag %s has unknown severity %q", rec.ID, severity)
	}
	rec.Severity = sev
	rec.Payload, err = flag.UnmarshalPayload(flag.Category(category), payload)
	if err != nil {
		return flag.Record{}, errors.Wrapf(err, "decode payload of flag %s", rec.ID)
	}
	rec.EndDate = dateOrZero(endDate)
	rec.PersonCode = textOrEmpty(personCode)
	rec.UnitCode = textOrEmpty(unitCode)
	return rec, nil
}
