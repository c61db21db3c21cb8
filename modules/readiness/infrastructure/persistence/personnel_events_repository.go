package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/forcetrack/readiness/modules/readiness/services"
	"github.com/forcetrack/readiness/pkg/composables"
)

type PersonnelEventRepository struct{}

func NewPersonnelEventRepository() services.PersonnelEventRepository {
	return &PersonnelEventRepository{}
}

func (r *PersonnelEventRepository) Insert(ctx context.Context, ev services.PersonnelEvent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO readiness_personnel_events
	(id, person_code, event_type, old_unit_code, new_unit_code, effective_date, recorded_at, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
		pgUUIDFromUUID(ev.ID),
		ev.PersonCode,
		ev.EventType,
		nullableText(ev.OldUnitCode),
		nullableText(ev.NewUnitCode),
		ev.EffectiveDate,
		ev.RecordedAt,
		ev.RecordedBy,
	)
	return errors.Wrapf(err, "record personnel event for %s", ev.PersonCode)
}

func (r *PersonnelEventRepository) ListByPerson(ctx context.Context, personCode string) ([]services.PersonnelEvent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, person_code, event_type, old_unit_code, new_unit_code, effective_date, recorded_at, recorded_by
FROM readiness_personnel_events
WHERE person_code = $1
ORDER BY recorded_at DESC
`, personCode)
	if err != nil {
		return nil, errors.Wrapf(err, "list personnel events for %s", personCode)
	}
	defer rows.Close()

	out := make([]services.PersonnelEvent, 0, 16)
	for rows.Next() {
		var (
			ev      services.PersonnelEvent
			oldUnit *string
			newUnit *string
		)
		if err := rows.Scan(&ev.ID, &ev.PersonCode, &ev.EventType, &oldUnit, &newUnit, &ev.EffectiveDate, &ev.RecordedAt, &ev.RecordedBy); err != nil {
			return nil, errors.Wrap(err, "scan personnel event")
		}
		ev.OldUnitCode = textOrEmpty(oldUnit)
		ev.NewUnitCode = textOrEmpty(newUnit)
		out = append(out, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
