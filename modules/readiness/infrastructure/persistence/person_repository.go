package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/forcetrack/readiness/modules/readiness/domain/person"
	"github.com/forcetrack/readiness/pkg/composables"
)

type PersonRepository struct{}

func NewPersonRepository() person.Repository {
	return &PersonRepository{}
}

func (r *PersonRepository) GetByCode(ctx context.Context, code string) (person.Person, error) {
	return r.get(ctx, code, false)
}

func (r *PersonRepository) GetByCodeForUpdate(ctx context.Context, code string) (person.Person, error) {
	return r.get(ctx, code, true)
}

func (r *PersonRepository) get(ctx context.Context, code string, forUpdate bool) (person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return person.Person{}, err
	}

	q := `
SELECT display_name, unit_code
FROM readiness_persons
WHERE code = $1
`
	if forUpdate {
		q += " FOR UPDATE"
	}

	var displayName, unitCode string
	if err := tx.QueryRow(ctx, q, code).Scan(&displayName, &unitCode); err != nil {
		return person.Person{}, errors.Wrapf(err, "get person %s", code)
	}
	return person.New(code, displayName, unitCode), nil
}

func (r *PersonRepository) Create(ctx context.Context, p person.Person) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO readiness_persons (code, display_name, unit_code)
VALUES ($1, $2, $3)
`, p.Code(), p.DisplayName(), p.UnitCode())
	return errors.Wrapf(err, "create person %s", p.Code())
}

func (r *PersonRepository) UpdateUnit(ctx context.Context, code, unitCode string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
UPDATE readiness_persons
SET unit_code = $2, updated_at = now()
WHERE code = $1
`, code, unitCode)
	return errors.Wrapf(err, "reassign person %s", code)
}
