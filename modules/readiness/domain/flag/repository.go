package flag

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	Create(ctx context.Context, r Record) error
	Update(ctx context.Context, r Record) error

	// ListByPerson returns all non-removed records pinned to the person.
	ListByPerson(ctx context.Context, personCode string) ([]Record, error)
	// ListUnitScoped returns all non-removed unit-scoped records (no person
	// pin) on any of the given units.
	ListUnitScoped(ctx context.Context, unitCodes []string) ([]Record, error)
	// ExistsUnitCategory reports whether a non-removed unit-scoped record of
	// the given category already exists on the unit.
	ExistsUnitCategory(ctx context.Context, unitCode string, category Category) (bool, error)
}
