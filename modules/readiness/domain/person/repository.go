package person

import "context"

type Repository interface {
	GetByCode(ctx context.Context, code string) (Person, error)
	// GetByCodeForUpdate locks the person row for the duration of the
	// surrounding transaction so concurrent transfers serialize per person.
	GetByCodeForUpdate(ctx context.Context, code string) (Person, error)
	Create(ctx context.Context, p Person) error
	UpdateUnit(ctx context.Context, code, unitCode string) error
}
