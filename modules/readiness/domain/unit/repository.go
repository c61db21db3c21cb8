package unit

import "context"

type Repository interface {
	GetAll(ctx context.Context) ([]Unit, error)
	GetByCode(ctx context.Context, code string) (Unit, error)
	Create(ctx context.Context, u Unit) error
	UpdateParent(ctx context.Context, code, parentCode string) error
	Delete(ctx context.Context, code string) error
	Count(ctx context.Context) (int64, error)
}
