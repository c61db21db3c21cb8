package services

import (
	"context"

	"github.com/forcetrack/readiness/pkg/composables"
)

// runInTx is swapped out in tests that run against in-memory repositories.
var runInTx = composables.InTx

func inTx[T any](ctx context.Context, fn func(txCtx context.Context) (T, error)) (T, error) {
	var zero T
	var out T
	err := runInTx(ctx, func(txCtx context.Context) error {
		var fnErr error
		out, fnErr = fn(txCtx)
		return fnErr
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}
