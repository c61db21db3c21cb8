package persistence

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func pgUUIDFromUUID(id [16]byte) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}
}

// nullableText maps "" to NULL so empty scopes and parents stay NULL in the
// database, where the partial indexes expect them.
func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func textOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
