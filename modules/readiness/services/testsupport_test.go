package services

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/forcetrack/readiness/modules/readiness/domain/flag"
	"github.com/forcetrack/readiness/modules/readiness/domain/person"
	"github.com/forcetrack/readiness/modules/readiness/domain/unit"
)

func TestMain(m *testing.M) {
	runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	os.Exit(m.Run())
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func requireServiceCode(t *testing.T, err error, code string) {
	t.Helper()
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, code, se.Code)
}

type memUnitRepo struct {
	mu    sync.Mutex
	units map[string]unit.Unit
}

func newMemUnitRepo(units ...unit.Unit) *memUnitRepo {
	r := &memUnitRepo{units: make(map[string]unit.Unit, len(units))}
	for _, u := range units {
		r.units[u.Code()] = u
	}
	return r
}

func (r *memUnitRepo) GetAll(ctx context.Context) ([]unit.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]unit.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out, nil
}

func (r *memUnitRepo) GetByCode(ctx context.Context, code string) (unit.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units[code], nil
}

func (r *memUnitRepo) Create(ctx context.Context, u unit.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u.Code()] = u
	return nil
}

func (r *memUnitRepo) UpdateParent(ctx context.Context, code, parentCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[code]
	if !ok {
		return pgx.ErrNoRows
	}
	r.units[code] = u.WithParent(parentCode)
	return nil
}

func (r *memUnitRepo) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.units, code)
	return nil
}

func (r *memUnitRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.units)), nil
}

type memPersonRepo struct {
	mu      sync.Mutex
	persons map[string]person.Person
}

func newMemPersonRepo(persons ...person.Person) *memPersonRepo {
	r := &memPersonRepo{persons: make(map[string]person.Person, len(persons))}
	for _, p := range persons {
		r.persons[p.Code()] = p
	}
	return r
}

func (r *memPersonRepo) GetByCode(ctx context.Context, code string) (person.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persons[code], nil
}

func (r *memPersonRepo) GetByCodeForUpdate(ctx context.Context, code string) (person.Person, error) {
	return r.GetByCode(ctx, code)
}

func (r *memPersonRepo) Create(ctx context.Context, p person.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persons[p.Code()] = p
	return nil
}

func (r *memPersonRepo) UpdateUnit(ctx context.Context, code, unitCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.persons[code]
	if !ok {
		return pgx.ErrNoRows
	}
	r.persons[code] = p.WithUnit(unitCode)
	return nil
}

func (r *memPersonRepo) snapshot() map[string]person.Person {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]person.Person, len(r.persons))
	for code, p := range r.persons {
		out[code] = p
	}
	return out
}

func (r *memPersonRepo) restore(snap map[string]person.Person) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persons = snap
}

type memFlagRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]flag.Record

	createErr error
}

func newMemFlagRepo(records ...flag.Record) *memFlagRepo {
	r := &memFlagRepo{records: make(map[uuid.UUID]flag.Record, len(records))}
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	return r
}

func (r *memFlagRepo) GetByID(ctx context.Context, id uuid.UUID) (flag.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id], nil
}

func (r *memFlagRepo) Create(ctx context.Context, rec flag.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memFlagRepo) snapshot() map[uuid.UUID]flag.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]flag.Record, len(r.records))
	for id, rec := range r.records {
		out[id] = rec
	}
	return out
}

func (r *memFlagRepo) restore(snap map[uuid.UUID]flag.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = snap
}

func (r *memFlagRepo) Update(ctx context.Context, rec flag.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memFlagRepo) ListByPerson(ctx context.Context, personCode string) ([]flag.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flag.Record, 0, 4)
	for _, rec := range r.records {
		if rec.Removed || rec.PersonCode != personCode {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (r *memFlagRepo) ListUnitScoped(ctx context.Context, unitCodes []string) ([]flag.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]struct{}, len(unitCodes))
	for _, code := range unitCodes {
		wanted[code] = struct{}{}
	}
	out := make([]flag.Record, 0, 4)
	for _, rec := range r.records {
		if rec.Removed || rec.PersonCode != "" {
			continue
		}
		if _, ok := wanted[rec.UnitCode]; !ok {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (r *memFlagRepo) ExistsUnitCategory(ctx context.Context, unitCode string, category flag.Category) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Removed || rec.PersonCode != "" {
			continue
		}
		if rec.UnitCode == unitCode && rec.Category() == category {
			return true, nil
		}
	}
	return false, nil
}

func sortRecords(recs []flag.Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID.String() < recs[j].ID.String() })
}

type memLedger struct {
	mu     sync.Mutex
	events []PersonnelEvent

	insertErr error
}

func (r *memLedger) Insert(ctx context.Context, ev PersonnelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *memLedger) snapshot() []PersonnelEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PersonnelEvent(nil), r.events...)
}

func (r *memLedger) restore(snap []PersonnelEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = snap
}

func (r *memLedger) ListByPerson(ctx context.Context, personCode string) ([]PersonnelEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PersonnelEvent, 0, len(r.events))
	for _, ev := range r.events {
		if ev.PersonCode == personCode {
			out = append(out, ev)
		}
	}
	return out, nil
}
