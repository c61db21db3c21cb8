package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forcetrack/readiness/modules/readiness/domain/flag"
	"github.com/forcetrack/readiness/modules/readiness/domain/person"
)

// StatusDetail is the reduced worst-case status plus the flag it came from.
// A clean record resolves to available with no flag detail.
type StatusDetail struct {
	Severity flag.Severity
	Category flag.Category
	Remarks  string
	FlagID   uuid.UUID
}

// AvailabilityService reduces the set of flags applying to a person or unit
// on a given day to a single worst-case status.
type AvailabilityService struct {
	persons   person.Repository
	flags     flag.Repository
	hierarchy *HierarchyService
	nowFn     func() time.Time
}

func NewAvailabilityService(persons person.Repository, flags flag.Repository, hierarchy *HierarchyService) *AvailabilityService {
	return &AvailabilityService{
		persons:   persons,
		flags:     flags,
		hierarchy: hierarchy,
		nowFn:     time.Now,
	}
}

// ResolvePerson collects every active flag pinned to the person plus every
// active unit-scoped flag on the person's unit or any of its ancestors, and
// reduces them to the most restrictive status.
func (s *AvailabilityService) ResolvePerson(ctx context.Context, personCode string, asOf time.Time) (StatusDetail, error) {
	asOf = s.effectiveDate(asOf)

	p, err := s.persons.GetByCode(ctx, personCode)
	if err != nil {
		return StatusDetail{}, mapPgError(err)
	}
	if p.IsZero() {
		return StatusDetail{}, notFoundError("person", personCode)
	}

	chain, err := s.hierarchy.Ancestors(ctx, p.UnitCode())
	if err != nil {
		return StatusDetail{}, err
	}
	scopeUnits := append([]string{p.UnitCode()}, chain...)

	personal, err := s.flags.ListByPerson(ctx, personCode)
	if err != nil {
		return StatusDetail{}, mapPgError(err)
	}
	unitWide, err := s.flags.ListUnitScoped(ctx, scopeUnits)
	if err != nil {
		return StatusDetail{}, mapPgError(err)
	}

	return reduceStatus(append(personal, unitWide...), asOf), nil
}

// ResolveUnit reduces only the unit's own flags. A unit's displayed status is
// never affected by its children's flags.
func (s *AvailabilityService) ResolveUnit(ctx context.Context, unitCode string, asOf time.Time) (StatusDetail, error) {
	asOf = s.effectiveDate(asOf)

	if _, err := s.hierarchy.GetUnit(ctx, unitCode); err != nil {
		return StatusDetail{}, err
	}

	candidates, err := s.flags.ListUnitScoped(ctx, []string{unitCode})
	if err != nil {
		return StatusDetail{}, mapPgError(err)
	}
	return reduceStatus(candidates, asOf), nil
}

func (s *AvailabilityService) effectiveDate(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return normalizeValidDateUTC(s.nowFn())
	}
	return normalizeValidDateUTC(asOf)
}

// reduceStatus selects the worst-case candidate: highest severity first; on a
// tie a person-pinned flag beats a unit-wide one; a remaining tie goes to the
// most recently modified record, then to the smaller ID so the result is
// stable regardless of iteration order.
func reduceStatus(candidates []flag.Record, asOf time.Time) StatusDetail {
	var best *flag.Record
	for i := range candidates {
		rec := &candidates[i]
		if !rec.ActiveOn(asOf) {
			continue
		}
		if best == nil || worseThan(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return StatusDetail{Severity: flag.SeverityAvailable}
	}
	return StatusDetail{
		Severity: best.Severity,
		Category: best.Category(),
		Remarks:  best.Remarks,
		FlagID:   best.ID,
	}
}

func worseThan(a, b *flag.Record) bool {
	if a.Severity != b.Severity {
		return a.Severity > b.Severity
	}
	aPersonal := a.PersonCode != ""
	bPersonal := b.PersonCode != ""
	if aPersonal != bPersonal {
		return aPersonal
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() < b.ID.String()
}
