package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/forcetrack/readiness/modules/readiness/domain/events"
	"github.com/forcetrack/readiness/modules/readiness/domain/flag"
	"github.com/forcetrack/readiness/modules/readiness/domain/person"
	"github.com/forcetrack/readiness/pkg/eventbus"
)

// PersonnelEvent is one row of the transfer audit ledger.
type PersonnelEvent struct {
	ID            uuid.UUID
	PersonCode    string
	EventType     string
	OldUnitCode   string
	NewUnitCode   string
	EffectiveDate time.Time
	RecordedAt    time.Time
	RecordedBy    string
}

type PersonnelEventRepository interface {
	Insert(ctx context.Context, ev PersonnelEvent) error
	ListByPerson(ctx context.Context, personCode string) ([]PersonnelEvent, error)
}

// TransferService moves a person between units and keeps unit-scoped flags
// correctly mirrored on the person. The unit reassignment, the flag closures
// and the minted copies commit in one transaction: a reader never observes
// the person on the new unit while still carrying the old unit's propagated
// flags, nor the other way around.
type TransferService struct {
	persons   person.Repository
	flags     flag.Repository
	ledger    PersonnelEventRepository
	hierarchy *HierarchyService
	bus       eventbus.EventBus
	nowFn     func() time.Time
}

func NewTransferService(
	persons person.Repository,
	flags flag.Repository,
	ledger PersonnelEventRepository,
	hierarchy *HierarchyService,
	bus eventbus.EventBus,
) *TransferService {
	return &TransferService{
		persons:   persons,
		flags:     flags,
		ledger:    ledger,
		hierarchy: hierarchy,
		bus:       bus,
		nowFn:     time.Now,
	}
}

type transferOutcome struct {
	closed int
	minted int
}

// OnTransfer reassigns the person to newUnitCode effective the given day.
// Person-scoped flags whose category matches an active unit flag on the old
// unit are closed with end_date = effectiveDate; every active unit-scoped
// flag on the new unit is copied onto the person starting at effectiveDate.
func (s *TransferService) OnTransfer(ctx context.Context, personCode, oldUnitCode, newUnitCode string, effectiveDate time.Time, actor string) error {
	if personCode == "" || newUnitCode == "" {
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, "person_code and new_unit_code are required", nil)
	}
	if effectiveDate.IsZero() {
		effectiveDate = s.nowFn()
	}
	effectiveDate = normalizeValidDateUTC(effectiveDate)

	if _, err := s.hierarchy.GetUnit(ctx, newUnitCode); err != nil {
		return err
	}
	if oldUnitCode != "" {
		if _, err := s.hierarchy.GetUnit(ctx, oldUnitCode); err != nil {
			return err
		}
	}

	outcome, err := inTx(ctx, func(txCtx context.Context) (transferOutcome, error) {
		return s.applyTransfer(txCtx, personCode, oldUnitCode, newUnitCode, effectiveDate, actor)
	})
	if err != nil {
		transfers.WithLabelValues("error").Inc()
		return err
	}

	transfers.WithLabelValues("ok").Inc()
	if s.bus != nil {
		s.bus.Publish(events.PersonTransferredV1{
			EventID:         uuid.New(),
			EventVersion:    events.EventVersionV1,
			TransactionTime: s.nowFn().UTC(),
			PersonCode:      personCode,
			OldUnitCode:     oldUnitCode,
			NewUnitCode:     newUnitCode,
			EffectiveDate:   effectiveDate,
			ClosedFlags:     outcome.closed,
			MintedFlags:     outcome.minted,
		})
	}
	return nil
}

func (s *TransferService) applyTransfer(ctx context.Context, personCode, oldUnitCode, newUnitCode string, effectiveDate time.Time, actor string) (transferOutcome, error) {
	var out transferOutcome

	p, err := s.persons.GetByCodeForUpdate(ctx, personCode)
	if err != nil {
		return out, mapPgError(err)
	}
	if p.IsZero() {
		return out, notFoundError("person", personCode)
	}
	if oldUnitCode != "" && p.UnitCode() != oldUnitCode {
		return out, newServiceError(http.StatusConflict, CodeInvalidBody,
			fmt.Sprintf("person %q belongs to unit %q, not %q", personCode, p.UnitCode(), oldUnitCode), nil)
	}

	now := s.nowFn().UTC()

	// Close person-scoped flags mirroring the old unit's active flags.
	if oldUnitCode != "" {
		oldUnitFlags, err := s.flags.ListUnitScoped(ctx, []string{oldUnitCode})
		if err != nil {
			return out, mapPgError(err)
		}
		oldCategories := make(map[flag.Category]struct{}, len(oldUnitFlags))
		for _, rec := range oldUnitFlags {
			if rec.ActiveOn(effectiveDate) {
				oldCategories[rec.Category()] = struct{}{}
			}
		}

		personal, err := s.flags.ListByPerson(ctx, personCode)
		if err != nil {
			return out, mapPgError(err)
		}
		for _, rec := range personal {
			if rec.Removed {
				continue
			}
			if _, mirrored := oldCategories[rec.Category()]; !mirrored {
				continue
			}
			if rec.StartDate.After(effectiveDate) {
				// The window never opened before the move; an end date here
				// would precede the start date.
				rec.Removed = true
			} else {
				rec.EndDate = effectiveDate
			}
			rec.LastModifiedBy = actor
			rec.UpdatedAt = now
			if err := s.flags.Update(ctx, rec); err != nil {
				return out, mapPgError(err)
			}
			out.closed++
		}
	}

	// Mint person-scoped copies of the new unit's active flags.
	newUnitFlags, err := s.flags.ListUnitScoped(ctx, []string{newUnitCode})
	if err != nil {
		return out, mapPgError(err)
	}
	for _, src := range newUnitFlags {
		if !src.ActiveOn(effectiveDate) {
			continue
		}
		minted := flag.Record{
			ID:             uuid.New(),
			Severity:       src.Severity,
			Payload:        src.Payload,
			StartDate:      effectiveDate,
			EndDate:        src.EndDate,
			Remarks:        src.Remarks,
			PersonCode:     personCode,
			UnitCode:       newUnitCode,
			LastModifiedBy: src.LastModifiedBy,
			UpdatedAt:      now,
		}
		if err := s.flags.Create(ctx, minted); err != nil {
			return out, mapPgError(err)
		}
		out.minted++
	}

	if err := s.persons.UpdateUnit(ctx, personCode, newUnitCode); err != nil {
		return out, mapPgError(err)
	}

	if s.ledger != nil {
		ev := PersonnelEvent{
			ID:            uuid.New(),
			PersonCode:    personCode,
			EventType:     "transfer",
			OldUnitCode:   oldUnitCode,
			NewUnitCode:   newUnitCode,
			EffectiveDate: effectiveDate,
			RecordedAt:    now,
			RecordedBy:    actor,
		}
		if err := s.ledger.Insert(ctx, ev); err != nil {
			return out, mapPgError(err)
		}
	}

	return out, nil
}

// ListPersonnelEvents returns the transfer ledger for one person, newest
// first as stored.
func (s *TransferService) ListPersonnelEvents(ctx context.Context, personCode string) ([]PersonnelEvent, error) {
	if personCode == "" {
		return nil, newServiceError(http.StatusBadRequest, CodeInvalidBody, "person_code is required", nil)
	}
	events, err := s.ledger.ListByPerson(ctx, personCode)
	if err != nil {
		return nil, mapPgError(err)
	}
	return events, nil
}
