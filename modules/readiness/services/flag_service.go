package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/forcetrack/readiness/modules/readiness/domain/events"
	"github.com/forcetrack/readiness/modules/readiness/domain/flag"
	"github.com/forcetrack/readiness/pkg/eventbus"
)

// FlagService owns FlagRecord writes and enforces the structural invariants:
// every record is scoped to a person or a unit (or both), and a unit carries
// at most one open flag per category.
type FlagService struct {
	repo  flag.Repository
	bus   eventbus.EventBus
	nowFn func() time.Time
}

func NewFlagService(repo flag.Repository, bus eventbus.EventBus) *FlagService {
	return &FlagService{repo: repo, bus: bus, nowFn: time.Now}
}

type CreateFlagInput struct {
	Severity       flag.Severity
	Payload        flag.Payload
	StartDate      time.Time
	EndDate        time.Time
	Remarks        string
	PersonCode     string
	UnitCode       string
	LastModifiedBy string
}

func (s *FlagService) Create(ctx context.Context, input CreateFlagInput) (flag.Record, error) {
	rec := flag.Record{
		ID:             uuid.New(),
		Severity:       input.Severity,
		Payload:        input.Payload,
		StartDate:      normalizeValidDateUTC(input.StartDate),
		EndDate:        normalizeValidDateUTC(input.EndDate),
		Remarks:        input.Remarks,
		PersonCode:     input.PersonCode,
		UnitCode:       input.UnitCode,
		LastModifiedBy: input.LastModifiedBy,
		UpdatedAt:      s.nowFn().UTC(),
	}
	if rec.StartDate.IsZero() {
		rec.StartDate = normalizeValidDateUTC(s.nowFn())
	}
	if err := s.validateRecord(rec); err != nil {
		return flag.Record{}, err
	}

	created, err := inTx(ctx, func(txCtx context.Context) (flag.Record, error) {
		if rec.UnitScoped() {
			exists, err := s.repo.ExistsUnitCategory(txCtx, rec.UnitCode, rec.Category())
			if err != nil {
				return flag.Record{}, mapPgError(err)
			}
			if exists {
				return flag.Record{}, newServiceError(http.StatusConflict, CodeCategoryConflict,
					fmt.Sprintf("unit %q already carries an open %q flag", rec.UnitCode, rec.Category()), nil)
			}
		}
		if err := s.repo.Create(txCtx, rec); err != nil {
			return flag.Record{}, mapPgError(err)
		}
		return rec, nil
	})
	if err != nil {
		return flag.Record{}, err
	}

	flagWrites.WithLabelValues("create").Inc()
	s.publishChange("created", created)
	return created, nil
}

// UpdateFlagInput is a patch: nil fields are left untouched. Setting Payload
// to a different category replaces the whole category payload in the same
// update, so no intermediate state carries two categories' fields.
type UpdateFlagInput struct {
	Severity       *flag.Severity
	Payload        flag.Payload
	StartDate      *time.Time
	EndDate        *time.Time // pointer to zero time clears the end date
	Remarks        *string
	LastModifiedBy string
}

func (s *FlagService) Update(ctx context.Context, id uuid.UUID, patch UpdateFlagInput) (flag.Record, error) {
	updated, err := inTx(ctx, func(txCtx context.Context) (flag.Record, error) {
		rec, err := s.getExisting(txCtx, id)
		if err != nil {
			return flag.Record{}, err
		}

		oldCategory := rec.Category()
		if patch.Severity != nil {
			rec.Severity = *patch.Severity
		}
		if patch.Payload != nil {
			rec.Payload = patch.Payload
		}
		if patch.StartDate != nil {
			rec.StartDate = normalizeValidDateUTC(*patch.StartDate)
		}
		if patch.EndDate != nil {
			rec.EndDate = normalizeValidDateUTC(*patch.EndDate)
		}
		if patch.Remarks != nil {
			rec.Remarks = *patch.Remarks
		}
		if patch.LastModifiedBy != "" {
			rec.LastModifiedBy = patch.LastModifiedBy
		}
		rec.UpdatedAt = s.nowFn().UTC()

		if err := s.validateRecord(rec); err != nil {
			return flag.Record{}, err
		}
		if rec.UnitScoped() && rec.Category() != oldCategory {
			exists, err := s.repo.ExistsUnitCategory(txCtx, rec.UnitCode, rec.Category())
			if err != nil {
				return flag.Record{}, mapPgError(err)
			}
			if exists {
				return flag.Record{}, newServiceError(http.StatusConflict, CodeCategoryConflict,
					fmt.Sprintf("unit %q already carries an open %q flag", rec.UnitCode, rec.Category()), nil)
			}
		}

		if err := s.repo.Update(txCtx, rec); err != nil {
			return flag.Record{}, mapPgError(err)
		}
		return rec, nil
	})
	if err != nil {
		return flag.Record{}, err
	}

	flagWrites.WithLabelValues("update").Inc()
	s.publishChange("updated", updated)
	return updated, nil
}

// SoftDelete marks a record removed. Records stay in the store for audit.
func (s *FlagService) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	removed, err := inTx(ctx, func(txCtx context.Context) (flag.Record, error) {
		rec, err := s.getExisting(txCtx, id)
		if err != nil {
			return flag.Record{}, err
		}
		rec.Removed = true
		rec.LastModifiedBy = actor
		rec.UpdatedAt = s.nowFn().UTC()
		if err := s.repo.Update(txCtx, rec); err != nil {
			return flag.Record{}, mapPgError(err)
		}
		return rec, nil
	})
	if err != nil {
		return err
	}

	flagWrites.WithLabelValues("soft_delete").Inc()
	s.publishChange("removed", removed)
	return nil
}

func (s *FlagService) GetByID(ctx context.Context, id uuid.UUID) (flag.Record, error) {
	return s.getExisting(ctx, id)
}

func (s *FlagService) getExisting(ctx context.Context, id uuid.UUID) (flag.Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return flag.Record{}, mapPgError(err)
	}
	if rec.ID == uuid.Nil {
		return flag.Record{}, notFoundError("flag", id.String())
	}
	return rec, nil
}

func (s *FlagService) validateRecord(rec flag.Record) error {
	err := rec.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flag.ErrInvalidScope):
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidScope, err.Error(), err)
	default:
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, err.Error(), err)
	}
}

func (s *FlagService) publishChange(changeType string, rec flag.Record) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.FlagChangedV1{
		EventID:         uuid.New(),
		EventVersion:    events.EventVersionV1,
		TransactionTime: s.nowFn().UTC(),
		ChangeType:      changeType,
		FlagID:          rec.ID,
		Category:        string(rec.Category()),
		Severity:        rec.Severity.String(),
		PersonCode:      rec.PersonCode,
		UnitCode:        rec.UnitCode,
	})
}
