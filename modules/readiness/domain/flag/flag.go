package flag

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forcetrack/readiness/pkg/serrors"
)

// Severity orders how restrictive a flag is. Higher wins during resolution.
type Severity int

const (
	SeverityAvailable Severity = iota
	SeverityLimited
	SeverityUnavailable
)

func (s Severity) String() string {
	switch s {
	case SeverityAvailable:
		return "available"
	case SeverityLimited:
		return "limited"
	case SeverityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func ParseSeverity(v string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "available":
		return SeverityAvailable, true
	case "limited":
		return SeverityLimited, true
	case "unavailable":
		return SeverityUnavailable, true
	default:
		return SeverityAvailable, false
	}
}

type Category string

const (
	CategoryAdministrative Category = "administrative"
	CategoryDuty           Category = "duty"
	CategoryTasking        Category = "tasking"
	CategoryProfile        Category = "profile"
	CategoryOther          Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryAdministrative, CategoryDuty, CategoryTasking, CategoryProfile, CategoryOther:
		return true
	}
	return false
}

// Payload is the category-specific portion of a flag. Exactly one variant is
// attached to a record at any time; swapping categories replaces the whole
// payload, so two categories' fields can never coexist.
type Payload interface {
	Category() Category
}

type AdministrativePayload struct {
	ActionCode string `json:"action_code"`
	Authority  string `json:"authority"`
}

func (AdministrativePayload) Category() Category { return CategoryAdministrative }

type DutyPayload struct {
	PositionCode string `json:"position_code"`
	DutyTitle    string `json:"duty_title"`
}

func (DutyPayload) Category() Category { return CategoryDuty }

type TaskingPayload struct {
	Operation string `json:"operation"`
	TaskOrder string `json:"task_order"`
}

func (TaskingPayload) Category() Category { return CategoryTasking }

type ProfilePayload struct {
	ProfileCode string `json:"profile_code"`
	IssuedBy    string `json:"issued_by"`
}

func (ProfilePayload) Category() Category { return CategoryProfile }

type OtherPayload struct {
	Note string `json:"note"`
}

func (OtherPayload) Category() Category { return CategoryOther }

var (
	ErrInvalidScope = serrors.NewError("READINESS_INVALID_SCOPE", "flag requires a person or unit scope", "")
	ErrDateOrder    = serrors.NewError("READINESS_DATE_ORDER", "start_date must not be after end_date", "")
	ErrNoPayload    = serrors.NewError("READINESS_NO_PAYLOAD", "flag requires a category payload", "")
)

// Record is a time-windowed availability restriction scoped to a person, a
// unit, or both. Records are soft-deleted only.
type Record struct {
	ID             uuid.UUID
	Severity       Severity
	Payload        Payload
	StartDate      time.Time
	EndDate        time.Time // zero value means open-ended
	Remarks        string
	PersonCode     string
	UnitCode       string
	Removed        bool
	LastModifiedBy string
	UpdatedAt      time.Time
}

func (r Record) Category() Category {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Category()
}

func (r Record) OpenEnded() bool { return r.EndDate.IsZero() }

// UnitScoped reports whether the record applies through a unit rather than
// being pinned to a single person.
func (r Record) UnitScoped() bool { return r.PersonCode == "" && r.UnitCode != "" }

// ActiveOn reports whether the record applies as of the given day.
func (r Record) ActiveOn(d time.Time) bool {
	if r.Removed {
		return false
	}
	if r.StartDate.After(d) {
		return false
	}
	if r.OpenEnded() {
		return true
	}
	return !d.After(r.EndDate)
}

func (r Record) Validate() error {
	if r.PersonCode == "" && r.UnitCode == "" {
		return ErrInvalidScope
	}
	if r.Payload == nil {
		return ErrNoPayload
	}
	if !r.OpenEnded() && r.StartDate.After(r.EndDate) {
		return ErrDateOrder
	}
	return nil
}
