package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicHierarchyChangedV1  = "readiness.hierarchy.changed.v1"
	TopicFlagChangedV1       = "readiness.flag.changed.v1"
	TopicPersonTransferredV1 = "readiness.person.transferred.v1"
	EventVersionV1           = 1
)

type HierarchyChangedV1 struct {
	EventID         uuid.UUID `json:"event_id"`
	EventVersion    int       `json:"event_version"`
	TransactionTime time.Time `json:"transaction_time"`
	ChangeType      string    `json:"change_type"` // registered | reparented | deleted
	UnitCode        string    `json:"unit_code"`
	OldParentCode   string    `json:"old_parent_code,omitempty"`
	NewParentCode   string    `json:"new_parent_code,omitempty"`
}

type FlagChangedV1 struct {
	EventID         uuid.UUID `json:"event_id"`
	EventVersion    int       `json:"event_version"`
	TransactionTime time.Time `json:"transaction_time"`
	ChangeType      string    `json:"change_type"` // created | updated | removed
	FlagID          uuid.UUID `json:"flag_id"`
	Category        string    `json:"category"`
	Severity        string    `json:"severity"`
	PersonCode      string    `json:"person_code,omitempty"`
	UnitCode        string    `json:"unit_code,omitempty"`
}

type PersonTransferredV1 struct {
	EventID         uuid.UUID `json:"event_id"`
	EventVersion    int       `json:"event_version"`
	TransactionTime time.Time `json:"transaction_time"`
	PersonCode      string    `json:"person_code"`
	OldUnitCode     string    `json:"old_unit_code"`
	NewUnitCode     string    `json:"new_unit_code"`
	EffectiveDate   time.Time `json:"effective_date"`
	ClosedFlags     int       `json:"closed_flags"`
	MintedFlags     int       `json:"minted_flags"`
}
