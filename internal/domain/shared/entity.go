package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps every stored record has.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID stamped with the current UTC time.
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt assigns a fresh ID stamped with at, normalized to UTC.
func NewBaseEntityAt(at time.Time) BaseEntity {
	at = at.UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Touch records a state change
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at.UTC()
}
