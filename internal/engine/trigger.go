package engine

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operation names one of the protocol's uniform entity operations.
type Operation string

const (
	OpList       Operation = "list"
	OpGet        Operation = "get"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpSoftDelete Operation = "softDelete"
	OpHardDelete Operation = "hardDelete"
	OpCount      Operation = "count"
)

// KnownOperation reports whether op is part of the protocol.
func KnownOperation(op Operation) bool {
	switch op {
	case OpList, OpGet, OpCreate, OpUpdate, OpSoftDelete, OpHardDelete, OpCount:
		return true
	}
	return false
}

// Trigger is a named intent issued by a view. Triggers are the only way state
// changes; each one produces exactly one terminal state transition.
type Trigger struct {
	ID       string          `json:"id"`
	Entity   string          `json:"entity"`
	Op       Operation       `json:"op"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	IssuedAt time.Time       `json:"issuedAt"`
}

// NewTrigger stamps a trigger with identity and time.
func NewTrigger(entity string, op Operation, payload json.RawMessage) Trigger {
	return Trigger{
		ID:       uuid.NewString(),
		Entity:   entity,
		Op:       op,
		Payload:  payload,
		IssuedAt: time.Now().UTC(),
	}
}

// IDPayload carries an identifier for get and delete triggers.
type IDPayload struct {
	ID string `json:"id" validate:"required"`
}

// UpdatePayload carries an identifier plus the replacement document.
type UpdatePayload struct {
	ID   string          `json:"id" validate:"required"`
	Data json.RawMessage `json:"data" validate:"required"`
}
