package model

import (
	"fmt"
	"time"
)

// OperationKind is the mutation intent carried by a SyncOperation.
type OperationKind string

const (
	KindCreate OperationKind = "create"
	KindUpdate OperationKind = "update"
	KindDelete OperationKind = "delete"

	// KindReplaceSet declares the complete current set of localIds for an
	// entity class. Live records of that class whose localId is missing from
	// the set are deleted once every explicit operation in the batch has run.
	KindReplaceSet OperationKind = "replace_set"
)

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete, KindReplaceSet:
		return true
	}
	return false
}

// EntityClass names a synchronized record class.
type EntityClass string

const (
	ClassGroup EntityClass = "group"
	ClassItem  EntityClass = "item"
	ClassOrder EntityClass = "order"
)

// AllClasses returns every synchronized class in dependency order: groups
// before the items that reference them, items before the orders whose lines
// reference items.
func AllClasses() []EntityClass {
	return []EntityClass{ClassGroup, ClassItem, ClassOrder}
}

// Valid reports whether c is a known entity class.
func (c EntityClass) Valid() bool {
	switch c {
	case ClassGroup, ClassItem, ClassOrder:
		return true
	}
	return false
}

// ParseEntityClass converts a wire string into an EntityClass.
func ParseEntityClass(s string) (EntityClass, error) {
	c := EntityClass(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown entity class %q", s)
	}
	return c, nil
}

// SyncOperation is a single client-originated mutation intent.
//
// OperationID only correlates the operation with its result. Idempotency of
// creates comes from LocalID.
type SyncOperation struct {
	OperationID string         `json:"operationId"`
	Kind        OperationKind  `json:"kind"`
	EntityClass EntityClass    `json:"entityClass"`
	LocalID     string         `json:"localId,omitempty"`
	EntityID    string         `json:"entityId,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  *time.Time     `json:"occurredAt,omitempty"`
}

// OperationResult is the per-operation outcome returned by a push.
type OperationResult struct {
	OperationID string          `json:"operationId"`
	Success     bool            `json:"success"`
	EntityID    string          `json:"entityId,omitempty"`
	LocalID     string          `json:"localId,omitempty"`
	Deleted     []string        `json:"deleted,omitempty"`
	Error       *OperationError `json:"error,omitempty"`
}

// OperationError classifies a failed operation.
type OperationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
