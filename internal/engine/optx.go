package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// opTx is the state of one operation's transaction.
type opTx struct {
	*store.Tx
	account string
	op      model.SyncOperation
	now     time.Time
	events  []Event
}

// occurred is the client time of the operation, falling back to server time.
func (t *opTx) occurred() time.Time {
	if t.op.OccurredAt != nil && !t.op.OccurredAt.IsZero() {
		return t.op.OccurredAt.UTC()
	}
	return t.now
}

// record appends the audit entry for a change and queues its event. A zero
// seq marks a change that wrote no entity row (replays, no-op deletes); it
// is audited but not broadcast.
func (t *opTx) record(ctx context.Context, action string, class model.EntityClass, entityID, localID string, seq int64, details string) error {
	err := t.AppendAudit(ctx, store.AuditEntry{
		AccountID:   t.account,
		Action:      action,
		EntityClass: class,
		EntityID:    entityID,
		Details:     details,
		CreatedAt:   t.now,
	})
	if err != nil {
		return err
	}
	if seq > 0 {
		t.events = append(t.events, Event{
			Action:      action,
			AccountID:   t.account,
			EntityClass: class,
			EntityID:    entityID,
			LocalID:     localID,
			Seq:         seq,
			At:          t.now,
		})
	}
	return nil
}

// validate checks the payload against the class schema.
func (e *Engine) validate(op model.SyncOperation) error {
	errs := e.validator.Validate(op.EntityClass, op.Kind, op.Payload)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		msgs[i] = fe.Error()
	}
	return NewValidationError(errs[0].Field, strings.Join(msgs, "; "))
}

// decode converts a validated payload into its typed patch.
func decode[T any](payload map[string]any) (T, error) {
	var out T
	if payload == nil {
		return out, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return out, NewValidationError("payload", err.Error())
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, NewValidationError("payload", err.Error())
	}
	return out, nil
}

// trimmedName returns the trimmed value of a name field, rejecting names
// that are blank after trimming.
func trimmedName(field string, p *string) (string, error) {
	name := strings.TrimSpace(*p)
	if name == "" {
		return "", NewValidationError(field, "must not be blank")
	}
	return name, nil
}
