package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// Push applies a batch of operations for one account.
//
// Request-level problems (missing account, oversized batch, missing or
// duplicate operation ids) return an error before anything is written.
// Otherwise every operation yields exactly one result, in request order,
// and Push itself returns a nil error.
func (e *Engine) Push(ctx context.Context, accountID string, req model.PushRequest) (model.PushResponse, error) {
	if err := e.checkPush(accountID, req.Operations); err != nil {
		return model.PushResponse{}, err
	}

	results := make([]model.OperationResult, len(req.Operations))
	for _, i := range plan(req.Operations) {
		results[i] = e.applyOne(ctx, accountID, req.Operations[i])
	}

	resp := model.PushResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.SuccessCount++
		} else {
			resp.ErrorCount++
		}
	}
	resp.ServerTime = e.clock.Now()

	if err := e.store.AppendAudit(ctx, store.AuditEntry{
		AccountID: accountID,
		Action:    store.ActionSyncPush,
		Details:   fmt.Sprintf("%d succeeded, %d failed", resp.SuccessCount, resp.ErrorCount),
		CreatedAt: resp.ServerTime,
	}); err != nil {
		slog.Warn("push audit entry not written", "account", accountID, "error", err)
	}

	slog.Info("push applied",
		"account", accountID,
		"operations", len(results),
		"ok", resp.SuccessCount,
		"failed", resp.ErrorCount,
	)
	return resp, nil
}

// checkPush validates the request envelope.
func (e *Engine) checkPush(accountID string, ops []model.SyncOperation) error {
	if strings.TrimSpace(accountID) == "" {
		return NewUnauthorizedError("no account identity")
	}
	if len(ops) > e.maxBatch {
		return NewValidationError("operations", fmt.Sprintf("batch of %d exceeds limit of %d", len(ops), e.maxBatch))
	}
	seen := make(map[string]bool, len(ops))
	for i, op := range ops {
		if op.OperationID == "" {
			return NewValidationError(fmt.Sprintf("operations[%d].operationId", i), "required")
		}
		if seen[op.OperationID] {
			return NewValidationError(fmt.Sprintf("operations[%d].operationId", i), fmt.Sprintf("duplicate %q", op.OperationID))
		}
		seen[op.OperationID] = true
	}
	return nil
}

// plan returns operation indices in execution order: explicit operations
// in request order, then every replace_set operation in request order.
// Explicit operations are never reordered across classes.
func plan(ops []model.SyncOperation) []int {
	var explicit, replace []int
	for i, op := range ops {
		if op.Kind == model.KindReplaceSet {
			replace = append(replace, i)
		} else {
			explicit = append(explicit, i)
		}
	}
	return append(explicit, replace...)
}

// prepare normalises identifiers and payload strings and checks the
// operation's shape.
func prepare(op model.SyncOperation) (model.SyncOperation, error) {
	op.LocalID = model.NormalizeID(op.LocalID)
	op.EntityID = strings.TrimSpace(op.EntityID)
	op.Payload = model.NormalizePayload(op.Payload)

	if !op.Kind.Valid() {
		return op, NewValidationError("kind", fmt.Sprintf("unknown operation kind %q", op.Kind))
	}
	if !op.EntityClass.Valid() {
		return op, NewValidationError("entityClass", fmt.Sprintf("unknown entity class %q", op.EntityClass))
	}
	switch op.Kind {
	case model.KindCreate:
		if op.LocalID == "" {
			return op, NewValidationError("localId", "required for create")
		}
	case model.KindUpdate, model.KindDelete:
		if op.EntityID == "" && op.LocalID == "" {
			return op, NewValidationError("entityId", "entityId or localId required")
		}
	}
	return op, nil
}

// applyOne runs a single operation in its own transaction and converts the
// outcome into a result. Events are emitted only after commit.
func (e *Engine) applyOne(ctx context.Context, accountID string, op model.SyncOperation) model.OperationResult {
	res := model.OperationResult{OperationID: op.OperationID, LocalID: op.LocalID, EntityID: op.EntityID}

	op, err := prepare(op)
	if err == nil {
		var t *opTx
		err = e.store.WithTx(ctx, func(tx *store.Tx) error {
			t = &opTx{Tx: tx, account: accountID, op: op, now: e.clock.Now()}
			switch op.Kind {
			case model.KindCreate:
				id, err := e.create(ctx, t)
				res.EntityID = id
				return err
			case model.KindUpdate:
				id, err := e.update(ctx, t)
				res.EntityID = id
				return err
			case model.KindDelete:
				id, err := e.remove(ctx, t)
				res.EntityID = id
				return err
			case model.KindReplaceSet:
				deleted, err := e.replaceSet(ctx, t)
				res.Deleted = deleted
				return err
			}
			return nil
		})
		if err == nil {
			for _, ev := range t.events {
				e.sink.Emit(ctx, ev)
			}
		}
	}

	if err != nil {
		res.Success = false
		res.Deleted = nil
		res.Error = toOperationError(err)
		level := slog.LevelWarn
		if CodeOf(err) == ErrCodeInternal {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "operation failed",
			"account", accountID,
			"operation", op.OperationID,
			"kind", op.Kind,
			"class", op.EntityClass,
			"error", err,
		)
		return res
	}

	res.Success = true
	slog.Debug("operation applied",
		"account", accountID,
		"operation", op.OperationID,
		"kind", op.Kind,
		"class", op.EntityClass,
		"entity", res.EntityID,
	)
	return res
}

// create inserts a new entity, or returns the existing entity id when the
// localId was already used (replayed create). A localId whose entity has
// since been deleted also replays: the tombstoned id is returned and the
// entity is not resurrected.
func (e *Engine) create(ctx context.Context, t *opTx) (string, error) {
	op := t.op
	m, ok, err := e.mapper.Resolve(ctx, t.Tx, t.account, op.EntityClass, op.LocalID)
	if err != nil {
		return "", err
	}
	if ok {
		return m.EntityID, t.record(ctx, store.ActionCreate, op.EntityClass, m.EntityID, op.LocalID, 0, "replay")
	}

	if err := e.validate(op); err != nil {
		return "", err
	}
	switch op.EntityClass {
	case model.ClassGroup:
		return e.createGroup(ctx, t)
	case model.ClassItem:
		return e.createItem(ctx, t)
	case model.ClassOrder:
		return e.createOrder(ctx, t)
	}
	return "", NewValidationError("entityClass", fmt.Sprintf("unknown entity class %q", op.EntityClass))
}

// update overwrites the fields present in the payload of a live entity.
func (e *Engine) update(ctx context.Context, t *opTx) (string, error) {
	op := t.op
	id, ok, err := e.mapper.ResolveLive(ctx, t.Tx, t.account, op.EntityClass, op.EntityID, op.LocalID)
	if err != nil {
		return "", err
	}
	if !ok {
		return op.EntityID, NewNotFoundError(op.EntityClass, ref(op))
	}

	if err := e.validate(op); err != nil {
		return id, err
	}
	switch op.EntityClass {
	case model.ClassGroup:
		return id, e.updateGroup(ctx, t, id)
	case model.ClassItem:
		return id, e.updateItem(ctx, t, id)
	case model.ClassOrder:
		return id, e.updateOrder(ctx, t, id)
	}
	return id, NewValidationError("entityClass", fmt.Sprintf("unknown entity class %q", op.EntityClass))
}

// remove soft-deletes a live entity and writes its tombstone. A missing
// target is a successful no-op. Deleting a group detaches its items.
func (e *Engine) remove(ctx context.Context, t *opTx) (string, error) {
	op := t.op
	id, ok, err := e.mapper.ResolveLive(ctx, t.Tx, t.account, op.EntityClass, op.EntityID, op.LocalID)
	if err != nil {
		return "", err
	}
	if !ok {
		known := op.EntityID
		if known == "" {
			if m, found, err := e.mapper.Resolve(ctx, t.Tx, t.account, op.EntityClass, op.LocalID); err == nil && found {
				known = m.EntityID
			}
		}
		return known, t.record(ctx, store.ActionDelete, op.EntityClass, known, op.LocalID, 0, "already deleted")
	}

	if op.EntityClass == model.ClassGroup {
		n, err := t.DetachItems(ctx, t.account, id, t.now)
		if err != nil {
			return id, err
		}
		if n > 0 {
			slog.Debug("items detached from deleted group", "account", t.account, "group", id, "items", n)
		}
	}

	ts, err := t.SoftDelete(ctx, t.account, op.EntityClass, id, t.now)
	if errors.Is(err, store.ErrNotFound) {
		return id, t.record(ctx, store.ActionDelete, op.EntityClass, id, op.LocalID, 0, "already deleted")
	}
	if err != nil {
		return id, err
	}
	return id, t.record(ctx, store.ActionDelete, op.EntityClass, id, ts.LocalID, ts.Seq, "")
}

// ref names the target of an operation for error messages.
func ref(op model.SyncOperation) string {
	if op.EntityID != "" {
		return op.EntityID
	}
	return "localId:" + op.LocalID
}
