package store

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// Audit actions written by the sync engine.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionOrphan     = "orphan_delete"
	ActionStockApply = "stock_apply"
	ActionSyncPush   = "sync_push"
	ActionSyncPull   = "sync_pull"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID          string
	AccountID   string
	Action      string
	EntityClass model.EntityClass
	EntityID    string
	Details     string
	CreatedAt   time.Time
}

// Tombstone records a deleted entity for delivery to pulling clients.
type Tombstone struct {
	ID          string
	AccountID   string
	EntityClass model.EntityClass
	EntityID    string
	LocalID     string
	Seq         int64
	DeletedAt   time.Time
}

// AppendAudit writes an audit entry outside any entity transaction. Used
// for request-level entries such as sync_push.
func (s *Store) AppendAudit(ctx context.Context, e AuditEntry) error {
	return appendAudit(ctx, s.db, e)
}

func appendAudit(ctx context.Context, q querier, e AuditEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var class, entityID, details any
	if e.EntityClass != "" {
		class = string(e.EntityClass)
	}
	if e.EntityID != "" {
		entityID = e.EntityID
	}
	if e.Details != "" {
		details = e.Details
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (id, account_id, action, entity_class, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.Action, class, entityID, details, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit entries for an account, newest first.
func (s *Store) ListAudit(ctx context.Context, accountID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, action, COALESCE(entity_class, ''), COALESCE(entity_id, ''),
		       COALESCE(details, ''), created_at
		FROM audit_log
		WHERE account_id = ?
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var class, created string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Action, &class, &e.EntityID, &e.Details, &created); err != nil {
			return nil, fmt.Errorf("list audit: scan: %w", err)
		}
		e.EntityClass = model.EntityClass(class)
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
