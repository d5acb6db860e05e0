package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// Pull returns every change for the account after the request cursor.
//
// The returned cursor is the seq of the last change delivered when HasMore
// is set, and the store's high-water mark otherwise. It is never earlier
// than the request cursor. Pull does not write.
func (e *Engine) Pull(ctx context.Context, accountID string, req model.PullRequest) (model.PullResponse, error) {
	if strings.TrimSpace(accountID) == "" {
		return model.PullResponse{}, NewUnauthorizedError("no account identity")
	}
	cursor, err := model.ParseCursorPtr(req.Cursor)
	if err != nil {
		return model.PullResponse{}, NewValidationError("cursor", err.Error())
	}
	classes, err := checkClasses(req.EntityClasses)
	if err != nil {
		return model.PullResponse{}, err
	}
	return e.pull(ctx, accountID, cursor, classes, req.Limit)
}

func (e *Engine) pull(ctx context.Context, accountID string, cursor model.Cursor, classes []model.EntityClass, limit int) (model.PullResponse, error) {
	if limit <= 0 || limit > e.pageSize {
		limit = e.pageSize
	}

	changes, err := e.store.ReadChanges(ctx, store.ChangesQuery{
		AccountID: accountID,
		AfterSeq:  cursor.Seq(),
		Classes:   classes,
		Limit:     limit,
	})
	if err != nil {
		return model.PullResponse{}, &SyncError{Code: ErrCodeInternal, Message: "read changes", Err: err}
	}

	next := model.Cursor(changes.HighWater)
	if changes.HasMore {
		next = model.Cursor(changes.LastSeq)
	}
	next = next.Max(cursor)

	deleted := make([]string, len(changes.Tombstones))
	for i, ts := range changes.Tombstones {
		deleted[i] = ts.EntityID
	}

	resp := model.PullResponse{
		Records:    changes.Records,
		DeletedIDs: deleted,
		ServerTime: e.clock.Now(),
		Cursor:     next.String(),
		HasMore:    changes.HasMore,
	}

	e.sink.Emit(ctx, Event{Action: store.ActionSyncPull, AccountID: accountID, At: resp.ServerTime})
	slog.Info("pull served",
		"account", accountID,
		"records", resp.Records.Len(),
		"deleted", len(deleted),
		"has_more", resp.HasMore,
	)
	return resp, nil
}

// checkClasses validates and de-duplicates a class filter.
func checkClasses(classes []model.EntityClass) ([]model.EntityClass, error) {
	if len(classes) == 0 {
		return nil, nil
	}
	seen := make(map[model.EntityClass]bool, len(classes))
	out := make([]model.EntityClass, 0, len(classes))
	for _, c := range classes {
		if !c.Valid() {
			return nil, NewValidationError("entityClasses", fmt.Sprintf("unknown entity class %q", c))
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}
