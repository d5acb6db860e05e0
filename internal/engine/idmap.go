package engine

import (
	"context"
	"fmt"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// IDMapper resolves client identifiers to server identifiers. Lookups are
// always scoped to one account; the same localId in two accounts maps to
// two unrelated entities.
//
// Mappings are not cached. They are read inside the caller's transaction
// so a create and a later lookup in the same batch always agree.
type IDMapper struct{}

// Resolve returns the entity created with localID, live or tombstoned.
func (IDMapper) Resolve(ctx context.Context, tx *store.Tx, accountID string, class model.EntityClass, localID string) (store.Mapping, bool, error) {
	if localID == "" {
		return store.Mapping{}, false, nil
	}
	m, ok, err := tx.LookupLocalID(ctx, accountID, class, localID)
	if err != nil {
		return store.Mapping{}, false, fmt.Errorf("resolve %s %q: %w", class, localID, err)
	}
	return m, ok, nil
}

// ResolveLive returns the server id of a live entity referenced either by
// server id or, when entityID is empty, by client id. ok is false when no
// live entity matches.
func (m IDMapper) ResolveLive(ctx context.Context, tx *store.Tx, accountID string, class model.EntityClass, entityID, localID string) (string, bool, error) {
	if entityID != "" {
		live, err := tx.IsLive(ctx, accountID, class, entityID)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s %q: %w", class, entityID, err)
		}
		return entityID, live, nil
	}
	mapping, ok, err := m.Resolve(ctx, tx, accountID, class, localID)
	if err != nil || !ok || mapping.Deleted {
		return "", false, err
	}
	return mapping.EntityID, true, nil
}
