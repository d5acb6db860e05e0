package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// replaceSet is the orphan reconciler. The payload lists every localId of
// the class that the client still holds; every live record of the class
// whose localId is absent is deleted and tombstoned.
//
// The set must be complete. A client that sends only the records it changed
// deletes everything else. An empty set is refused unless allowEmpty is
// set, since it deletes every record of the class.
func (e *Engine) replaceSet(ctx context.Context, t *opTx) ([]string, error) {
	op := t.op
	if op.EntityClass != model.ClassItem && op.EntityClass != model.ClassOrder {
		return nil, NewValidationError("entityClass", fmt.Sprintf("replace_set is not supported for %s", op.EntityClass))
	}
	if err := e.validate(op); err != nil {
		return nil, err
	}
	set, err := decode[model.ReplaceSet](op.Payload)
	if err != nil {
		return nil, err
	}
	if len(set.LocalIDs) == 0 && !set.AllowEmpty {
		return nil, NewValidationError("localIds", "empty set would delete every record; set allowEmpty to confirm")
	}

	keep := make(map[string]bool, len(set.LocalIDs))
	for _, id := range set.LocalIDs {
		keep[model.NormalizeID(id)] = true
	}

	live, err := t.LiveLocalIDs(ctx, t.account, op.EntityClass)
	if err != nil {
		return nil, err
	}
	localIDs := make([]string, 0, len(live))
	for localID := range live {
		if !keep[localID] {
			localIDs = append(localIDs, localID)
		}
	}
	sort.Strings(localIDs)

	deleted := []string{}
	for _, localID := range localIDs {
		id := live[localID]
		ts, err := t.SoftDelete(ctx, t.account, op.EntityClass, id, t.now)
		if err != nil {
			return nil, err
		}
		if err := t.record(ctx, store.ActionOrphan, op.EntityClass, id, localID, ts.Seq, ""); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}
