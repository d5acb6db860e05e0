package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// ChangesQuery selects the changes a pull delivers.
type ChangesQuery struct {
	AccountID string
	AfterSeq  int64
	Classes   []model.EntityClass // empty means all
	Limit     int
}

// Changes is one page of records and tombstones ordered by seq.
//
// LastSeq is the seq of the last change in the page. HighWater is the sync
// clock observed in the same read transaction; when HasMore is false every
// change up to HighWater has been returned.
type Changes struct {
	Records    model.Records
	Tombstones []Tombstone
	LastSeq    int64
	HighWater  int64
	HasMore    bool
}

type change struct {
	seq   int64
	class model.EntityClass
	idx   int
	dead  bool
}

// ReadChanges returns live records and tombstones with seq > AfterSeq, at
// most Limit of them in total. Every query runs in one transaction so the
// page and HighWater describe the same snapshot.
func (s *Store) ReadChanges(ctx context.Context, q ChangesQuery) (*Changes, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("read changes: limit must be positive, got %d", q.Limit)
	}
	classes := q.Classes
	if len(classes) == 0 {
		classes = model.AllClasses()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("read changes: begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		groups  []model.Group
		items   []model.Item
		orders  []model.Order
		changes []change
	)
	fetch := q.Limit + 1

	for _, class := range classes {
		switch class {
		case model.ClassGroup:
			rows, err := tx.QueryContext(ctx, `
				SELECT `+groupColumns+` FROM item_groups
				WHERE account_id = ? AND seq > ? AND deleted_at IS NULL
				ORDER BY seq ASC, id COLLATE BINARY ASC
				LIMIT ?
			`, q.AccountID, q.AfterSeq, fetch)
			if err != nil {
				return nil, fmt.Errorf("read changes: groups: %w", err)
			}
			for rows.Next() {
				g, seq, err := scanGroup(rows)
				if err != nil {
					rows.Close()
					return nil, fmt.Errorf("read changes: groups: %w", err)
				}
				changes = append(changes, change{seq: seq, class: class, idx: len(groups)})
				groups = append(groups, g)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("read changes: groups: %w", err)
			}

		case model.ClassItem:
			rows, err := tx.QueryContext(ctx, `
				SELECT `+itemColumns+` FROM items
				WHERE account_id = ? AND seq > ? AND deleted_at IS NULL
				ORDER BY seq ASC, id COLLATE BINARY ASC
				LIMIT ?
			`, q.AccountID, q.AfterSeq, fetch)
			if err != nil {
				return nil, fmt.Errorf("read changes: items: %w", err)
			}
			for rows.Next() {
				it, seq, err := scanItem(rows)
				if err != nil {
					rows.Close()
					return nil, fmt.Errorf("read changes: items: %w", err)
				}
				changes = append(changes, change{seq: seq, class: class, idx: len(items)})
				items = append(items, it)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("read changes: items: %w", err)
			}

		case model.ClassOrder:
			rows, err := tx.QueryContext(ctx, `
				SELECT `+orderColumns+` FROM orders
				WHERE account_id = ? AND seq > ? AND deleted_at IS NULL
				ORDER BY seq ASC, id COLLATE BINARY ASC
				LIMIT ?
			`, q.AccountID, q.AfterSeq, fetch)
			if err != nil {
				return nil, fmt.Errorf("read changes: orders: %w", err)
			}
			for rows.Next() {
				o, seq, err := scanOrder(rows)
				if err != nil {
					rows.Close()
					return nil, fmt.Errorf("read changes: orders: %w", err)
				}
				changes = append(changes, change{seq: seq, class: class, idx: len(orders)})
				orders = append(orders, o)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("read changes: orders: %w", err)
			}

		default:
			return nil, fmt.Errorf("read changes: unknown entity class %q", class)
		}
	}

	tombstones, err := readTombstones(ctx, tx, q.AccountID, q.AfterSeq, classes, fetch)
	if err != nil {
		return nil, err
	}
	for i, ts := range tombstones {
		changes = append(changes, change{seq: ts.Seq, class: ts.EntityClass, idx: i, dead: true})
	}

	highWater, err := currentSeq(ctx, tx)
	if err != nil {
		return nil, err
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].seq < changes[j].seq })

	out := &Changes{
		Records:    model.NewRecords(),
		Tombstones: []Tombstone{},
		HighWater:  highWater,
	}
	if len(changes) > q.Limit {
		out.HasMore = true
		changes = changes[:q.Limit]
	}

	for _, c := range changes {
		out.LastSeq = c.seq
		if c.dead {
			out.Tombstones = append(out.Tombstones, tombstones[c.idx])
			continue
		}
		switch c.class {
		case model.ClassGroup:
			out.Records.Group = append(out.Records.Group, groups[c.idx])
		case model.ClassItem:
			out.Records.Item = append(out.Records.Item, items[c.idx])
		case model.ClassOrder:
			o := orders[c.idx]
			if o.Items, err = loadLines(ctx, tx, o.ID); err != nil {
				return nil, err
			}
			out.Records.Order = append(out.Records.Order, o)
		}
	}

	return out, nil
}

func readTombstones(ctx context.Context, q querier, accountID string, afterSeq int64, classes []model.EntityClass, limit int) ([]Tombstone, error) {
	placeholders := make([]string, len(classes))
	args := []any{accountID, afterSeq}
	for i, c := range classes {
		placeholders[i] = "?"
		args = append(args, string(c))
	}
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, `
		SELECT id, account_id, entity_class, entity_id, local_id, seq, deleted_at
		FROM tombstones
		WHERE account_id = ? AND seq > ? AND entity_class IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	defer rows.Close()

	var out []Tombstone
	for rows.Next() {
		var (
			ts          Tombstone
			class, when string
		)
		if err := rows.Scan(&ts.ID, &ts.AccountID, &class, &ts.EntityID, &ts.LocalID, &ts.Seq, &when); err != nil {
			return nil, fmt.Errorf("read tombstones: scan: %w", err)
		}
		ts.EntityClass = model.EntityClass(class)
		if ts.DeletedAt, err = parseTime(when); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Stats counts an account's rows.
type Stats struct {
	Groups     int   `json:"groups"`
	Items      int   `json:"items"`
	Orders     int   `json:"orders"`
	Tombstones int   `json:"tombstones"`
	AuditLog   int   `json:"auditLog"`
	Seq        int64 `json:"seq"`
}

// Stats returns live row counts for an account.
func (s *Store) Stats(ctx context.Context, accountID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM item_groups WHERE account_id = ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM items WHERE account_id = ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM orders WHERE account_id = ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM tombstones WHERE account_id = ?),
			(SELECT COUNT(*) FROM audit_log WHERE account_id = ?),
			(SELECT seq FROM sync_clock WHERE id = 1)
	`, accountID, accountID, accountID, accountID, accountID).Scan(
		&st.Groups, &st.Items, &st.Orders, &st.Tombstones, &st.AuditLog, &st.Seq,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// PurgeTombstones hard-deletes tombstones and soft-deleted rows whose
// deletion is older than cutoff. Clients whose cursor predates a purged
// tombstone never learn of that deletion, so the retention window must
// exceed the longest expected offline period.
func (s *Store) PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.WithTx(ctx, func(t *Tx) error {
		c := formatTime(cutoff)
		res, err := t.tx.ExecContext(ctx, `DELETE FROM tombstones WHERE deleted_at < ?`, c)
		if err != nil {
			return fmt.Errorf("purge tombstones: %w", err)
		}
		if purged, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("purge tombstones: %w", err)
		}
		for _, table := range []string{"orders", "items", "item_groups"} {
			if _, err := t.tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE deleted_at IS NOT NULL AND deleted_at < ?`, c,
			); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		return nil
	})
	return purged, err
}
