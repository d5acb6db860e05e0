package store

import (
	"context"
	"testing"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

func seedChanges(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	mustTx(t, s, func(tx *Tx) error {
		if _, err := tx.InsertGroup(ctx, "acct", testGroup("g1", "G1")); err != nil { // seq 1
			return err
		}
		if _, err := tx.InsertItem(ctx, "acct", testItem("i1", "L1", 1)); err != nil { // seq 2
			return err
		}
		if _, err := tx.InsertItem(ctx, "acct", testItem("i2", "L2", 1)); err != nil { // seq 3
			return err
		}
		if _, err := tx.InsertOrder(ctx, "acct", testOrder("o1", "O1", "ORD-1",
			model.OrderLine{ItemID: "i1", Name: "Item", Unit: "pieces", Quantity: 2})); err != nil { // seq 4
			return err
		}
		if _, err := tx.SoftDelete(ctx, "acct", model.ClassItem, "i2", testTime); err != nil { // seq 5
			return err
		}
		_, err := tx.InsertItem(ctx, "other", testItem("x1", "L1", 1)) // seq 6
		return err
	})
}

func TestReadChanges_All(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)

	got, err := s.ReadChanges(context.Background(), ChangesQuery{AccountID: "acct", Limit: 100})
	if err != nil {
		t.Fatalf("ReadChanges() failed: %v", err)
	}
	if len(got.Records.Group) != 1 || len(got.Records.Item) != 1 || len(got.Records.Order) != 1 {
		t.Errorf("records = %d groups, %d items, %d orders", len(got.Records.Group), len(got.Records.Item), len(got.Records.Order))
	}
	if got.Records.Item[0].ID != "i1" {
		t.Errorf("item = %s, want i1", got.Records.Item[0].ID)
	}
	if len(got.Records.Order[0].Items) != 1 {
		t.Errorf("order lines = %d, want 1", len(got.Records.Order[0].Items))
	}
	if len(got.Tombstones) != 1 || got.Tombstones[0].EntityID != "i2" {
		t.Errorf("tombstones = %+v", got.Tombstones)
	}
	if got.HasMore {
		t.Error("HasMore = true, want false")
	}
	if got.HighWater != 6 {
		t.Errorf("HighWater = %d, want 6", got.HighWater)
	}
	if got.LastSeq != 5 {
		t.Errorf("LastSeq = %d, want 5", got.LastSeq)
	}
}

func TestReadChanges_AfterSeq(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)

	got, err := s.ReadChanges(context.Background(), ChangesQuery{AccountID: "acct", AfterSeq: 3, Limit: 100})
	if err != nil {
		t.Fatalf("ReadChanges() failed: %v", err)
	}
	if got.Records.Len() != 1 || len(got.Records.Order) != 1 {
		t.Errorf("records = %+v", got.Records)
	}
	if len(got.Tombstones) != 1 {
		t.Errorf("tombstones = %d, want 1", len(got.Tombstones))
	}
}

func TestReadChanges_Paginates(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)
	ctx := context.Background()

	var (
		after int64
		seen  []string
		pages int
	)
	for {
		got, err := s.ReadChanges(ctx, ChangesQuery{AccountID: "acct", AfterSeq: after, Limit: 2})
		if err != nil {
			t.Fatalf("ReadChanges() failed: %v", err)
		}
		pages++
		for _, g := range got.Records.Group {
			seen = append(seen, g.ID)
		}
		for _, it := range got.Records.Item {
			seen = append(seen, it.ID)
		}
		for _, o := range got.Records.Order {
			seen = append(seen, o.ID)
		}
		for _, ts := range got.Tombstones {
			seen = append(seen, "-"+ts.EntityID)
		}
		if !got.HasMore {
			break
		}
		after = got.LastSeq
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	want := []string{"g1", "i1", "o1", "-i2"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
}

func TestReadChanges_ClassFilter(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)

	got, err := s.ReadChanges(context.Background(), ChangesQuery{
		AccountID: "acct",
		Classes:   []model.EntityClass{model.ClassGroup},
		Limit:     100,
	})
	if err != nil {
		t.Fatalf("ReadChanges() failed: %v", err)
	}
	if len(got.Records.Group) != 1 || len(got.Records.Item) != 0 || len(got.Tombstones) != 0 {
		t.Errorf("filtered changes = %+v", got)
	}
}

func TestReadChanges_InvalidLimit(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.ReadChanges(context.Background(), ChangesQuery{AccountID: "acct"}); err == nil {
		t.Error("expected error for zero limit")
	}
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)

	st, err := s.Stats(context.Background(), "acct")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Groups != 1 || st.Items != 1 || st.Orders != 1 || st.Tombstones != 1 || st.Seq != 6 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPurgeTombstones(t *testing.T) {
	s := createTestStore(t)
	seedChanges(t, s)
	ctx := context.Background()

	n, err := s.PurgeTombstones(ctx, testTime.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PurgeTombstones() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d tombstones before cutoff, want 0", n)
	}

	n, err = s.PurgeTombstones(ctx, testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeTombstones() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d tombstones, want 1", n)
	}

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE id = 'i2'").Scan(&rows); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rows != 0 {
		t.Error("soft-deleted item survived purge")
	}
}
