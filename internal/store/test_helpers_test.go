package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

var testTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustTx runs fn in a transaction and fails the test on error.
func mustTx(t *testing.T, s *Store, fn func(*Tx) error) {
	t.Helper()
	if err := s.WithTx(context.Background(), fn); err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}
}

func testGroup(id, localID string) model.Group {
	return model.Group{
		ID:        id,
		LocalID:   localID,
		Name:      "Group " + localID,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func testItem(id, localID string, qty int) model.Item {
	return model.Item{
		ID:        id,
		LocalID:   localID,
		Name:      "Item " + localID,
		Quantity:  qty,
		Unit:      model.DefaultUnit,
		IsActive:  true,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func testOrder(id, localID, orderID string, lines ...model.OrderLine) model.Order {
	if lines == nil {
		lines = []model.OrderLine{}
	}
	return model.Order{
		ID:         id,
		LocalID:    localID,
		OrderID:    orderID,
		Status:     model.StatusPending,
		ExportedAt: testTime,
		Items:      lines,
		CreatedAt:  testTime,
		UpdatedAt:  testTime,
	}
}
