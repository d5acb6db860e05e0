package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// auditScanLimit bounds the audit entries read by audit_count.
const auditScanLimit = 10000

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertions runs every final-state assertion and returns the
// failure messages.
func (h *Harness) evaluateAssertions(ctx context.Context, scenario *Scenario) []string {
	var errs []string
	for i, a := range scenario.Assertions {
		account := a.Account
		if account == "" {
			account = scenario.Account
		}
		if err := h.evaluate(ctx, account, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) evaluate(ctx context.Context, account string, a Assertion) error {
	switch a.Type {
	case AssertLiveCount:
		return h.assertLiveCount(ctx, account, a)
	case AssertAuditCount:
		return h.assertAuditCount(ctx, account, a)
	case AssertItemQuantity:
		return h.assertItemQuantity(ctx, account, a)
	case AssertOrderStatus:
		return h.assertOrderStatus(ctx, account, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) assertLiveCount(ctx context.Context, account string, a Assertion) error {
	stats, err := h.store.Stats(ctx, account)
	if err != nil {
		return err
	}
	var got int
	switch model.EntityClass(a.Class) {
	case model.ClassGroup:
		got = stats.Groups
	case model.ClassItem:
		got = stats.Items
	case model.ClassOrder:
		got = stats.Orders
	}
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertLiveCount,
			Expected: fmt.Sprintf("%d live %s records", *a.Count, a.Class),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func (h *Harness) assertAuditCount(ctx context.Context, account string, a Assertion) error {
	entries, err := h.store.ListAudit(ctx, account, auditScanLimit)
	if err != nil {
		return err
	}
	got := 0
	for _, e := range entries {
		if e.Action == a.Action {
			got++
		}
	}
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertAuditCount,
			Expected: fmt.Sprintf("%d %s audit entries", *a.Count, a.Action),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func (h *Harness) assertItemQuantity(ctx context.Context, account string, a Assertion) error {
	id, err := h.liveID(ctx, account, model.ClassItem, a.LocalID)
	if err != nil {
		return err
	}
	it, err := h.store.GetItem(ctx, account, id)
	if err != nil {
		return err
	}
	if it.Quantity != *a.Quantity {
		return &AssertionError{
			Type:     AssertItemQuantity,
			Expected: fmt.Sprintf("item %s quantity %d", a.LocalID, *a.Quantity),
			Actual:   fmt.Sprintf("%d", it.Quantity),
		}
	}
	return nil
}

func (h *Harness) assertOrderStatus(ctx context.Context, account string, a Assertion) error {
	id, err := h.liveID(ctx, account, model.ClassOrder, a.LocalID)
	if err != nil {
		return err
	}
	o, err := h.store.GetOrder(ctx, account, id)
	if err != nil {
		return err
	}
	if string(o.Status) != a.Status {
		return &AssertionError{
			Type:     AssertOrderStatus,
			Expected: fmt.Sprintf("order %s status %s", a.LocalID, a.Status),
			Actual:   string(o.Status),
		}
	}
	return nil
}

// liveID resolves a localId to the id of a live entity.
func (h *Harness) liveID(ctx context.Context, account string, class model.EntityClass, localID string) (string, error) {
	var m store.Mapping
	var ok bool
	err := h.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		m, ok, err = tx.LookupLocalID(ctx, account, class, localID)
		return err
	})
	if err != nil {
		return "", err
	}
	if !ok || m.Deleted {
		return "", fmt.Errorf("no live %s with localId %q", class, localID)
	}
	return m.EntityID, nil
}
