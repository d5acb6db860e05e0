package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// maxOrderIDAttempts bounds the search for a free order id.
const maxOrderIDAttempts = 5

func (e *Engine) createOrder(ctx context.Context, t *opTx) (string, error) {
	p, err := decode[model.OrderPatch](t.op.Payload)
	if err != nil {
		return "", err
	}
	o := model.Order{
		ID:         e.ids.NewID(),
		LocalID:    t.op.LocalID,
		Status:     model.StatusPending,
		ExportedAt: t.now,
		Items:      []model.OrderLine{},
		CreatedAt:  t.now,
		UpdatedAt:  t.now,
	}
	if p.Items != nil {
		o.Items = normalizeLines(*p.Items)
	}
	applyOrderFields(&o, p, true)

	// A created order is a snapshot of the client's state. Its status is
	// taken as given and never triggers the stock side effect, which the
	// client has already reflected in the item quantities it pushes.
	if p.Status != nil {
		o.Status = *p.Status
		stampStatus(&o, o.Status, t.occurred())
	}

	proposed := defaultOrderID(o.LocalID)
	if p.OrderID != nil && strings.TrimSpace(*p.OrderID) != "" {
		proposed = strings.TrimSpace(*p.OrderID)
	}
	if o.OrderID, err = e.uniqueOrderID(ctx, t, proposed); err != nil {
		return "", err
	}

	seq, err := t.InsertOrder(ctx, t.account, o)
	if err != nil {
		return "", err
	}
	return o.ID, t.record(ctx, store.ActionCreate, model.ClassOrder, o.ID, o.LocalID, seq, o.OrderID)
}

func (e *Engine) updateOrder(ctx context.Context, t *opTx, id string) error {
	p, err := decode[model.OrderPatch](t.op.Payload)
	if err != nil {
		return err
	}
	o, err := t.GetOrder(ctx, t.account, id)
	if err != nil {
		return err
	}

	replaceLines := p.Items != nil
	if replaceLines {
		lines := normalizeLines(*p.Items)
		if o.Status == model.StatusStockUpdated && !sameStockLines(o.Items, lines) {
			return NewValidationError("items", "lines of an order already applied to stock cannot change")
		}
		o.Items = lines
	}
	applyOrderFields(&o, p, replaceLines)

	if p.OrderID != nil && strings.TrimSpace(*p.OrderID) != "" && strings.TrimSpace(*p.OrderID) != o.OrderID {
		next := strings.TrimSpace(*p.OrderID)
		taken, err := t.OrderIDExists(ctx, next)
		if err != nil {
			return err
		}
		if taken {
			return NewValidationError("orderId", fmt.Sprintf("%q is already in use", next))
		}
		o.OrderID = next
	}

	from := o.Status
	applyStock := false
	if p.Status != nil && *p.Status != from {
		to := *p.Status
		if !model.CanTransition(from, to) {
			return NewValidationError("status", fmt.Sprintf("cannot move order from %s to %s", from, to))
		}
		o.Status = to
		stampStatus(&o, to, t.occurred())
		applyStock = to == model.StatusStockUpdated
	}
	o.UpdatedAt = t.now

	seq, err := t.UpdateOrder(ctx, t.account, o, replaceLines)
	if err != nil {
		return err
	}
	details := ""
	if o.Status != from {
		details = fmt.Sprintf("%s -> %s", from, o.Status)
	}
	if err := t.record(ctx, store.ActionUpdate, model.ClassOrder, o.ID, o.LocalID, seq, details); err != nil {
		return err
	}

	if applyStock {
		return e.applyToStock(ctx, t, o)
	}
	return nil
}

// applyToStock increments each referenced item by its line quantity. It
// runs inside the status change's transaction: any failure rolls back the
// status change and every increment already made.
func (e *Engine) applyToStock(ctx context.Context, t *opTx, o model.Order) error {
	for i, line := range o.Items {
		itemID, ok, err := e.resolveLineItem(ctx, t, line.ItemID)
		if err != nil {
			return err
		}
		if !ok {
			nf := NewNotFoundError(model.ClassItem, line.ItemID)
			nf.Field = fmt.Sprintf("items[%d].itemId", i)
			return nf
		}
		seq, err := t.AddItemQuantity(ctx, t.account, itemID, line.Quantity, t.now)
		if err != nil {
			return err
		}
		details := fmt.Sprintf("order %s: +%d", o.OrderID, line.Quantity)
		if err := t.record(ctx, store.ActionStockApply, model.ClassItem, itemID, "", seq, details); err != nil {
			return err
		}
	}
	return nil
}

// resolveLineItem accepts either a server item id or the client id of an
// item, since lines are built on the client before ids are acknowledged.
func (e *Engine) resolveLineItem(ctx context.Context, t *opTx, ref string) (string, bool, error) {
	id, ok, err := e.mapper.ResolveLive(ctx, t.Tx, t.account, model.ClassItem, ref, "")
	if err != nil || ok {
		return id, ok, err
	}
	return e.mapper.ResolveLive(ctx, t.Tx, t.account, model.ClassItem, "", model.NormalizeID(ref))
}

// uniqueOrderID returns proposed if no order uses it yet, otherwise a
// suffixed variant. Order ids are unique across all accounts.
func (e *Engine) uniqueOrderID(ctx context.Context, t *opTx, proposed string) (string, error) {
	candidate := proposed
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		taken, err := t.OrderIDExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%s-%s", proposed, prefix(t.account, 4), e.randomSuffix())
	}
	return "", fmt.Errorf("no free order id for %q after %d attempts", proposed, maxOrderIDAttempts)
}

func (e *Engine) randomSuffix() string {
	id := strings.ReplaceAll(e.ids.NewID(), "-", "")
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

func defaultOrderID(localID string) string {
	return "ORD-" + strings.ToUpper(prefix(localID, 8))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// applyOrderFields copies the non-status fields of p. Totals are derived
// from the lines when the lines changed and the payload gave no totals.
func applyOrderFields(o *model.Order, p model.OrderPatch, linesChanged bool) {
	if p.TotalItems != nil {
		o.TotalItems = *p.TotalItems
	} else if linesChanged {
		o.TotalItems = len(o.Items)
	}
	if p.TotalUnits != nil {
		o.TotalUnits = *p.TotalUnits
	} else if linesChanged {
		units := 0
		for _, l := range o.Items {
			units += l.Quantity
		}
		o.TotalUnits = units
	}
	p.Notes.ApplyTo(&o.Notes)
	if p.ExportedAt != nil {
		o.ExportedAt = p.ExportedAt.UTC()
	}
}

// stampStatus records when an order entered status.
func stampStatus(o *model.Order, status model.OrderStatus, at time.Time) {
	switch status {
	case model.StatusOrdered:
		o.OrderedAt = &at
	case model.StatusReceived, model.StatusPartiallyReceived:
		o.ReceivedAt = &at
	case model.StatusStockUpdated:
		o.AppliedAt = &at
	case model.StatusDeclined:
		o.DeclinedAt = &at
	}
}

// sameStockLines reports whether a and b move the same quantities of the
// same items. Descriptive line fields may differ.
func sameStockLines(a, b []model.OrderLine) bool {
	return slices.EqualFunc(a, b, func(x, y model.OrderLine) bool {
		return x.ItemID == y.ItemID && x.Quantity == y.Quantity
	})
}

func normalizeLines(lines []model.OrderLine) []model.OrderLine {
	out := make([]model.OrderLine, len(lines))
	for i, l := range lines {
		l.ItemID = strings.TrimSpace(l.ItemID)
		if strings.TrimSpace(l.Name) == "" {
			l.Name = "Unknown"
		}
		if l.Unit == "" {
			l.Unit = model.DefaultUnit
		}
		out[i] = l
	}
	return out
}
