package engine

import (
	"context"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

func (e *Engine) createItem(ctx context.Context, t *opTx) (string, error) {
	p, err := decode[model.ItemPatch](t.op.Payload)
	if err != nil {
		return "", err
	}
	it := model.Item{
		ID:        e.ids.NewID(),
		LocalID:   t.op.LocalID,
		Unit:      model.DefaultUnit,
		IsActive:  true,
		CreatedAt: t.now,
		UpdatedAt: t.now,
	}
	if it.GroupID, err = e.resolveGroup(ctx, t, p, nil); err != nil {
		return "", err
	}
	if err := applyItemPatch(&it, p); err != nil {
		return "", err
	}

	seq, err := t.InsertItem(ctx, t.account, it)
	if err != nil {
		return "", err
	}
	return it.ID, t.record(ctx, store.ActionCreate, model.ClassItem, it.ID, it.LocalID, seq, "")
}

func (e *Engine) updateItem(ctx context.Context, t *opTx, id string) error {
	p, err := decode[model.ItemPatch](t.op.Payload)
	if err != nil {
		return err
	}
	it, err := t.GetItem(ctx, t.account, id)
	if err != nil {
		return err
	}
	if it.GroupID, err = e.resolveGroup(ctx, t, p, it.GroupID); err != nil {
		return err
	}
	if err := applyItemPatch(&it, p); err != nil {
		return err
	}
	it.UpdatedAt = t.now

	seq, err := t.UpdateItem(ctx, t.account, it)
	if err != nil {
		return err
	}
	return t.record(ctx, store.ActionUpdate, model.ClassItem, it.ID, it.LocalID, seq, "")
}

// resolveGroup returns the group an item belongs to after applying p.
// groupLocalId takes precedence over groupId; a present null groupId
// detaches the item. Referenced groups must be live in the same account.
func (e *Engine) resolveGroup(ctx context.Context, t *opTx, p model.ItemPatch, current *string) (*string, error) {
	switch {
	case p.GroupLocalID != nil:
		id, ok, err := e.mapper.ResolveLive(ctx, t.Tx, t.account, model.ClassGroup, "", model.NormalizeID(*p.GroupLocalID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewValidationError("groupLocalId", "unknown group")
		}
		return &id, nil

	case p.GroupID.Set:
		if p.GroupID.Value == nil {
			return nil, nil
		}
		id, ok, err := e.mapper.ResolveLive(ctx, t.Tx, t.account, model.ClassGroup, *p.GroupID.Value, "")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewValidationError("groupId", "unknown group")
		}
		return &id, nil
	}
	return current, nil
}

func applyItemPatch(it *model.Item, p model.ItemPatch) error {
	if p.Name != nil {
		name, err := trimmedName("name", p.Name)
		if err != nil {
			return err
		}
		it.Name = name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.MinimumStock != nil {
		it.MinimumStock = *p.MinimumStock
	}
	if p.IsActive != nil {
		it.IsActive = *p.IsActive
	}
	if p.IsCritical != nil {
		it.IsCritical = *p.IsCritical
	}
	p.Description.ApplyTo(&it.Description)
	p.ExpiryDate.ApplyTo(&it.ExpiryDate)
	p.Brand.ApplyTo(&it.Brand)
	p.Notes.ApplyTo(&it.Notes)
	p.SupplierName.ApplyTo(&it.SupplierName)
	p.SupplierContact.ApplyTo(&it.SupplierContact)
	p.PurchaseLink.ApplyTo(&it.PurchaseLink)
	p.ImageURI.ApplyTo(&it.ImageURI)
	return nil
}
