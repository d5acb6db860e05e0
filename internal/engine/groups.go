package engine

import (
	"context"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

func (e *Engine) createGroup(ctx context.Context, t *opTx) (string, error) {
	p, err := decode[model.GroupPatch](t.op.Payload)
	if err != nil {
		return "", err
	}
	g := model.Group{
		ID:        e.ids.NewID(),
		LocalID:   t.op.LocalID,
		CreatedAt: t.now,
		UpdatedAt: t.now,
	}
	if err := applyGroupPatch(&g, p); err != nil {
		return "", err
	}

	seq, err := t.InsertGroup(ctx, t.account, g)
	if err != nil {
		return "", err
	}
	return g.ID, t.record(ctx, store.ActionCreate, model.ClassGroup, g.ID, g.LocalID, seq, "")
}

func (e *Engine) updateGroup(ctx context.Context, t *opTx, id string) error {
	p, err := decode[model.GroupPatch](t.op.Payload)
	if err != nil {
		return err
	}
	g, err := t.GetGroup(ctx, t.account, id)
	if err != nil {
		return err
	}
	if err := applyGroupPatch(&g, p); err != nil {
		return err
	}
	g.UpdatedAt = t.now

	seq, err := t.UpdateGroup(ctx, t.account, g)
	if err != nil {
		return err
	}
	return t.record(ctx, store.ActionUpdate, model.ClassGroup, g.ID, g.LocalID, seq, "")
}

func applyGroupPatch(g *model.Group, p model.GroupPatch) error {
	if p.Name != nil {
		name, err := trimmedName("name", p.Name)
		if err != nil {
			return err
		}
		g.Name = name
	}
	p.Description.ApplyTo(&g.Description)
	if p.DisplayOrder != nil {
		g.DisplayOrder = *p.DisplayOrder
	}
	if p.IsDefault != nil {
		g.IsDefault = *p.IsDefault
	}
	return nil
}
