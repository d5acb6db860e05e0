package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

func TestReplaceSet_DeletesRecordsMissingFromSet(t *testing.T) {
	env := newTestEnv(t)
	resp := env.pushOK(t,
		createOp(model.ClassItem, "A", itemPayload("A", 1)),
		createOp(model.ClassItem, "B", itemPayload("B", 1)),
		createOp(model.ClassItem, "C", itemPayload("C", 1)),
	)
	idB, idC := resp.Results[1].EntityID, resp.Results[2].EntityID

	r := env.pushOK(t, replaceOp(model.ClassItem, "A")).Results[0]

	assert.Equal(t, []string{idB, idC}, r.Deleted)

	cursor := model.Cursor(0).String()
	pulled := env.pull(t, cursor)
	require.Len(t, pulled.Records.Item, 1)
	assert.Equal(t, "A", pulled.Records.Item[0].LocalID)
	assert.ElementsMatch(t, []string{idB, idC}, pulled.DeletedIDs)
}

func TestReplaceSet_RunsAfterExplicitOperations(t *testing.T) {
	env := newTestEnv(t)
	env.pushOK(t, createOp(model.ClassItem, "A", itemPayload("A", 1)))

	// The set names an item created later in the same batch.
	resp := env.pushOK(t,
		replaceOp(model.ClassItem, "B"),
		createOp(model.ClassItem, "B", itemPayload("B", 1)),
	)

	require.Len(t, resp.Results[0].Deleted, 1)
	pulled := env.pull(t, "")
	require.Len(t, pulled.Records.Item, 1)
	assert.Equal(t, "B", pulled.Records.Item[0].LocalID)
}

func TestReplaceSet_EmptySetNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.pushOK(t, createOp(model.ClassItem, "A", itemPayload("A", 1)))

	r := env.push(t, replaceOp(model.ClassItem)).Results[0]
	require.False(t, r.Success)
	assert.Equal(t, "VALIDATION_ERROR", r.Error.Code)
	assert.Equal(t, "localIds", r.Error.Field)
	assert.Len(t, env.pull(t, "").Records.Item, 1)

	confirmed := replaceOp(model.ClassItem)
	confirmed.Payload["allowEmpty"] = true
	r = env.pushOK(t, confirmed).Results[0]
	assert.Len(t, r.Deleted, 1)
	assert.Empty(t, env.pull(t, "").Records.Item)
}

func TestReplaceSet_UnsupportedForGroups(t *testing.T) {
	env := newTestEnv(t)
	r := env.push(t, replaceOp(model.ClassGroup, "G1")).Results[0]

	require.False(t, r.Success)
	assert.Equal(t, "entityClass", r.Error.Field)
}

func TestReplaceSet_AuditsOrphanDeletes(t *testing.T) {
	env := newTestEnv(t)
	env.pushOK(t, createOp(model.ClassOrder, "O1", map[string]any{}))
	env.pushOK(t, replaceOp(model.ClassOrder, "O2"))

	entries, err := env.store.ListAudit(t.Context(), testAccount, 10)
	require.NoError(t, err)
	var orphans int
	for _, e := range entries {
		if e.Action == store.ActionOrphan {
			orphans++
			assert.Equal(t, model.ClassOrder, e.EntityClass)
		}
	}
	assert.Equal(t, 1, orphans)
}
