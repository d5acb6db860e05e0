package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncOperation_DecodesWireCasing(t *testing.T) {
	body := `{
		"operationId": "op-1",
		"kind": "create",
		"entityClass": "item",
		"localId": "L1",
		"payload": {"name": "Oxygen Mask", "quantity": 5},
		"occurredAt": "2024-03-01T10:00:00Z"
	}`

	var op SyncOperation
	require.NoError(t, json.Unmarshal([]byte(body), &op))

	assert.Equal(t, "op-1", op.OperationID)
	assert.Equal(t, KindCreate, op.Kind)
	assert.Equal(t, ClassItem, op.EntityClass)
	assert.Equal(t, "L1", op.LocalID)
	assert.Empty(t, op.EntityID)
	assert.Equal(t, "Oxygen Mask", op.Payload["name"])
	require.NotNil(t, op.OccurredAt)
	assert.Equal(t, 2024, op.OccurredAt.Year())
}

func TestEntityClass(t *testing.T) {
	c, err := ParseEntityClass("order")
	require.NoError(t, err)
	assert.Equal(t, ClassOrder, c)

	_, err = ParseEntityClass("invoice")
	assert.Error(t, err)

	assert.Equal(t, []EntityClass{ClassGroup, ClassItem, ClassOrder}, AllClasses())
}

func TestOperationKindValid(t *testing.T) {
	assert.True(t, KindReplaceSet.Valid())
	assert.False(t, OperationKind("upsert").Valid())
}

func TestPullResponse_EmptyClassesPresent(t *testing.T) {
	resp := PullResponse{Records: NewRecords(), DeletedIDs: []string{}}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"group":[]`)
	assert.Contains(t, s, `"item":[]`)
	assert.Contains(t, s, `"order":[]`)
	assert.Contains(t, s, `"deletedIds":[]`)
	assert.Contains(t, s, `"hasMore":false`)
}

func TestOpt_DistinguishesAbsentNullAndValue(t *testing.T) {
	var patch ItemPatch
	require.NoError(t, json.Unmarshal([]byte(`{"brand": null, "notes": "keep cold"}`), &patch))

	assert.True(t, patch.Brand.Set)
	assert.Nil(t, patch.Brand.Value)
	assert.True(t, patch.Notes.Set)
	require.NotNil(t, patch.Notes.Value)
	assert.Equal(t, "keep cold", *patch.Notes.Value)
	assert.False(t, patch.Description.Set)

	old := "old"
	dst := &old
	patch.Description.ApplyTo(&dst)
	assert.Equal(t, "old", *dst)
	patch.Brand.ApplyTo(&dst)
	assert.Nil(t, dst)
}
