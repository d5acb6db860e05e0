package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: minimal
description: "one push, one pull"
account: acct-1
steps:
  - name: create
    push:
      - operationId: op-1
        kind: create
        entityClass: group
        localId: g1
        payload: { name: Respiratory }
  - name: pull
    pull: { cursor: $last, classes: [group] }
    expect:
      records: { group: 1 }
assertions:
  - type: live_count
    class: group
    count: 1
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 2)
	require.Len(t, s.Steps[0].Push, 1)
	assert.Equal(t, "g1", s.Steps[0].Push[0]["localId"])
	require.NotNil(t, s.Steps[1].Pull)
	assert.Equal(t, LastCursor, s.Steps[1].Pull.Cursor)
	assert.Equal(t, []string{"group"}, s.Steps[1].Pull.Classes)
	assert.Equal(t, 1, s.Steps[1].Expect.Records["group"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
account: a
steps:
  - name: s
    pull: {}
    expct: {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\naccount: a\nsteps:\n  - pull: {}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\naccount: a\nsteps:\n  - pull: {}\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\naccount: a\n",
			want: "steps list is required",
		},
		{
			name: "two calls in one step",
			yaml: "name: n\ndescription: d\naccount: a\nsteps:\n  - pull: {}\n    push: []\n",
			want: "exactly one of push, pull, full",
		},
		{
			name: "no account",
			yaml: "name: n\ndescription: d\nsteps:\n  - pull: {}\n",
			want: "steps[0]: account is required",
		},
		{
			name: "unknown record class",
			yaml: "name: n\ndescription: d\naccount: a\nsteps:\n  - pull: {}\n    expect:\n      records: { widget: 1 }\n",
			want: "unknown entity class",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\naccount: a\nsteps:\n  - pull: {}\nassertions:\n  - type: trace_contains\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "live_count without count",
			yaml: "name: n\ndescription: d\naccount: a\nsteps:\n  - pull: {}\nassertions:\n  - type: live_count\n    class: item\n",
			want: "non-negative count is required",
		},
		{
			name: "bad order status",
			yaml: "name: n\ndescription: d\naccount: a\nsteps:\n  - pull: {}\nassertions:\n  - type: order_status\n    localId: o1\n    status: shipped\n",
			want: `unknown order status "shipped"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"account_isolation", "offline_replay", "order_restock", "recount_after_apply"}, names)
}

func TestOperations_DecodeLikeWireBody(t *testing.T) {
	ops, err := operations([]map[string]any{{
		"operationId": "op-1",
		"kind":        "update",
		"entityClass": "item",
		"entityId":    "abc",
		"occurredAt":  "2024-03-01T09:00:00Z",
		"payload":     map[string]any{"quantity": 4},
	}})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "abc", ops[0].EntityID)
	require.NotNil(t, ops[0].OccurredAt)
	assert.Equal(t, 9, ops[0].OccurredAt.Hour())
	assert.EqualValues(t, 4, ops[0].Payload["quantity"])
}
