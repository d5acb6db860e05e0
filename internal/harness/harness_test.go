package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ScenarioFiles(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectations
description: every expectation here is wrong
account: acct-1
steps:
  - name: create
    push:
      - operationId: op-1
        kind: create
        entityClass: item
        localId: mask
        payload: { name: Mask }
    expect:
      results:
        - success: false
          code: NOT_FOUND
  - name: pull
    pull: {}
    expect:
      records: { item: 2 }
      hasMore: true
assertions:
  - type: item_quantity
    localId: mask
    quantity: 10
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected success=false")
	assert.Contains(t, result.Errors[1], `expected code "NOT_FOUND"`)
	assert.Contains(t, result.Errors[2], "expected 2 item records, got 1")
	assert.Contains(t, result.Errors[3], "expected hasMore=true")
	assert.Contains(t, result.Errors[4], "quantity 10")
}

func TestRun_UnexpectedRequestError(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_cursor
description: request errors fail a step without an expect clause
account: acct-1
steps:
  - name: pull
    pull: { cursor: "%%%" }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected request error VALIDATION_ERROR")
	assert.Equal(t, "VALIDATION_ERROR", result.Trace[0].Error)
}

func TestRun_SameAsUnknownOperation(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: dangling_same_as
description: sameAs must name an earlier operation
account: acct-1
steps:
  - name: create
    push:
      - operationId: op-1
        kind: create
        entityClass: group
        localId: g
        payload: { name: G }
    expect:
      results:
        - success: true
          sameAs: op-0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `sameAs "op-0" names no earlier successful operation`)
}

func TestRun_FullStepPaginates(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full_paging
description: a full sync pages its pull half
account: acct-1
steps:
  - name: push three and pull one page
    full:
      operations:
        - { operationId: a, kind: create, entityClass: item, localId: i1, payload: { name: One } }
        - { operationId: b, kind: create, entityClass: item, localId: i2, payload: { name: Two } }
        - { operationId: c, kind: create, entityClass: item, localId: i3, payload: { name: Three } }
      limit: 2
    expect:
      records: { item: 2 }
      hasMore: true
  - name: rest
    pull: { cursor: $last }
    expect:
      records: { item: 1 }
      hasMore: false
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, KindFull, result.Trace[0].Kind)
	require.Len(t, result.Trace[0].Results, 3)
}
