// Package harness runs scripted sync scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	account: acct-1
//	steps:
//	  - name: create offline
//	    push:
//	      - operationId: op-1
//	        kind: create
//	        entityClass: item
//	        localId: oxygen-mask
//	        payload: { name: Oxygen Mask, quantity: 3 }
//	    expect:
//	      results:
//	        - success: true
//	  - name: catch up
//	    pull: { cursor: $last }
//	    expect:
//	      records: { item: 1 }
//	      hasMore: false
//	assertions:
//	  - type: live_count
//	    class: item
//	    count: 1
//
// Operations are written exactly as they appear in a push body. The cursor
// "$last" stands for the cursor returned by the previous pull or full step.
//
// # Assertion Types
//
//   - live_count: number of live records of a class
//   - audit_count: number of audit entries with an action
//   - item_quantity: quantity of the item created with a localId
//   - order_status: status of the order created with a localId
//
// # Deterministic Testing
//
// Every scenario runs in an in-memory SQLite database with a stepping clock
// and sequential entity ids, so identical scenarios produce identical
// traces and can be compared against golden files.
package harness
