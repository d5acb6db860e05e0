// Package engine implements offline-first synchronization: applying batches
// of client mutations (push), handing back changes a client has not seen
// (pull), and composing the two into a single full-sync exchange.
//
// # Push
//
// A push is not all-or-nothing. Every operation runs in its own store
// transaction together with its audit entry, so one failure never rolls
// back or blocks its siblings. Explicit operations run in request order and
// replace_set operations run last, after every explicit operation of the
// batch. Results are returned in request order.
//
// Idempotency:
//   - create is keyed on (account, localId) through the IDMapper; a replay
//     returns the entity id assigned the first time
//   - delete of a missing target is a successful no-op
//   - update is a full-field overwrite of the fields present, so replays
//     converge on the same state
//
// Conflicts are resolved last-write-wins. There is no version check.
//
// # Pull
//
// Pull pages by the store's change sequence. The cursor handed back never
// moves past the last change actually delivered, and never moves backwards.
//
// # Orders
//
// Order status changes are validated against the order state machine. The
// received -> stock_updated transition increments every referenced item's
// quantity in the same transaction as the status change.
package engine
