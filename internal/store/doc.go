// Package store provides SQLite-backed durable storage for synchronized
// entities.
//
// The store holds, per account:
//   - Item groups, items, orders and order lines
//   - Tombstones: one row per deleted entity, delivered by pull
//   - Audit log: append-only record of every applied mutation
//
// # Change Sequence
//
// Every write allocates the next value of the global sync_clock inside its
// transaction and stamps it on the row. Writers are serialised by the single
// connection, so commit order equals seq order and a reader never observes
// seq N+1 without seq N. Pull pages by seq; wall-clock timestamps are for
// display only.
//
// # Soft Deletes
//
// Deleting an entity sets deleted_at and writes a tombstone with a fresh seq.
// The (account_id, local_id) uniqueness holds among live rows only, and
// local-id lookups still see tombstoned rows so a replayed create never
// resurrects a deleted entity. PurgeTombstones removes both after the
// retention window.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
