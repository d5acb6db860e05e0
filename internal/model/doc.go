// Package model provides the wire and domain types shared by the sync engine,
// the store and the HTTP transport.
//
// This package has no internal imports. Everything else in the module imports
// model; model imports nothing internal.
//
// Key conventions:
//   - All JSON tags use camelCase (the client wire contract)
//   - Storage naming (snake_case) lives in internal/store only
//   - Server identifiers are UUIDv7 strings, client identifiers are opaque strings
//   - Change ordering uses the store's seq counter, never wall-clock time
package model
