// Package store provides SQLite-backed history of check runs.
//
// Each recorded run keeps its summary counts and every outcome in rule
// order:
//   - runs: one row per check, ordered by seq
//   - outcomes: one row per rule, keyed by (run_id, position)
//
// Run ids are UUIDv7 by default, so they also sort by creation time.
// Ordering in queries always uses seq, a counter assigned inside the
// insert transaction, so history reads are deterministic even when two
// runs share a timestamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
