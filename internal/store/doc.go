// Package store provides SQLite-backed history of journey runs.
//
// Each run is recorded once, after it finishes:
//   - runs: one row per execution (scenario, target, timing, verdict)
//   - step_results: one row per step, keyed by (run_id, idx)
//
// Secrets never reach the store: only step outcomes and their already
// redacted error messages are written. Error lists are stored as RFC 8785
// canonical JSON so identical runs produce identical rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Listing is ordered by started_at DESC, id DESC so ties resolve the same
// way on every read.
package store
