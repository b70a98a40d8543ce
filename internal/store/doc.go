// Package store provides SQLite-backed durable storage for archived
// phonon calculations and the spectrum runs computed from them.
//
// The archive has two layers:
//   - Calculations: content-addressed canonical documents. The hash is
//     the domain-separated SHA-256 of the RFC 8785 canonical JSON, so
//     importing the same QM output twice lands on the same row. The
//     modes table is a scalar projection of the document for listing
//     and filtering; the full per-mode strength tensors stay in the
//     document.
//   - Runs: one row per computed spectrum, keyed by a fresh UUID,
//     holding the scenario that produced it plus the sampled grid
//     points. A run can always be re-rendered byte-for-byte from its
//     stored points.
//
// Timestamps are stored as fixed-width RFC 3339 UTC text, which keeps
// lexicographic ordering chronological and lets the run filter match
// date prefixes with LIKE. Listing queries order by created_at with a
// COLLATE BINARY key tiebreak so results are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
