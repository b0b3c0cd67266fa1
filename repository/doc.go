// Package repository provides session-bound generic repositories built on
// Bun: identity-mapped lookups with dirty-column flushing, counted pages and
// lookahead slices, projections, bulk updates, read-only fetches and merge
// on save, plus the member, team and item repositories.
package repository
