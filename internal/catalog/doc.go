// Package catalog records capture sessions and stage runs in a SQLite
// database (sessions.db under the data directory).
//
// The session directories remain the source of truth for assets; the
// catalog keeps the history that directories alone cannot show: requested
// schedule, stop reason, failure counts, and every processing and assembly
// run with its outcome.
package catalog
