// Package entity provides access to the archive's SQLite database: the
// entities table, its dependent reference tables, and the append-only merge
// audit table.
//
// The schema is owned by the ingestion subsystem; this package bootstraps it
// only for fresh or test databases and otherwise treats it as an external
// contract. All mutation beyond schema bootstrap happens through merge
// transactions owned by the merge package.
package entity
