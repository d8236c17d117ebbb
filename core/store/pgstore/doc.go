// Package pgstore implements the matcher's store collaborator on pgx for
// Postgres.
//
// A match call acquires one connection from the pool and keeps it until the
// call returns. Its staging table is a TEMP table on that connection, filled
// with COPY, so batches are not bounded by bind parameters. The catalog is
// read from pg_attribute and pg_index.
//
// Values read back from the join are pgx's native Go types; the matcher
// assigns them to entity fields through gorm's field setters.
package pgstore
