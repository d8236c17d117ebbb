// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to configure
// MySQL and SQLite connections from the application's configuration. Postgres
// is reached through pgx; Config.PostgresURL builds its connection string.
//
// # Connect
//
// Connect opens the configured driver, sizes the pool and pings the server
// within the configured timeout. Match calls each hold one pooled connection
// for their lifetime, so MaxOpenConns bounds how many calls run at once. An
// in-memory SQLite database is limited to a single connection, since every
// connection would otherwise see its own empty database.
//
// # Schema Inspection
//
// GetTableColumns reads a table's columns (SHOW COLUMNS on MySQL, PRAGMA
// table_info on SQLite) including type, nullability and primary key
// membership. The matcher uses it to validate key columns and to declare the
// column types of its staging tables. A missing table yields no columns.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "numbers")
package database
