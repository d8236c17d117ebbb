// Package sqlstore implements the matcher's store collaborator on gorm, for
// MySQL and SQLite.
//
// Each match call pins one pooled connection through gorm's Connection, so
// the temporary staging table it creates is visible to that call only.
// Staged keys are written with multi-row INSERT statements whose size is
// bounded by the driver's bind parameter limit (65535 for MySQL, 32766 for
// SQLite). The catalog is read with SHOW COLUMNS or PRAGMA table_info.
package sqlstore
