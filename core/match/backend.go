package match

import (
	"context"

	"gorm.io/gorm/schema"
)

// Backend defines the persistence collaborator the matcher runs against.
// Implementations live in core/store (gorm for MySQL/SQLite, pgx for Postgres).
type Backend interface {
	// Name returns the dialect name (e.g., "mysql", "sqlite", "postgres").
	Name() string

	// Describe returns the catalog view of a table. A table that does not
	// exist yields a relation with no columns, not an error.
	Describe(ctx context.Context, table string) (*Relation, error)

	// WithSession runs fn on one dedicated store session. Temporary tables
	// created through the session are invisible to every other session.
	// A failure to acquire the session is returned as a *StoreError.
	WithSession(ctx context.Context, fn func(Session) error) error

	// Namer returns the naming strategy used to derive table and column
	// names from entity types.
	Namer() schema.Namer
}

// Session is one pinned store connection.
type Session interface {
	// Quote quotes an identifier for the session's dialect.
	Quote(ident string) string

	// MaxBindParams bounds the bind parameters of one statement; zero means unbounded.
	MaxBindParams() int

	// CreateStaging creates the temporary staging table.
	CreateStaging(ctx context.Context, area *StagingArea) error

	// WriteStaging writes one batch of tuples into the staging table.
	WriteStaging(ctx context.Context, area *StagingArea, batch []KeyTuple) error

	// Query runs a join whose first selected column is the staged ordinal.
	Query(ctx context.Context, query string) ([]MatchedRow, error)

	// DropStaging drops the staging table if it exists.
	DropStaging(ctx context.Context, area *StagingArea) error
}
