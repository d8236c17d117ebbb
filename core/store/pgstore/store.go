package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"keymatch/core/database"
	"keymatch/core/match"
	"keymatch/core/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm/schema"
)

// describeSQL lists a relation's live columns with type, nullability and
// primary key membership. to_regclass yields NULL, and so no rows, for a
// missing relation.
const describeSQL = `
SELECT a.attname,
       format_type(a.atttypid, a.atttypmod),
       NOT a.attnotnull,
       COALESCE(i.indisprimary, false)
FROM pg_attribute a
LEFT JOIN pg_index i
       ON i.indrelid = a.attrelid AND i.indisprimary AND a.attnum = ANY(i.indkey)
WHERE a.attrelid = to_regclass($1)
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum`

// Connect opens a pgx pool for cfg and pings it.
func Connect(ctx context.Context, cfg database.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Timeout())*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Store implements match.Backend on a pgx pool.
type Store struct {
	pool  *pgxpool.Pool
	namer schema.Namer
}

// New creates a store over pool using gorm's default naming strategy.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, namer: schema.NamingStrategy{}}
}

func (s *Store) Name() string { return database.DriverPostgres }

func (s *Store) Namer() schema.Namer { return s.namer }

// Describe reads table's columns from pg_catalog.
func (s *Store) Describe(ctx context.Context, table string) (*match.Relation, error) {
	rows, err := s.pool.Query(ctx, describeSQL, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}
	defer rows.Close()

	rel := &match.Relation{Name: table}
	for rows.Next() {
		var c match.Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &c.PrimaryKey); err != nil {
			return nil, err
		}
		rel.Columns = append(rel.Columns, c)
	}
	return rel, rows.Err()
}

// WithSession acquires one pooled connection for the duration of fn.
func (s *Store) WithSession(ctx context.Context, fn func(match.Session) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return &match.StoreError{Op: "acquire session", Err: err}
	}
	defer conn.Release()
	return fn(&session{conn: conn})
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Quote(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// MaxBindParams is unbounded: staged keys travel through COPY, not bind parameters.
func (s *session) MaxBindParams() int { return 0 }

func (s *session) CreateStaging(ctx context.Context, area *match.StagingArea) error {
	defs := make([]string, 0, len(area.Columns)+1)
	defs = append(defs, s.Quote(match.OrdinalColumn)+" BIGINT NOT NULL")
	for _, c := range area.Columns {
		def := s.Quote(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		} else {
			def += " TEXT"
		}
		defs = append(defs, def)
	}
	_, err := s.conn.Exec(ctx, fmt.Sprintf("CREATE TEMP TABLE %s (%s)", s.Quote(area.Name), strings.Join(defs, ", ")))
	return err
}

func (s *session) WriteStaging(ctx context.Context, area *match.StagingArea, batch []match.KeyTuple) error {
	if len(batch) == 0 {
		return nil
	}
	src := pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
		row := make([]any, 0, len(area.Columns)+1)
		row = append(row, int64(batch[i].Ordinal))
		for j, v := range batch[i].Values {
			arg, err := copyValue(area.Columns[j].Type, v.Arg())
			if err != nil {
				return nil, err
			}
			row = append(row, arg)
		}
		return row, nil
	})

	n, err := s.conn.CopyFrom(ctx, pgx.Identifier{area.Name}, area.ColumnNames(), src)
	if err != nil {
		return err
	}
	if n != int64(len(batch)) {
		return fmt.Errorf("copied %d of %d key tuples", n, len(batch))
	}
	return nil
}

// copyValue adapts a key value to the binary COPY encoding of its column.
// Binary COPY cannot send a string into a uuid column.
func copyValue(columnType string, v any) (any, error) {
	str, ok := v.(string)
	if !ok || !strings.HasPrefix(strings.ToLower(columnType), "uuid") {
		return v, nil
	}
	u, err := uuid.Parse(str)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid key %q: %w", str, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func (s *session) Query(ctx context.Context, query string) ([]match.MatchedRow, error) {
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		return nil, fmt.Errorf("join returned no columns")
	}
	cols := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		cols = append(cols, f.Name)
	}

	var out []match.MatchedRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		ordinal, err := utils.ToInt64(values[0])
		if err != nil {
			return nil, fmt.Errorf("ordinal: %w", err)
		}
		out = append(out, match.MatchedRow{
			Ordinal: int(ordinal),
			Columns: cols,
			Values:  values[1:],
		})
	}
	return out, rows.Err()
}

func (s *session) DropStaging(ctx context.Context, area *match.StagingArea) error {
	_, err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS "+s.Quote("pg_temp."+area.Name))
	return err
}
