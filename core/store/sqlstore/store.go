package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"keymatch/core/database"
	"keymatch/core/match"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Bind parameter limits per statement.
const (
	mysqlMaxParams  = 65535
	sqliteMaxParams = 32766
)

// Store implements match.Backend on a gorm connection (MySQL or SQLite).
type Store struct {
	db *gorm.DB
}

// New creates a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Name returns the gorm dialect name.
func (s *Store) Name() string {
	return s.db.Dialector.Name()
}

// Namer returns the naming strategy configured on the gorm connection.
func (s *Store) Namer() schema.Namer {
	return s.db.NamingStrategy
}

// Describe reads the column definitions of table.
func (s *Store) Describe(ctx context.Context, table string) (*match.Relation, error) {
	cols, err := database.GetTableColumns(s.db.WithContext(ctx), table)
	if err != nil {
		return nil, err
	}
	rel := &match.Relation{Name: table, Columns: make([]match.Column, 0, len(cols))}
	for _, c := range cols {
		rel.Columns = append(rel.Columns, match.Column{
			Name:       c.Field,
			Type:       c.Type,
			Nullable:   c.IsNullable(),
			PrimaryKey: c.IsPrimaryKey(),
		})
	}
	return rel, nil
}

// WithSession pins one pooled connection for the duration of fn.
func (s *Store) WithSession(ctx context.Context, fn func(match.Session) error) error {
	acquired := false
	err := s.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		acquired = true
		return fn(&session{tx: tx, dialect: s.Name()})
	})
	if err != nil && !acquired {
		return &match.StoreError{Op: "acquire session", Err: err}
	}
	return err
}

// session is one pinned gorm connection.
type session struct {
	tx      *gorm.DB
	dialect string
}

func (s *session) Quote(ident string) string {
	var b strings.Builder
	s.tx.Dialector.QuoteTo(&b, ident)
	return b.String()
}

func (s *session) MaxBindParams() int {
	if s.dialect == database.DriverSQLite {
		return sqliteMaxParams
	}
	return mysqlMaxParams
}

func (s *session) CreateStaging(ctx context.Context, area *match.StagingArea) error {
	defs := make([]string, 0, len(area.Columns)+1)
	defs = append(defs, s.Quote(match.OrdinalColumn)+" BIGINT NOT NULL")
	for _, c := range area.Columns {
		def := s.Quote(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		defs = append(defs, def)
	}

	temp := "TEMPORARY"
	if s.dialect == database.DriverSQLite {
		temp = "TEMP"
	}
	sql := fmt.Sprintf("CREATE %s TABLE %s (%s)", temp, s.Quote(area.Name), strings.Join(defs, ", "))
	return s.tx.WithContext(ctx).Exec(sql).Error
}

func (s *session) WriteStaging(ctx context.Context, area *match.StagingArea, batch []match.KeyTuple) error {
	if len(batch) == 0 {
		return nil
	}

	names := area.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = s.Quote(n)
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"

	rows := make([]string, len(batch))
	args := make([]any, 0, len(batch)*len(names))
	for i, t := range batch {
		rows[i] = row
		args = append(args, int64(t.Ordinal))
		for _, v := range t.Values {
			args = append(args, v.Arg())
		}
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.Quote(area.Name), strings.Join(quoted, ", "), strings.Join(rows, ", "))
	return s.tx.WithContext(ctx).Exec(sql, args...).Error
}

func (s *session) Query(ctx context.Context, query string) ([]match.MatchedRow, error) {
	rows, err := s.tx.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("join returned no columns")
	}

	var out []match.MatchedRow
	for rows.Next() {
		var ordinal int64
		values := make([]any, len(cols)-1)
		dest := make([]any, 0, len(cols))
		dest = append(dest, &ordinal)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, match.MatchedRow{
			Ordinal: int(ordinal),
			Columns: cols[1:],
			Values:  values,
		})
	}
	return out, rows.Err()
}

func (s *session) DropStaging(ctx context.Context, area *match.StagingArea) error {
	sql := "DROP TEMPORARY TABLE IF EXISTS " + s.Quote(area.Name)
	if s.dialect == database.DriverSQLite {
		sql = "DROP TABLE IF EXISTS " + s.Quote("temp."+area.Name)
	}
	return s.tx.WithContext(ctx).Exec(sql).Error
}
