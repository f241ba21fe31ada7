// Package schema loads table definitions from information_schema of a
// MySQL server to complete table map events of servers that do not log
// optional metadata.
package schema

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/dbmigrate/binlog"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// DSN in go-sql-driver/mysql format, for example
	// "user:password@tcp(localhost:3306)/".
	DSN     string
	Timeout time.Duration
}

// Column is a row of information_schema.COLUMNS.
type Column struct {
	Name       string         `db:"name"`
	Ordinal    int            `db:"ordinal"`
	DataType   string         `db:"data_type"`
	ColumnType string         `db:"column_type"`
	Charset    sql.NullString `db:"charset"`
	ColumnKey  string         `db:"column_key"`
}

func (c *Column) Unsigned() bool {
	return strings.Contains(c.ColumnType, "unsigned")
}

// Values returns the labels of an ENUM or SET column.
func (c *Column) Values() []string {
	switch c.DataType {
	case "enum", "set":
		return parseValues(c.ColumnType)
	}
	return nil
}

type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

const columnsQuery = `SELECT COLUMN_NAME AS name, ORDINAL_POSITION AS ordinal, DATA_TYPE AS data_type,
	COLUMN_TYPE AS column_type, CHARACTER_SET_NAME AS charset, COLUMN_KEY AS column_key
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

// Loader loads and caches table definitions. It is safe for concurrent use.
type Loader struct {
	db  *sqlx.DB
	log *logrus.Entry

	mu     sync.Mutex
	tables map[string]*Table
}

func Open(cfg Config) (*Loader, error) {
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		mcfg.Timeout = cfg.Timeout
		mcfg.ReadTimeout = cfg.Timeout
	}
	db, err := sqlx.Open("mysql", mcfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	return NewLoader(db), nil
}

func NewLoader(db *sqlx.DB) *Loader {
	return &Loader{
		db:     db,
		log:    logrus.WithField("component", "schema"),
		tables: make(map[string]*Table),
	}
}

func (l *Loader) Close() error {
	return l.db.Close()
}

func key(schema, table string) string {
	return schema + "." + table
}

// Load returns the definition of schema.table, from cache if loaded before.
func (l *Loader) Load(ctx context.Context, schema, table string) (*Table, error) {
	l.mu.Lock()
	t, ok := l.tables[key(schema, table)]
	l.mu.Unlock()
	if ok {
		return t, nil
	}

	t = &Table{Schema: schema, Name: table}
	if err := l.db.SelectContext(ctx, &t.Columns, columnsQuery, schema, table); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.tables[key(schema, table)] = t
	l.mu.Unlock()
	return t, nil
}

// Forget drops schema.table from the cache, for example after DDL.
func (l *Loader) Forget(schema, table string) {
	l.mu.Lock()
	delete(l.tables, key(schema, table))
	l.mu.Unlock()
}

// Enrich fills the column names, signedness, charsets, enum or set labels
// and primary key that the server did not log in tme. Metadata the table
// map carries is never replaced. Table maps whose column count differs
// from the current definition are left unchanged.
func (l *Loader) Enrich(ctx context.Context, tme *binlog.TableMapEvent) error {
	t, err := l.Load(ctx, tme.SchemaName, tme.TableName)
	if err != nil {
		return err
	}
	if len(t.Columns) != len(tme.Columns) {
		l.log.WithFields(logrus.Fields{
			"table":       tme.String(),
			"binlogCols":  len(tme.Columns),
			"currentCols": len(t.Columns),
		}).Warn("schema: column count differs, not enriching table map")
		return nil
	}
	logged := tme.Logged
	var pk []int
	for i := range tme.Columns {
		col, def := &tme.Columns[i], &t.Columns[i]
		if def.ColumnKey == "PRI" {
			pk = append(pk, i)
		}
		if !logged.ColumnNames && col.Name == "" {
			col.Name = def.Name
		}
		if !logged.Signedness {
			col.Unsigned = def.Unsigned()
		}
		if !logged.Charset && col.Charset == "" && def.Charset.Valid {
			col.Charset = def.Charset.String
		}
		if !logged.EnumSetValue && col.Values == nil {
			col.Values = def.Values()
		}
	}
	if !logged.PrimaryKey && len(tme.PrimaryKey) == 0 && len(pk) > 0 {
		tme.PrimaryKey = pk
		tme.PrimaryKeyPrefix = make([]int, len(pk))
	}
	return nil
}

// Hook returns a function for binlog.Options.OnTableMap that enriches
// every table map.
func (l *Loader) Hook(ctx context.Context) func(*binlog.TableMapEvent) error {
	return func(tme *binlog.TableMapEvent) error {
		return l.Enrich(ctx, tme)
	}
}

// parseValues parses the labels of an enum or set column type such as
//
//	enum('a','b''c')
func parseValues(columnType string) []string {
	start := strings.IndexByte(columnType, '(')
	end := strings.LastIndexByte(columnType, ')')
	if start == -1 || end <= start {
		return nil
	}
	s := columnType[start+1 : end]
	var (
		values []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quoted && c == '\'' && i+1 < len(s) && s[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case c == '\'':
			quoted = !quoted
			if !quoted {
				values = append(values, cur.String())
				cur.Reset()
			}
		case quoted:
			cur.WriteByte(c)
		}
	}
	return values
}
