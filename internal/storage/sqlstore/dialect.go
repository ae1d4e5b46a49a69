package sqlstore

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string

	// DriverName is the database/sql driver registered for this dialect.
	DriverName string

	numbered   bool
	schema     []string
	lockLatest string
}

var (
	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "pgx",
		numbered:   true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS call_logs (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	phone_number TEXT NOT NULL,
	call_sid     TEXT,
	status       TEXT NOT NULL,
	duration     INTEGER,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ
)`,
			`CREATE INDEX IF NOT EXISTS call_logs_call_sid_idx ON call_logs (call_sid)`,
		},
		lockLatest: " FOR UPDATE",
	}

	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS call_logs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	phone_number TEXT NOT NULL,
	call_sid     TEXT,
	status       TEXT NOT NULL,
	duration     INTEGER,
	error        TEXT,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP
)`,
			`CREATE INDEX IF NOT EXISTS call_logs_call_sid_idx ON call_logs (call_sid)`,
		},
	}
)

// DialectByName resolves "postgres" or "sqlite".
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, errors.Newf("sqlstore: unsupported dialect %q", name)
	}
}

// rebind rewrites ? placeholders into $n for dialects that number them.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
