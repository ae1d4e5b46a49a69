package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"autodialer/internal/calls"
	"autodialer/pkg/utils"

	"github.com/cockroachdb/errors"
)

const selectColumns = `id, phone_number, call_sid, status, duration, error, created_at, updated_at`

// LogStore is a calls.LogStore on top of database/sql.
type LogStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewLogStore(db *sql.DB, dialect Dialect) *LogStore {
	return &LogStore{db: db, dialect: dialect}
}

// Migrate creates the call_logs table and its index if they do not exist.
func (s *LogStore) Migrate(ctx context.Context) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range s.dialect.schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "migrate call_logs")
			}
		}
		return nil
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *LogStore) insert(ctx context.Context, ex execer, e calls.CallLogEntry) error {
	if e.ID == "" {
		e.ID = calls.NewEntryID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	q := s.dialect.rebind(`INSERT INTO call_logs (id, phone_number, call_sid, status, duration, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(ctx, q,
		e.ID,
		e.PhoneNumber,
		nullString(e.CallSID),
		string(e.Status),
		nullInt(e.Duration),
		nullString(e.Error),
		e.Timestamp,
		nullTime(e.UpdatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "insert call log")
	}
	return nil
}

func (s *LogStore) Append(ctx context.Context, e calls.CallLogEntry) error {
	return s.insert(ctx, s.db, e)
}

func (s *LogStore) List(ctx context.Context) ([]calls.CallLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM call_logs ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "list call logs")
	}
	defer rows.Close()

	out := make([]calls.CallLogEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate call logs")
	}
	return out, nil
}

func (s *LogStore) ReplaceAll(ctx context.Context, entries []calls.CallLogEntry) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM call_logs`); err != nil {
			return errors.Wrap(err, "clear call logs")
		}
		for _, e := range entries {
			if err := s.insert(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LogStore) Update(ctx context.Context, callSID string, fn func(*calls.CallLogEntry)) (bool, error) {
	if callSID == "" {
		return false, nil
	}
	found := false
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		q := s.dialect.rebind(`SELECT ` + selectColumns + ` FROM call_logs WHERE call_sid = ? ORDER BY seq DESC LIMIT 1` + s.dialect.lockLatest)
		e, err := scanEntry(tx.QueryRowContext(ctx, q, callSID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		fn(&e)
		found = true

		uq := s.dialect.rebind(`UPDATE call_logs SET status = ?, duration = ?, error = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, uq, string(e.Status), nullInt(e.Duration), nullString(e.Error), nullTime(e.UpdatedAt), e.ID); err != nil {
			return errors.Wrap(err, "update call log")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (calls.CallLogEntry, error) {
	var (
		e        calls.CallLogEntry
		status   string
		callSID  sql.NullString
		duration sql.NullInt64
		errText  sql.NullString
		updated  sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.PhoneNumber, &callSID, &status, &duration, &errText, &e.Timestamp, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, errors.Wrap(err, "scan call log")
	}
	e.Status = calls.CallStatus(status)
	e.CallSID = callSID.String
	e.Error = errText.String
	if duration.Valid {
		d := int(duration.Int64)
		e.Duration = &d
	}
	if updated.Valid {
		t := updated.Time
		e.UpdatedAt = &t
	}
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
