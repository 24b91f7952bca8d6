package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dayFormat keys attendance rows by calendar day.
const dayFormat = "2006-01-02"

// Record is one attendance row.
type Record struct {
	ID         string
	Identity   string
	RecordedAt time.Time
}

// AppendAttendance appends one attendance row for the current day. Rows are
// additive-only; nothing here edits or deletes existing records.
func (s *Store) AppendAttendance(ctx context.Context, name string, at time.Time) error {
	_, err := s.conn.ExecContext(ctx,
		s.bind(`INSERT INTO attendance (id, identity, day, recorded_at) VALUES (?, ?, ?, ?)`),
		uuid.New().String(), name, at.Format(dayFormat), at,
	)
	if err != nil {
		return fmt.Errorf("appending attendance for %q: %w", name, err)
	}
	return nil
}

// ListAttendance returns the records for one calendar day in commit order.
func (s *Store) ListAttendance(ctx context.Context, day time.Time) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		s.bind(`SELECT id, identity, recorded_at FROM attendance WHERE day = ? ORDER BY recorded_at`),
		day.Format(dayFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Identity, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
