package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const slotColumns = `id, candidate_id, candidate_name, candidate_email,
	to_char(slot_date, 'YYYY-MM-DD'), day, time, status, created_at`

func scanSlot(row rowScanner) (*Slot, error) {
	s := &Slot{}
	var status string
	err := row.Scan(&s.ID, &s.CandidateID, &s.CandidateName, &s.CandidateEmail,
		&s.Date, &s.Day, &s.Time, &status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = SlotStatus(status)
	return s, nil
}

// ListSlots returns slots with from <= date <= to, ordered by date and time.
// Empty bounds are open.
func (db *DB) ListSlots(ctx context.Context, from, to string) ([]*Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM comm_interview_slots`
	var where []string
	var args []interface{}
	if from != "" {
		args = append(args, from)
		where = append(where, fmt.Sprintf("slot_date >= $%d::date", len(args)))
	}
	if to != "" {
		args = append(args, to)
		where = append(where, fmt.Sprintf("slot_date <= $%d::date", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY slot_date, id"

	rows, err := db.connection.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CreateSlot books s. A second booking of the same (date, day, time) returns ErrSlotTaken.
func (db *DB) CreateSlot(ctx context.Context, s *Slot) error {
	if s.Status == "" {
		s.Status = SlotPending
	}
	err := db.connection.QueryRowContext(ctx, `
		INSERT INTO comm_interview_slots (candidate_id, candidate_name, candidate_email, slot_date, day, time, status)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7)
		RETURNING id, created_at`,
		s.CandidateID, s.CandidateName, s.CandidateEmail, s.Date, s.Day, s.Time, string(s.Status),
	).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	s, err := scanSlot(db.connection.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM comm_interview_slots WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (db *DB) ConfirmSlot(ctx context.Context, id int64) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE comm_interview_slots SET status = $2 WHERE id = $1`, id, string(SlotConfirmed))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ConfirmSlotAt confirms the booking at a calendar position.
func (db *DB) ConfirmSlotAt(ctx context.Context, date, day, time string) error {
	res, err := db.connection.ExecContext(ctx, `
		UPDATE comm_interview_slots SET status = $4
		WHERE slot_date = $1::date AND day = $2 AND time = $3`,
		date, day, time, string(SlotConfirmed))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (db *DB) DeleteSlot(ctx context.Context, id int64) error {
	res, err := db.connection.ExecContext(ctx, `DELETE FROM comm_interview_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
