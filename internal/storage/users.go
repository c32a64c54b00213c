package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (db *DB) CreateUser(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	err := db.connection.QueryRowContext(ctx, `
		INSERT INTO comm_users (name, email, company, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		u.Name, u.Email, u.Company, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return db.getUser(ctx, `WHERE LOWER(email) = $1`, NormalizeEmail(email))
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return db.getUser(ctx, `WHERE id = $1`, id)
}

func (db *DB) getUser(ctx context.Context, where string, arg interface{}) (*User, error) {
	u := &User{}
	err := db.connection.QueryRowContext(ctx,
		`SELECT id, name, email, company, password_hash, created_at FROM comm_users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Company, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser saves the profile fields of u. The password hash is left untouched.
func (db *DB) UpdateUser(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := db.connection.ExecContext(ctx,
		`UPDATE comm_users SET name = $2, email = $3, company = $4 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Company)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOneRow(res)
}

func (db *DB) CreateSession(ctx context.Context, s *Session) error {
	_, err := db.connection.ExecContext(ctx,
		`INSERT INTO comm_sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.Token, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

// GetSessionUser resolves a live session token to its user.
func (db *DB) GetSessionUser(ctx context.Context, token string, now time.Time) (*User, error) {
	u := &User{}
	err := db.connection.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.company, u.password_hash, u.created_at
		FROM comm_sessions s JOIN comm_users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2`, token, now,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Company, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.connection.ExecContext(ctx, `DELETE FROM comm_sessions WHERE token = $1`, token)
	return err
}
