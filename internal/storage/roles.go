package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const roleColumns = `id, job_id, title, COALESCE(department, ''), location, experience, skills,
	status, applicants, COALESCE(jd_url, ''), created_at`

func scanRole(row rowScanner) (*Role, error) {
	r := &Role{}
	var status string
	err := row.Scan(&r.ID, &r.JobID, &r.Title, &r.Department, &r.Location, &r.Experience,
		pq.Array(&r.Skills), &status, &r.Applicants, &r.JDURL, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = RoleStatus(status)
	return r, nil
}

// CreateRole inserts r and fills in its id and creation time.
func (db *DB) CreateRole(ctx context.Context, r *Role) error {
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	err := db.connection.QueryRowContext(ctx, `
		INSERT INTO comm_roles (job_id, title, department, location, experience, skills, status, applicants, jd_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		r.JobID, r.Title, nullIfEmpty(r.Department), r.Location, r.Experience,
		pq.Array(skills), string(r.Status), r.Applicants, nullIfEmpty(r.JDURL),
	).Scan(&r.ID, &r.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// ListRoles returns roles newest first.
func (db *DB) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM comm_roles ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (db *DB) GetRole(ctx context.Context, id int64) (*Role, error) {
	r, err := scanRole(db.connection.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM comm_roles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// RoleIDByJobID returns the id of the role with jobID.
func (db *DB) RoleIDByJobID(ctx context.Context, jobID string) (int64, error) {
	var id int64
	err := db.connection.QueryRowContext(ctx,
		`SELECT id FROM comm_roles WHERE job_id = $1`, jobID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// IncrementApplicants bumps the applicant counter of the role with jobID.
// Unknown job ids are ignored.
func (db *DB) IncrementApplicants(ctx context.Context, jobID string, n int) error {
	_, err := db.connection.ExecContext(ctx,
		`UPDATE comm_roles SET applicants = applicants + $2 WHERE job_id = $1`, jobID, n)
	return err
}
