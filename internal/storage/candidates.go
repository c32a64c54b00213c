package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const candidateColumns = `id, candidate_id, COALESCE(job_id, ''), COALESCE(candidate_name, ''),
	COALESCE(candidate_email, ''), COALESCE(phone, ''), COALESCE("current_role", ''),
	COALESCE(current_company, ''), COALESCE(years_of_experience, ''), score,
	COALESCE(summary, ''), COALESCE(strengths, '{}'), COALESCE(gaps, '{}'),
	COALESCE(recommendation, ''), COALESCE(email_subject, ''), COALESCE(email_body, ''),
	COALESCE(status, ''), status_override, tags, shortlist_rank, created_at`

// derivedStatusSQL mirrors DeriveStatus for set-based updates.
var derivedStatusSQL = fmt.Sprintf(
	`CASE WHEN score > %d THEN '%s' WHEN score > %d THEN '%s' ELSE '%s' END`,
	ShortlistThreshold, StatusShortlisted, ReviewThreshold, StatusReview, StatusRejected,
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*Candidate, error) {
	c := &Candidate{}
	var status string
	var rank sql.NullInt64
	err := row.Scan(
		&c.ID, &c.CandidateID, &c.JobID, &c.Name, &c.Email, &c.Phone, &c.CurrentRole,
		&c.CurrentCompany, &c.YearsOfExperience, &c.Score, &c.Summary,
		pq.Array(&c.Strengths), pq.Array(&c.Gaps), &c.Recommendation,
		&c.EmailSubject, &c.EmailBody, &status, &c.StatusOverride,
		pq.Array(&c.Tags), &rank, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = Status(status)
	if rank.Valid {
		r := int(rank.Int64)
		c.ShortlistRank = &r
	}
	return c, nil
}

const insertCandidateColumns = 16

// InsertCandidates writes all rows in a single statement. Rows whose
// candidate_id already exists are skipped; the number actually inserted is
// returned.
func (db *DB) InsertCandidates(ctx context.Context, cands []*Candidate) (int, error) {
	if len(cands) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO comm_candidate (candidate_id, job_id, candidate_name, candidate_email,
		phone, "current_role", current_company, years_of_experience, score, summary, strengths,
		gaps, recommendation, email_subject, email_body, status) VALUES `)

	args := make([]interface{}, 0, len(cands)*insertCandidateColumns)
	for i, c := range cands {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		sb.WriteByte('(')
		for j := 1; j <= insertCandidateColumns; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteByte(')')

		status := c.Status
		if status == "" {
			status = DeriveStatus(c.Score)
		}
		args = append(args,
			c.CandidateID, nullIfEmpty(c.JobID), c.Name, c.Email,
			nullIfEmpty(c.Phone), nullIfEmpty(c.CurrentRole), nullIfEmpty(c.CurrentCompany),
			nullIfEmpty(c.YearsOfExperience), c.Score, nullIfEmpty(c.Summary),
			pq.Array(c.Strengths), pq.Array(c.Gaps), nullIfEmpty(c.Recommendation),
			nullIfEmpty(c.EmailSubject), nullIfEmpty(c.EmailBody), string(status),
		)
	}
	sb.WriteString(" ON CONFLICT (candidate_id) DO NOTHING")

	res, err := db.connection.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert candidates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountCandidates counts rows for a job, or all rows when jobID is empty.
func (db *DB) CountCandidates(ctx context.Context, jobID string) (int, error) {
	var n int
	var err error
	if jobID == "" {
		err = db.connection.QueryRowContext(ctx, `SELECT COUNT(*) FROM comm_candidate`).Scan(&n)
	} else {
		err = db.connection.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM comm_candidate WHERE job_id = $1`, jobID).Scan(&n)
	}
	return n, err
}

// ListCandidates returns every row for a job (all rows when jobID is empty),
// best score first. Filtering and sorting for display happen in views.
func (db *DB) ListCandidates(ctx context.Context, jobID string) ([]*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM comm_candidate`
	var args []interface{}
	if jobID != "" {
		query += ` WHERE job_id = $1`
		args = append(args, jobID)
	}
	query += ` ORDER BY score DESC, id ASC`

	rows, err := db.connection.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (db *DB) GetCandidate(ctx context.Context, candidateID string) (*Candidate, error) {
	row := db.connection.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM comm_candidate WHERE candidate_id = $1`, candidateID)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// SetCandidateStatus records a recruiter override. An empty status clears the
// override and puts the score-derived status back.
func (db *DB) SetCandidateStatus(ctx context.Context, candidateID string, status Status) error {
	var res sql.Result
	var err error
	if status == "" {
		res, err = db.connection.ExecContext(ctx,
			`UPDATE comm_candidate SET status = `+derivedStatusSQL+`, status_override = FALSE
			 WHERE candidate_id = $1`, candidateID)
	} else {
		res, err = db.connection.ExecContext(ctx,
			`UPDATE comm_candidate SET status = $2, status_override = TRUE WHERE candidate_id = $1`,
			candidateID, string(status))
	}
	if err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}
	return expectOneRow(res)
}

func (db *DB) SetCandidateTags(ctx context.Context, candidateID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	res, err := db.connection.ExecContext(ctx,
		`UPDATE comm_candidate SET tags = $2 WHERE candidate_id = $1`, candidateID, pq.Array(tags))
	if err != nil {
		return fmt.Errorf("update candidate tags: %w", err)
	}
	return expectOneRow(res)
}

// SetShortlistOrder stores a manual ranking. Candidates not listed lose their rank.
func (db *DB) SetShortlistOrder(ctx context.Context, candidateIDs []string) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE comm_candidate SET shortlist_rank = NULL WHERE shortlist_rank IS NOT NULL`); err != nil {
		return fmt.Errorf("reset shortlist order: %w", err)
	}
	for i, id := range candidateIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE comm_candidate SET shortlist_rank = $2 WHERE candidate_id = $1`, id, i+1); err != nil {
			return fmt.Errorf("set shortlist rank for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// StatusChange describes a row whose stored status disagrees with its score.
type StatusChange struct {
	CandidateID string
	Score       float64
	From        Status
	To          Status
}

// BackfillStatuses finds rows without a recruiter override whose stored status
// is missing or stale and, unless dryRun, rewrites it from the score.
func (db *DB) BackfillStatuses(ctx context.Context, limit int, dryRun bool) ([]StatusChange, error) {
	rows, err := db.connection.QueryContext(ctx, `
		SELECT candidate_id, score, COALESCE(status, '')
		FROM comm_candidate
		WHERE status_override = FALSE AND (status IS NULL OR status <> `+derivedStatusSQL+`)
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []StatusChange
	for rows.Next() {
		var ch StatusChange
		var from string
		if err := rows.Scan(&ch.CandidateID, &ch.Score, &from); err != nil {
			return nil, err
		}
		ch.From = Status(from)
		ch.To = DeriveStatus(ch.Score)
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if dryRun || len(changes) == 0 {
		return changes, nil
	}

	ids := make([]string, len(changes))
	for i, ch := range changes {
		ids[i] = ch.CandidateID
	}
	if _, err := db.connection.ExecContext(ctx,
		`UPDATE comm_candidate SET status = `+derivedStatusSQL+`
		 WHERE status_override = FALSE AND candidate_id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("backfill statuses: %w", err)
	}
	return changes, nil
}
