package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"scrumtools/backend/internal/poker/domain"
)

// uniqueViolation is the Postgres SQLSTATE raised by poker_sessions_one_active_per_team.
const uniqueViolation = "23505"

const sessionColumns = `id, team_id, story_title, story_description, status, created_by_id, created_by_name,
	final_estimate, scale, superseded, version, created_at, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository stores sessions in poker_sessions and their votes in poker_votes.
// Writes are optimistic: an update only applies when the stored version matches.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions WHERE id = $1`, id)
	return r.loadOne(ctx, row)
}

// GetActiveByTeam returns the team's active session, or nil if there is none.
func (r *PostgresRepository) GetActiveByTeam(ctx context.Context, teamID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions
		WHERE team_id = $1 AND status <> 'COMPLETED' AND NOT superseded`, teamID)
	return r.loadOne(ctx, row)
}

// ListByTeam returns the team's sessions newest first.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions
		WHERE team_id = $1 ORDER BY created_at DESC LIMIT $2`, teamID, limit)
	if err != nil {
		return nil, err
	}
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, s := range out {
		if s.Votes, err = loadVotes(ctx, r.db, s.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Create inserts s and its votes. A second active session for the team fails with domain.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return insertSession(ctx, tx, s)
	})
}

// Update writes s if the stored row is still at prevVersion.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Session, prevVersion int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return updateSession(ctx, tx, s, prevVersion)
	})
}

// Replace marks old as superseded and inserts next in a single transaction.
func (r *PostgresRepository) Replace(ctx context.Context, old *domain.Session, oldPrevVersion int64, next *domain.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateSession(ctx, tx, old, oldPrevVersion); err != nil {
			return err
		}
		return insertSession(ctx, tx, next)
	})
}

// Ping checks the connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepository) loadOne(ctx context.Context, row *sql.Row) (*domain.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if s.Votes, err = loadVotes(ctx, r.db, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var (
		s      domain.Session
		status string
		scale  string
	)
	err := row.Scan(&s.ID, &s.TeamID, &s.StoryTitle, &s.StoryDescription, &status, &s.CreatedBy.ID, &s.CreatedBy.Name,
		&s.FinalEstimate, &scale, &s.Superseded, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	if s.Scale, err = domain.ParseScale(scale); err != nil {
		return nil, fmt.Errorf("session %s: stored scale: %w", s.ID, err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func loadVotes(ctx context.Context, q querier, sessionID string) (map[string]domain.Vote, error) {
	rows, err := q.QueryContext(ctx, `SELECT voter_id, voter_name, vote_value, cast_at FROM poker_votes WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	votes := make(map[string]domain.Vote)
	for rows.Next() {
		var (
			v      domain.Vote
			castAt time.Time
		)
		if err := rows.Scan(&v.Voter.ID, &v.Voter.Name, &v.Value, &castAt); err != nil {
			return nil, err
		}
		v.CastAt = castAt.UTC()
		votes[v.Voter.ID] = v
	}
	return votes, rows.Err()
}

func insertSession(ctx context.Context, q querier, s *domain.Session) error {
	_, err := q.ExecContext(ctx, `INSERT INTO poker_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.TeamID, s.StoryTitle, s.StoryDescription, string(s.Status), s.CreatedBy.ID, s.CreatedBy.Name,
		s.FinalEstimate, s.Scale.String(), s.Superseded, s.Version, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: team %s", domain.ErrConflict, s.TeamID)
		}
		return err
	}
	return insertVotes(ctx, q, s)
}

func updateSession(ctx context.Context, q querier, s *domain.Session, prevVersion int64) error {
	res, err := q.ExecContext(ctx, `UPDATE poker_sessions SET
			status = $3, final_estimate = $4, superseded = $5, version = $6, updated_at = $7, created_by_name = $8
		WHERE id = $1 AND version = $2`,
		s.ID, prevVersion, string(s.Status), s.FinalEstimate, s.Superseded, s.Version, s.UpdatedAt, s.CreatedBy.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: team %s", domain.ErrConflict, s.TeamID)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM poker_sessions WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, s.ID)
		}
		return fmt.Errorf("%w: session %s expected version %d", domain.ErrVersionConflict, s.ID, prevVersion)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM poker_votes WHERE session_id = $1`, s.ID); err != nil {
		return err
	}
	return insertVotes(ctx, q, s)
}

func insertVotes(ctx context.Context, q querier, s *domain.Session) error {
	for _, v := range s.VoteList() {
		_, err := q.ExecContext(ctx, `INSERT INTO poker_votes (session_id, voter_id, voter_name, vote_value, cast_at)
			VALUES ($1, $2, $3, $4, $5)`, s.ID, v.Voter.ID, v.Voter.Name, v.Value, v.CastAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
