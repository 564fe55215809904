package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session represents one run of the blink tracker.
type Session struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt,omitzero"`
	Frames         int       `json:"frames"`
	FacelessFrames int       `json:"facelessFrames"`
	Clicks         int       `json:"clicks"`
}

// Running reports whether the session has not been finished yet.
func (s *Session) Running() bool {
	return s.EndedAt.IsZero()
}

// SessionStats are the counters written when a session finishes.
type SessionStats struct {
	Frames         int
	FacelessFrames int
	Clicks         int
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new running session.
func (r *SessionRepository) Start() (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sess.ID, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Finish stamps the end time and final counters of a session.
func (r *SessionRepository) Finish(id string, stats SessionStats) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, faceless_frames = ?, clicks = ?
		 WHERE id = ?`,
		time.Now(), stats.Frames, stats.FacelessFrames, stats.Clicks, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, ended_at, frames, faceless_frames, clicks
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves the most recent sessions, newest first.
// A limit of zero or less returns every session.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, frames, faceless_frames, clicks
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.StartedAt, &ended, &sess.Frames, &sess.FacelessFrames, &sess.Clicks)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return sess, nil
}
