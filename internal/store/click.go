package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Click sides as stored in the clicks table.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Click represents one emitted click with the eyelid distances that caused it.
type Click struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	Side          string    `json:"side"`
	LeftDistance  float64   `json:"leftDistance"`
	RightDistance float64   `json:"rightDistance"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ClickRepository provides access to the click history.
type ClickRepository struct {
	db *sql.DB
}

// Clicks returns the click repository for this store.
func (s *Store) Clicks() *ClickRepository {
	return &ClickRepository{db: s.db}
}

// Create inserts a click. An empty ID is replaced with a new UUID and a zero
// CreatedAt with the current time.
func (r *ClickRepository) Create(c *Click) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO clicks (id, session_id, side, left_distance, right_distance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Side, c.LeftDistance, c.RightDistance, c.CreatedAt,
	)
	return err
}

// List retrieves the most recent clicks across all sessions, newest first.
// A limit of zero or less returns every click.
func (r *ClickRepository) List(limit int) ([]*Click, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT id, session_id, side, left_distance, right_distance, created_at
		 FROM clicks ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
}

// ListBySession retrieves the clicks of one session in the order they happened.
func (r *ClickRepository) ListBySession(sessionID string) ([]*Click, error) {
	return r.query(
		`SELECT id, session_id, side, left_distance, right_distance, created_at
		 FROM clicks WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
}

// CountBySide returns the number of clicks per side for a session.
// Sides without clicks are reported as zero.
func (r *ClickRepository) CountBySide(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT side, COUNT(*) FROM clicks WHERE session_id = ? GROUP BY side`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{SideLeft: 0, SideRight: 0}
	for rows.Next() {
		var side string
		var n int
		if err := rows.Scan(&side, &n); err != nil {
			return nil, err
		}
		counts[side] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *ClickRepository) query(q string, args ...any) ([]*Click, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []*Click
	for rows.Next() {
		c := &Click{}
		err := rows.Scan(&c.ID, &c.SessionID, &c.Side, &c.LeftDistance, &c.RightDistance, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clicks, nil
}
