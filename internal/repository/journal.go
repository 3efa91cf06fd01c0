package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Reservation states tracked by the journal.
const (
	StateReserved  = "reserved"
	StateCompleted = "completed"
	StateRefunded  = "refunded"
)

// Reservation is one journaled credit debit.
type Reservation struct {
	ID        string
	UserID    string
	VideoURL  string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal records credit reservations locally so that debits stranded by a
// crash mid-flow stay visible for manual reconciliation. The remote ledger
// remains the single source of truth; the journal never gates a request.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (and if needed initializes) the journal database.
func NewJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			video_url TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reservations_state ON reservations(state);
		CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create reservations table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record journals a new committed reservation and returns its id.
func (j *Journal) Record(ctx context.Context, userID, videoURL string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO reservations (id, user_id, video_url, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, videoURL, StateReserved, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("record reservation: %w", err)
	}
	return id, nil
}

// MarkCompleted marks a reservation as settled by a successful analysis.
func (j *Journal) MarkCompleted(ctx context.Context, id string) error {
	return j.setState(ctx, id, StateCompleted)
}

// MarkRefunded marks a reservation as compensated by a refund.
func (j *Journal) MarkRefunded(ctx context.Context, id string) error {
	return j.setState(ctx, id, StateRefunded)
}

func (j *Journal) setState(ctx context.Context, id, state string) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE reservations SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update reservation %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("reservation %s not found", id)
	}
	return nil
}

// ListOpen returns reservations still in the reserved state, oldest first.
// These are debits that never settled and may need manual compensation.
func (j *Journal) ListOpen(ctx context.Context) ([]Reservation, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, user_id, video_url, state, created_at, updated_at
		 FROM reservations WHERE state = ? ORDER BY created_at`,
		StateReserved,
	)
	if err != nil {
		return nil, fmt.Errorf("list open reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.ID, &r.UserID, &r.VideoURL, &r.State, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
