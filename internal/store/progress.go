package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

const progressCols = "week_id, start_date, end_date, status, all_tx_count, xtz_flow_count, started_at, completed_at, error_message"

func scanProgress(row interface{ Scan(...any) error }) (*models.SyncProgress, error) {
	var p models.SyncProgress
	var start, end int64
	var started, completed sql.NullInt64
	var errMsg sql.NullString
	if err := row.Scan(&p.WeekID, &start, &end, &p.Status, &p.AllTxCount, &p.XtzFlowCount,
		&started, &completed, &errMsg); err != nil {
		return nil, err
	}
	p.StartDate = time.Unix(start, 0).UTC()
	p.EndDate = time.Unix(end, 0).UTC()
	p.StartedAt = scanNullTime(started)
	p.CompletedAt = scanNullTime(completed)
	p.ErrorMessage = errMsg.String
	return &p, nil
}

// Week returns the FSM row for weekID, nil when the week was never seen.
func (s *Store) Week(ctx context.Context, weekID string) (*models.SyncProgress, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+progressCols+" FROM sync_progress WHERE week_id = ?", weekID)
	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListWeeks returns every known week ordered by start date.
func (s *Store) ListWeeks(ctx context.Context) ([]models.SyncProgress, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+progressCols+" FROM sync_progress ORDER BY start_date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SyncProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// EnsureWeek inserts a pending row for the week if none exists.
func (s *Store) EnsureWeek(ctx context.Context, weekID string, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_progress (week_id, start_date, end_date, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (week_id) DO NOTHING`,
		weekID, start.Unix(), end.Unix(), models.WeekPending)
	return err
}

// MarkWeekInProgress stamps started_at and clears any prior error. Re-entry
// from error or a stale in_progress is allowed and overwrites state.
func (s *Store) MarkWeekInProgress(ctx context.Context, weekID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_progress
		SET status = ?, started_at = ?, completed_at = NULL, error_message = NULL
		WHERE week_id = ?`,
		models.WeekInProgress, at.Unix(), weekID)
	return err
}

// MarkWeekComplete stamps completed_at and the final counts.
func (s *Store) MarkWeekComplete(ctx context.Context, weekID string, allTxCount, xtzFlowCount int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_progress
		SET status = ?, all_tx_count = ?, xtz_flow_count = ?, completed_at = ?, error_message = NULL
		WHERE week_id = ?`,
		models.WeekComplete, allTxCount, xtzFlowCount, at.Unix(), weekID)
	return err
}

// MarkWeekError records the failure; the message overwrites any prior one.
func (s *Store) MarkWeekError(ctx context.Context, weekID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_progress SET status = ?, error_message = ? WHERE week_id = ?`,
		models.WeekError, msg, weekID)
	return err
}
