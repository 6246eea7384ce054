package valuation

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/database"
	"github.com/ozank/portfoy/internal/domain"
)

// SnapshotRepository handles the append-only portfolio value history
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Insert appends one snapshot. No upsert: repeated valuation runs within the
// same minute produce multiple rows, consumers de-duplicate per day.
func (r *SnapshotRepository) Insert(userID int64, totalValue float64, calculatedAt time.Time) (int64, error) {
	result, err := r.db.Exec(
		`INSERT INTO portfolio_values (user_id, total_value, calculated_at) VALUES (?, ?, ?)`,
		userID,
		totalValue,
		database.FormatTime(calculatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted snapshot id: %w", err)
	}
	return id, nil
}

// Latest returns the most recent snapshot for a user, or nil when none exists
func (r *SnapshotRepository) Latest(userID int64) (*domain.ValuationSnapshot, error) {
	query := `SELECT id, user_id, total_value, calculated_at
		FROM portfolio_values
		WHERE user_id = ?
		ORDER BY calculated_at DESC, id DESC
		LIMIT 1`

	var snap domain.ValuationSnapshot
	var calculatedAt string
	err := r.db.QueryRow(query, userID).Scan(&snap.ID, &snap.UserID, &snap.TotalValue, &calculatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	if snap.CalculatedAt, err = database.ParseTime(calculatedAt); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Range returns the user's snapshots within [from, to], ascending. A nil
// bound leaves that side unbounded.
func (r *SnapshotRepository) Range(userID int64, from, to *time.Time) ([]domain.ValuationSnapshot, error) {
	query := `SELECT id, user_id, total_value, calculated_at
		FROM portfolio_values
		WHERE user_id = ?`
	args := []interface{}{userID}

	if from != nil {
		query += ` AND calculated_at >= ?`
		args = append(args, database.FormatTime(*from))
	}
	if to != nil {
		query += ` AND calculated_at <= ?`
		args = append(args, database.FormatTime(*to))
	}
	query += ` ORDER BY calculated_at ASC, id ASC`

	return r.query(query, args...)
}

// LastNDays returns the snapshots from the last n days, ascending
func (r *SnapshotRepository) LastNDays(userID int64, n int) ([]domain.ValuationSnapshot, error) {
	from := time.Now().UTC().AddDate(0, 0, -n)
	return r.Range(userID, &from, nil)
}

// LastKRecords returns the k most recent snapshots. Selection is newest
// first; the result is re-sorted ascending because every consumer expects a
// chronological series.
func (r *SnapshotRepository) LastKRecords(userID int64, k int) ([]domain.ValuationSnapshot, error) {
	query := `SELECT id, user_id, total_value, calculated_at
		FROM portfolio_values
		WHERE user_id = ?
		ORDER BY calculated_at DESC, id DESC
		LIMIT ?`

	snapshots, err := r.query(query, userID, k)
	if err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CalculatedAt.Equal(snapshots[j].CalculatedAt) {
			return snapshots[i].ID < snapshots[j].ID
		}
		return snapshots[i].CalculatedAt.Before(snapshots[j].CalculatedAt)
	})

	return snapshots, nil
}

func (r *SnapshotRepository) query(query string, args ...interface{}) ([]domain.ValuationSnapshot, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.ValuationSnapshot
	for rows.Next() {
		var snap domain.ValuationSnapshot
		var calculatedAt string
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.TotalValue, &calculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.CalculatedAt, err = database.ParseTime(calculatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
