package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// AppendRunStats stores rs and prunes records that started more than
// retention before it. A non-positive retention keeps everything. It
// returns how many rows were pruned.
func (s *Store) AppendRunStats(ctx context.Context, rs *RunStats, retention time.Duration) (int64, error) {
	payload, err := json.Marshal(rs)
	if err != nil {
		return 0, fmt.Errorf("encoding run stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_stats (id, recorded_at, status, payload)
		VALUES (?, ?, ?, ?)
	`, rs.RunID.String(), formatTime(rs.Timestamp), string(rs.Status), string(payload))
	if err != nil {
		return 0, fmt.Errorf("inserting run stats: %w", err)
	}

	var pruned int64
	if retention > 0 {
		cutoff := rs.Timestamp.Add(-retention)
		result, err := tx.ExecContext(ctx, `DELETE FROM run_stats WHERE recorded_at < ?`, formatTime(cutoff))
		if err != nil {
			return 0, fmt.Errorf("pruning run stats: %w", err)
		}
		pruned, _ = result.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run stats: %w", err)
	}
	return pruned, nil
}

// RecentRunStats returns up to limit of the newest runs, oldest first
func (s *Store) RecentRunStats(ctx context.Context, limit int) ([]RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM (
			SELECT payload, recorded_at FROM run_stats
			ORDER BY recorded_at DESC
			LIMIT ?
		) ORDER BY recorded_at ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run stats: %w", err)
	}
	defer rows.Close()

	var out []RunStats
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rs RunStats
		if err := json.Unmarshal([]byte(payload), &rs); err != nil {
			return nil, fmt.Errorf("decoding run stats: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// LatestRunStats returns the most recent run or ErrNoRunStats
func (s *Store) LatestRunStats(ctx context.Context) (*RunStats, error) {
	runs, err := s.RecentRunStats(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRunStats
	}
	return &runs[0], nil
}

// CountRunStats returns the number of stored runs
func (s *Store) CountRunStats(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_stats`).Scan(&n)
	return n, err
}
