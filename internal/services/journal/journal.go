// Package journal appends counted crossings to a local SQLite database.
// It is write-mostly: counters are never rebuilt from it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"time"

	_ "modernc.org/sqlite"

	"lanecount-worker-go/internal/models"
)

type Journal struct {
	*sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS crossing_events (
			event_id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			lane_id INTEGER NOT NULL,
			direction TEXT NOT NULL,
			frame_id BIGINT NOT NULL,
			ts_unix_nanos BIGINT NOT NULL,
			box_x INTEGER NOT NULL,
			box_y INTEGER NOT NULL,
			box_w INTEGER NOT NULL,
			box_h INTEGER NOT NULL,
			westbound_total BIGINT NOT NULL,
			eastbound_total BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_crossing_events_ts ON crossing_events (ts_unix_nanos);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db}, nil
}

// RecordCrossings stores the events of one frame in a single transaction
func (j *Journal) RecordCrossings(ctx context.Context, events []models.CrossingEvent, counts models.CountSnapshot) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO crossing_events
		(event_id, source_id, lane_id, direction, frame_id, ts_unix_nanos, box_x, box_y, box_w, box_h, westbound_total, eastbound_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			ev.ID, ev.SourceID, ev.LaneID, string(ev.Direction), ev.FrameID, ev.Timestamp.UnixNano(),
			ev.Box.Min.X, ev.Box.Min.Y, ev.Box.Dx(), ev.Box.Dy(),
			counts.Westbound, counts.Eastbound,
		)
		if err != nil {
			return fmt.Errorf("insert crossing %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit crossings, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.CrossingEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.QueryContext(ctx, `SELECT event_id, source_id, lane_id, direction, frame_id, ts_unix_nanos, box_x, box_y, box_w, box_h
		FROM crossing_events ORDER BY ts_unix_nanos DESC, frame_id DESC, lane_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.CrossingEvent
	for rows.Next() {
		var (
			ev         models.CrossingEvent
			direction  string
			nanos      int64
			x, y, w, h int
		)
		if err := rows.Scan(&ev.ID, &ev.SourceID, &ev.LaneID, &direction, &ev.FrameID, &nanos, &x, &y, &w, &h); err != nil {
			return nil, err
		}
		ev.Direction = models.Direction(direction)
		ev.Timestamp = time.Unix(0, nanos).UTC()
		ev.Box = image.Rect(x, y, x+w, y+h)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// DirectionTotals counts the journaled crossings per direction
func (j *Journal) DirectionTotals(ctx context.Context) (map[models.Direction]int64, error) {
	rows, err := j.QueryContext(ctx, `SELECT direction, COUNT(*) FROM crossing_events GROUP BY direction`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[models.Direction]int64)
	for rows.Next() {
		var direction string
		var n int64
		if err := rows.Scan(&direction, &n); err != nil {
			return nil, err
		}
		totals[models.Direction(direction)] = n
	}
	return totals, rows.Err()
}
