package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// SnapshotRepo implements ports.SnapshotRepository with pgx.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save stores a cycle and one row per crossing in a single transaction.
func (r *SnapshotRepo) Save(ctx context.Context, snap *domain.Snapshot) error {
	full, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	selected, err := json.Marshal(snap.Selected)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO detection_cycles (id, ts, generated, method, rgb_threshold, image_width, image_height, selected, summary, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, snap.ID, snap.Timestamp, snap.Generated, snap.Method, snap.RGBThreshold,
		snap.ImageSize.Width, snap.ImageSize.Height, selected, summary, full)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range snap.Results {
		var details []byte
		if res.Detection.Details != nil {
			if details, err = json.Marshal(res.Detection.Details); err != nil {
				return fmt.Errorf("encode details for %s: %w", res.Crossing.Name, err)
			}
		}
		batch.Queue(`
			INSERT INTO crossing_detections (cycle_id, border_number, name, lat, lon, pixel_x, pixel_y, in_bounds,
				detection_type, has_clouds, needs_high_res, confidence, analysis, details, generated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (cycle_id, border_number) DO NOTHING
		`, snap.ID, res.BorderNumber, res.Crossing.Name,
			res.Crossing.Coordinates.Lat, res.Crossing.Coordinates.Lon,
			res.Pixel.X, res.Pixel.Y, res.InBounds,
			string(res.Detection.DetectionType), res.Detection.HasClouds, res.Detection.NeedsHighRes,
			res.Detection.Confidence, res.Detection.Analysis, details, snap.Generated)
	}
	br := tx.SendBatch(ctx, batch)
	for range snap.Results {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *SnapshotRepo) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT snapshot FROM detection_cycles ORDER BY generated DESC LIMIT 1
	`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns cycle summaries, newest first, and the total number of cycles.
func (r *SnapshotRepo) List(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM detection_cycles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, ts, generated, summary
		FROM detection_cycles
		ORDER BY generated DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.CycleSummary{}
	for rows.Next() {
		var c domain.CycleSummary
		var summary []byte
		if err := rows.Scan(&c.ID, &c.Timestamp, &c.Generated, &summary); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(summary, &c.Summary); err != nil {
			return nil, 0, fmt.Errorf("decode summary %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// CrossingHistory returns the most recent detections for one crossing.
func (r *SnapshotRepo) CrossingHistory(ctx context.Context, name string, limit int) ([]domain.CrossingObservation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT cycle_id::text, generated, pixel_x, pixel_y,
		       detection_type, has_clouds, needs_high_res, confidence, analysis, details
		FROM crossing_detections
		WHERE name = $1
		ORDER BY generated DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CrossingObservation{}
	for rows.Next() {
		var o domain.CrossingObservation
		var dt string
		var details []byte
		if err := rows.Scan(&o.CycleID, &o.Generated, &o.Pixel.X, &o.Pixel.Y,
			&dt, &o.Detection.HasClouds, &o.Detection.NeedsHighRes,
			&o.Detection.Confidence, &o.Detection.Analysis, &details); err != nil {
			return nil, err
		}
		if o.Detection.DetectionType, err = domain.ParseDetectionType(dt); err != nil {
			return nil, fmt.Errorf("cycle %s: %w", o.CycleID, err)
		}
		if len(details) > 0 {
			o.Detection.Details = &domain.DetectionDetails{}
			if err := json.Unmarshal(details, o.Detection.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
