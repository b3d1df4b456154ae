package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SnapshotStore persists instrument snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, rec *SnapshotRecord) (uuid.UUID, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*SnapshotRecord, error)
	ListSnapshots(ctx context.Context, instrumentName string, limit int) ([]SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
}

var _ SnapshotStore = (*PostgresClient)(nil)

// SaveSnapshot stores a snapshot. A missing ID or timestamp is filled in.
func (p *PostgresClient) SaveSnapshot(ctx context.Context, rec *SnapshotRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	snapJSON, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO instrument_snapshots (id, instrument_id, instrument_name, kind, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.InstrumentID, rec.InstrumentName, rec.Kind, snapJSON, rec.CreatedAt)

	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return rec.ID, nil
}

func (p *PostgresClient) GetSnapshot(ctx context.Context, id uuid.UUID) (*SnapshotRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, instrument_id, instrument_name, kind, snapshot, created_at
		FROM instrument_snapshots
		WHERE id = $1
	`, id)

	rec, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSnapshots returns the newest snapshots of an instrument first. An
// empty name lists all instruments.
func (p *PostgresClient) ListSnapshots(ctx context.Context, instrumentName string, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, instrument_id, instrument_name, kind, snapshot, created_at
		FROM instrument_snapshots
		WHERE $1 = '' OR instrument_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, instrumentName, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0)

	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func (p *PostgresClient) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `
		DELETE FROM instrument_snapshots
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: snapshot %s", types.ErrNotFound, id)
	}

	return nil
}

func scanSnapshot(row pgx.Row) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var snapJSON []byte

	err := row.Scan(&rec.ID, &rec.InstrumentID, &rec.InstrumentName, &rec.Kind, &snapJSON, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if err := json.Unmarshal(snapJSON, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &rec, nil
}
