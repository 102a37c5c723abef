package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertStagedSnapshot inserts a new Snapshot row in the staged state, with
// its artifact paths and published count already known (the Snapshot
// Builder writes the files before inserting the row).
func (s *Store) InsertStagedSnapshot(ctx context.Context, snap *Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot (id, profile_id, created_at, status, channel_index_path, guide_path, channel_count_published, error_summary)
		VALUES (?, ?, ?, 'staged', ?, ?, ?, ?)`,
		snap.ID, snap.ProfileID, nowRFC3339(), snap.ChannelIndexPath, snap.GuidePath,
		snap.ChannelCountPublished, nullable(snap.ErrorSummary),
	)
	if err != nil {
		return fmt.Errorf("catalog: insert staged snapshot: %w", err)
	}
	return nil
}

// PromoteSnapshot archives the profile's current active snapshot (if any)
// and activates snapshotID, inside one transaction. The partial unique
// index on (profile_id) WHERE status='active' guarantees at most one active
// row survives even under a crash between the two statements, since the
// archive-then-activate pair is atomic.
func (s *Store) PromoteSnapshot(ctx context.Context, profileID, snapshotID string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE snapshot SET status = 'archived' WHERE profile_id = ? AND status = 'active'`,
			profileID,
		); err != nil {
			return fmt.Errorf("catalog: archive prior active snapshot: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE snapshot SET status = 'active' WHERE id = ? AND status = 'staged'`, snapshotID,
		)
		if err != nil {
			return fmt.Errorf("catalog: activate snapshot: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog: snapshot %q not in staged state: %w", snapshotID, ErrConflict)
		}
		return nil
	})
}

// ActiveSnapshot returns the active Snapshot for a profile, or ErrNotFound.
func (s *Store) ActiveSnapshot(ctx context.Context, profileID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, snapshotSelectColumns+
		` FROM snapshot WHERE profile_id = ? AND status = 'active'`, profileID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return snap, err
}

// ListSnapshots returns every snapshot for a profile, most recent first.
func (s *Store) ListSnapshots(ctx context.Context, profileID string) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, snapshotSelectColumns+
		` FROM snapshot WHERE profile_id = ? ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SnapshotsBeyondRetention returns the snapshots for a profile past the
// newest retentionCount, newest first — exactly the rows the retention
// sweep should delete (row and directory).
func (s *Store) SnapshotsBeyondRetention(ctx context.Context, profileID string, retentionCount int) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, snapshotSelectColumns+`
		FROM snapshot WHERE profile_id = ?
		ORDER BY created_at DESC
		LIMIT -1 OFFSET ?`, profileID, retentionCount)
	if err != nil {
		return nil, fmt.Errorf("catalog: list snapshots beyond retention: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a Snapshot row. Callers must delete its on-disk
// directory first (best effort); the row is the record of what existed, not
// the owner of the files.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete snapshot %q: %w", id, err)
	}
	return nil
}

const snapshotSelectColumns = `
	SELECT id, profile_id, created_at, status, channel_index_path, guide_path,
		channel_count_published, error_summary`

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var createdAt, status string
	var errorSummary sql.NullString

	if err := row.Scan(
		&snap.ID, &snap.ProfileID, &createdAt, &status, &snap.ChannelIndexPath, &snap.GuidePath,
		&snap.ChannelCountPublished, &errorSummary,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan snapshot: %w", err)
	}
	snap.Status = SnapshotStatus(status)
	snap.ErrorSummary = errorSummary.String

	var err error
	if snap.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &snap, nil
}
