package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertGroupInput is the per-group aggregate the Reconciler computes from
// one fetch's parsed entries.
type UpsertGroupInput struct {
	ProviderID  string
	RawName     string
	ChannelCnt  int
	ContentType GroupContentType
}

// UpsertGroup inserts a new ProviderGroup or refreshes an existing one's
// last_seen/active/count/content_type, per the Reconciler's group-reconcile
// step. It must run within the caller's transaction.
func UpsertGroup(ctx context.Context, tx *sql.Tx, newID string, in UpsertGroupInput) (string, error) {
	now := nowRFC3339()

	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM provider_group WHERE provider_id = ? AND raw_name = ?`,
		in.ProviderID, in.RawName,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO provider_group (id, provider_id, raw_name, first_seen, last_seen, active, channel_count, content_type)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
			newID, in.ProviderID, in.RawName, now, now, in.ChannelCnt, string(in.ContentType),
		); err != nil {
			return "", fmt.Errorf("catalog: insert group %q: %w", in.RawName, err)
		}
		return newID, nil
	case err != nil:
		return "", fmt.Errorf("catalog: lookup group %q: %w", in.RawName, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE provider_group SET last_seen = ?, active = 1, channel_count = ?, content_type = ?
		WHERE id = ?`,
		now, in.ChannelCnt, string(in.ContentType), existingID,
	); err != nil {
		return "", fmt.Errorf("catalog: update group %q: %w", in.RawName, err)
	}
	return existingID, nil
}

// DeactivateGroupsNotIn sets active=false, channel_count=0 on every group of
// providerID whose raw name is absent from keepRawNames. Rows are never
// deleted.
func DeactivateGroupsNotIn(ctx context.Context, tx *sql.Tx, providerID string, keepRawNames []string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, raw_name FROM provider_group WHERE provider_id = ? AND active = 1`, providerID)
	if err != nil {
		return fmt.Errorf("catalog: list active groups: %w", err)
	}
	keep := make(map[string]bool, len(keepRawNames))
	for _, n := range keepRawNames {
		keep[n] = true
	}

	var toDeactivate []string
	for rows.Next() {
		var id, rawName string
		if err := rows.Scan(&id, &rawName); err != nil {
			rows.Close()
			return fmt.Errorf("catalog: scan group: %w", err)
		}
		if !keep[rawName] {
			toDeactivate = append(toDeactivate, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, id := range toDeactivate {
		if _, err := tx.ExecContext(ctx,
			`UPDATE provider_group SET active = 0, channel_count = 0 WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("catalog: deactivate group %q: %w", id, err)
		}
	}
	return nil
}

// ListGroups returns every ProviderGroup for a provider, active or not.
func (s *Store) ListGroups(ctx context.Context, providerID string) ([]*ProviderGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, raw_name, first_seen, last_seen, active, channel_count, content_type
		FROM provider_group WHERE provider_id = ? ORDER BY raw_name`, providerID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list groups: %w", err)
	}
	defer rows.Close()

	var out []*ProviderGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGroup fetches one ProviderGroup by id.
func (s *Store) GetGroup(ctx context.Context, id string) (*ProviderGroup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, raw_name, first_seen, last_seen, active, channel_count, content_type
		FROM provider_group WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// ActiveGroupsWithoutFilter returns, within tx, the ProviderGroups of
// providerID that are active but have no ProfileGroupFilter row yet under
// profileID — the set the filter-backfill step must create pending rows for.
func ActiveGroupsWithoutFilter(ctx context.Context, tx *sql.Tx, providerID, profileID string) ([]*ProviderGroup, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT g.id, g.provider_id, g.raw_name, g.first_seen, g.last_seen, g.active, g.channel_count, g.content_type
		FROM provider_group g
		WHERE g.provider_id = ? AND g.active = 1
		AND NOT EXISTS (
			SELECT 1 FROM profile_group_filter f
			WHERE f.provider_group_id = g.id AND f.profile_id = ?
		)`, providerID, profileID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list groups without filter: %w", err)
	}
	defer rows.Close()

	var out []*ProviderGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGroup(row rowScanner) (*ProviderGroup, error) {
	var g ProviderGroup
	var firstSeen, lastSeen string
	var active int
	var contentType string
	if err := row.Scan(&g.ID, &g.ProviderID, &g.RawName, &firstSeen, &lastSeen, &active, &g.ChannelCount, &contentType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan group: %w", err)
	}
	g.Active = active != 0
	g.ContentType = GroupContentType(contentType)
	var err error
	if g.FirstSeen, err = parseTime(firstSeen); err != nil {
		return nil, err
	}
	if g.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	return &g, nil
}
