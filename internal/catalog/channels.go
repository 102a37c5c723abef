package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertChannelInput is the per-entry data the Reconciler's channel-upsert
// step writes, keyed by the stable key derived in internal/identity.
type UpsertChannelInput struct {
	ProviderID   string
	StableKey    string
	DisplayName  string
	TvgID        string
	TvgName      string
	TvgLogo      string
	StreamURL    string
	GroupRawName string
	GroupID      string
	ContentType  string
	FetchRunID   string
}

// UpsertChannel inserts a new ProviderChannel or refreshes an existing one
// keyed by (provider_id, stable_key), setting active=true and recording the
// fetch run that observed it. Must run within the caller's transaction.
func UpsertChannel(ctx context.Context, tx *sql.Tx, newID string, in UpsertChannelInput) error {
	now := nowRFC3339()

	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM provider_channel WHERE provider_id = ? AND stable_key = ?`,
		in.ProviderID, in.StableKey,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := tx.ExecContext(ctx, `
			INSERT INTO provider_channel (
				id, provider_id, stable_key, display_name, tvg_id, tvg_name, tvg_logo,
				stream_url, group_raw_name, group_id, content_type, first_seen, last_seen,
				active, last_fetch_run_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			newID, in.ProviderID, in.StableKey, in.DisplayName, nullable(in.TvgID),
			nullable(in.TvgName), nullable(in.TvgLogo), in.StreamURL, in.GroupRawName,
			nullable(in.GroupID), in.ContentType, now, now, in.FetchRunID,
		)
		if err != nil {
			return fmt.Errorf("catalog: insert channel %q: %w", in.StableKey, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("catalog: lookup channel %q: %w", in.StableKey, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE provider_channel SET
			display_name = ?, tvg_id = ?, tvg_name = ?, tvg_logo = ?, stream_url = ?,
			group_raw_name = ?, group_id = ?, content_type = ?, last_seen = ?, active = 1,
			last_fetch_run_id = ?
		WHERE id = ?`,
		in.DisplayName, nullable(in.TvgID), nullable(in.TvgName), nullable(in.TvgLogo),
		in.StreamURL, in.GroupRawName, nullable(in.GroupID), in.ContentType, now,
		in.FetchRunID, existingID,
	); err != nil {
		return fmt.Errorf("catalog: update channel %q: %w", in.StableKey, err)
	}
	return nil
}

// DeactivateChannelsNotIn sets active=false on every ProviderChannel of
// providerID whose stable key was not observed in the current fetch.
func DeactivateChannelsNotIn(ctx context.Context, tx *sql.Tx, providerID string, seenStableKeys []string) error {
	seen := make(map[string]bool, len(seenStableKeys))
	for _, k := range seenStableKeys {
		seen[k] = true
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, stable_key FROM provider_channel WHERE provider_id = ? AND active = 1`, providerID)
	if err != nil {
		return fmt.Errorf("catalog: list active channels: %w", err)
	}

	var toDeactivate []string
	for rows.Next() {
		var id string
		var stableKey sql.NullString
		if err := rows.Scan(&id, &stableKey); err != nil {
			rows.Close()
			return fmt.Errorf("catalog: scan channel: %w", err)
		}
		if !seen[stableKey.String] {
			toDeactivate = append(toDeactivate, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, id := range toDeactivate {
		if _, err := tx.ExecContext(ctx,
			`UPDATE provider_channel SET active = 0 WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("catalog: deactivate channel %q: %w", id, err)
		}
	}
	return nil
}

// ActiveChannelsForBuild returns the ProviderChannels eligible for snapshot
// assembly: active, and either live, or vod/series gated by the provider's
// include flags.
func (s *Store) ActiveChannelsForBuild(ctx context.Context, providerID string, includeVOD, includeSeries bool) ([]*ProviderChannel, error) {
	query := `
		SELECT id, provider_id, stable_key, display_name, tvg_id, tvg_name, tvg_logo,
			stream_url, group_raw_name, group_id, content_type, first_seen, last_seen,
			active, last_fetch_run_id
		FROM provider_channel
		WHERE provider_id = ? AND active = 1
		AND (
			content_type = 'live'
			OR (content_type = 'vod' AND ? = 1)
			OR (content_type = 'series' AND ? = 1)
		)
		ORDER BY display_name, stream_url`

	rows, err := s.db.QueryContext(ctx, query, providerID, boolToInt(includeVOD), boolToInt(includeSeries))
	if err != nil {
		return nil, fmt.Errorf("catalog: list channels for build: %w", err)
	}
	defer rows.Close()

	var out []*ProviderChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListChannelsByGroup returns the active channels of a given provider_group.
func (s *Store) ListChannelsByGroup(ctx context.Context, groupID string) ([]*ProviderChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, stable_key, display_name, tvg_id, tvg_name, tvg_logo,
			stream_url, group_raw_name, group_id, content_type, first_seen, last_seen,
			active, last_fetch_run_id
		FROM provider_channel WHERE group_id = ? AND active = 1 ORDER BY display_name, stream_url`, groupID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list channels by group: %w", err)
	}
	defer rows.Close()

	var out []*ProviderChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChannel fetches one ProviderChannel by id.
func (s *Store) GetChannel(ctx context.Context, id string) (*ProviderChannel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, stable_key, display_name, tvg_id, tvg_name, tvg_logo,
			stream_url, group_raw_name, group_id, content_type, first_seen, last_seen,
			active, last_fetch_run_id
		FROM provider_channel WHERE id = ?`, id)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func scanChannel(row rowScanner) (*ProviderChannel, error) {
	var c ProviderChannel
	var stableKey, tvgID, tvgName, tvgLogo, groupID, lastFetchRunID sql.NullString
	var firstSeen, lastSeen string
	var active int

	if err := row.Scan(
		&c.ID, &c.ProviderID, &stableKey, &c.DisplayName, &tvgID, &tvgName, &tvgLogo,
		&c.StreamURL, &c.GroupRawName, &groupID, &c.ContentType, &firstSeen, &lastSeen,
		&active, &lastFetchRunID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan channel: %w", err)
	}

	c.StableKey = stableKey.String
	c.TvgID = tvgID.String
	c.TvgName = tvgName.String
	c.TvgLogo = tvgLogo.String
	c.GroupID = groupID.String
	c.LastFetchRunID = lastFetchRunID.String
	c.Active = active != 0

	var err error
	if c.FirstSeen, err = parseTime(firstSeen); err != nil {
		return nil, err
	}
	if c.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	return &c, nil
}
