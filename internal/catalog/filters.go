package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertPendingFilter creates a new ProfileGroupFilter in the pending state
// for a newly-seen group, per the Reconciler's filter-backfill step. Must
// run within the caller's transaction.
func InsertPendingFilter(ctx context.Context, tx *sql.Tx, id, profileID, groupID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profile_group_filter (id, profile_id, provider_group_id, decision, channel_mode, track_new_channels)
		VALUES (?, ?, ?, 'pending', 'all', 0)`,
		id, profileID, groupID,
	)
	if err != nil {
		return fmt.Errorf("catalog: insert pending filter: %w", err)
	}
	return nil
}

// GetGroupFilter fetches the filter decision for (profileID, groupID),
// within tx. Callers use it during channel upsert to decide whether a
// group's entries should be skipped.
func GetGroupFilter(ctx context.Context, tx *sql.Tx, profileID, groupID string) (*ProfileGroupFilter, error) {
	row := tx.QueryRowContext(ctx, filterSelectColumns+`
		FROM profile_group_filter WHERE profile_id = ? AND provider_group_id = ?`, profileID, groupID)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// ListFiltersForProfile returns every ProfileGroupFilter under a profile.
func (s *Store) ListFiltersForProfile(ctx context.Context, profileID string) ([]*ProfileGroupFilter, error) {
	rows, err := s.db.QueryContext(ctx, filterSelectColumns+
		` FROM profile_group_filter WHERE profile_id = ?`, profileID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list filters: %w", err)
	}
	defer rows.Close()

	var out []*ProfileGroupFilter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// IncludedGroupFilters returns the filters under profileID with
// decision=include, the set the Snapshot Builder emits live channels for.
func (s *Store) IncludedGroupFilters(ctx context.Context, profileID string) ([]*ProfileGroupFilter, error) {
	rows, err := s.db.QueryContext(ctx, filterSelectColumns+
		` FROM profile_group_filter WHERE profile_id = ? AND decision = 'include'`, profileID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list included filters: %w", err)
	}
	defer rows.Close()

	var out []*ProfileGroupFilter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateFilterDecision is the administrative write the external UI uses to
// flip a group's decision (pending/include/exclude), channel mode, and
// output naming.
func (s *Store) UpdateFilterDecision(ctx context.Context, f *ProfileGroupFilter) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profile_group_filter SET
			decision = ?, channel_mode = ?, output_name = ?, auto_num_start = ?, auto_num_end = ?,
			track_new_channels = ?
		WHERE id = ?`,
		string(f.Decision), string(f.ChannelMode), nullable(f.OutputName),
		nullableInt(f.AutoNumStart), nullableInt(f.AutoNumEnd), boolToInt(f.TrackNewChannels), f.ID,
	)
	if err != nil {
		return fmt.Errorf("catalog: update filter: %w", err)
	}
	return nil
}

// InsertChannelOverride creates a per-channel override under a select-mode
// filter, the administrative write that names which channels of a group are
// emitted and under what output group name / channel number.
func (s *Store) InsertChannelOverride(ctx context.Context, o *ProfileGroupChannelFilter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_group_channel_filter (id, parent_filter_id, provider_channel_id, output_group_name, channel_number)
		VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.ParentFilterID, o.ProviderChannelID, nullable(o.OutputGroupName), nullableInt(o.ChannelNumber),
	)
	if err != nil {
		return fmt.Errorf("catalog: insert channel override: %w", err)
	}
	return nil
}

// ListChannelOverrides returns the per-channel overrides under a select-mode
// filter.
func (s *Store) ListChannelOverrides(ctx context.Context, parentFilterID string) ([]*ProfileGroupChannelFilter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_filter_id, provider_channel_id, output_group_name, channel_number
		FROM profile_group_channel_filter WHERE parent_filter_id = ?`, parentFilterID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list channel overrides: %w", err)
	}
	defer rows.Close()

	var out []*ProfileGroupChannelFilter
	for rows.Next() {
		var o ProfileGroupChannelFilter
		var outputGroupName sql.NullString
		var channelNumber sql.NullInt64
		if err := rows.Scan(&o.ID, &o.ParentFilterID, &o.ProviderChannelID, &outputGroupName, &channelNumber); err != nil {
			return nil, fmt.Errorf("catalog: scan channel override: %w", err)
		}
		o.OutputGroupName = outputGroupName.String
		if channelNumber.Valid {
			n := int(channelNumber.Int64)
			o.ChannelNumber = &n
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

const filterSelectColumns = `
	SELECT id, profile_id, provider_group_id, decision, channel_mode, output_name,
		auto_num_start, auto_num_end, track_new_channels`

func scanFilter(row rowScanner) (*ProfileGroupFilter, error) {
	var f ProfileGroupFilter
	var decision, channelMode string
	var outputName sql.NullString
	var autoNumStart, autoNumEnd sql.NullInt64
	var trackNew int

	if err := row.Scan(
		&f.ID, &f.ProfileID, &f.ProviderGroupID, &decision, &channelMode, &outputName,
		&autoNumStart, &autoNumEnd, &trackNew,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan filter: %w", err)
	}

	f.Decision = FilterDecision(decision)
	f.ChannelMode = ChannelMode(channelMode)
	f.OutputName = outputName.String
	f.TrackNewChannels = trackNew != 0
	if autoNumStart.Valid {
		n := int(autoNumStart.Int64)
		f.AutoNumStart = &n
	}
	if autoNumEnd.Valid {
		n := int(autoNumEnd.Int64)
		f.AutoNumEnd = &n
	}
	return &f, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
