package catalog

import (
	"context"
	"fmt"
)

// migrations is applied in order, once each, tracked in schema_migrations so
// Open can be called idempotently against an existing database file.
var migrations = []string{
	migration001,
}

const migration001 = `
CREATE TABLE IF NOT EXISTS provider (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	playlist_url    TEXT NOT NULL,
	guide_url       TEXT,
	headers_json    TEXT NOT NULL DEFAULT '{}',
	user_agent      TEXT,
	timeout_seconds INTEGER NOT NULL DEFAULT 30,
	enabled         INTEGER NOT NULL DEFAULT 1,
	is_active       INTEGER NOT NULL DEFAULT 0,
	include_vod     INTEGER NOT NULL DEFAULT 0,
	include_series  INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_provider_active
	ON provider (is_active)
	WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS profile (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	output_name TEXT NOT NULL UNIQUE,
	enabled     INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_provider (
	profile_id  TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
	provider_id TEXT NOT NULL REFERENCES provider(id) ON DELETE CASCADE,
	priority    INTEGER NOT NULL DEFAULT 0,
	enabled     INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (profile_id, provider_id)
);

CREATE TABLE IF NOT EXISTS provider_group (
	id           TEXT PRIMARY KEY,
	provider_id  TEXT NOT NULL REFERENCES provider(id) ON DELETE CASCADE,
	raw_name     TEXT NOT NULL,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	channel_count INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT 'live',
	UNIQUE (provider_id, raw_name)
);

CREATE TABLE IF NOT EXISTS provider_channel (
	id                 TEXT PRIMARY KEY,
	provider_id        TEXT NOT NULL REFERENCES provider(id) ON DELETE CASCADE,
	stable_key         TEXT,
	display_name       TEXT NOT NULL,
	tvg_id             TEXT,
	tvg_name           TEXT,
	tvg_logo           TEXT,
	stream_url         TEXT NOT NULL,
	group_raw_name     TEXT NOT NULL,
	group_id           TEXT REFERENCES provider_group(id) ON DELETE SET NULL,
	content_type       TEXT NOT NULL,
	first_seen         TEXT NOT NULL,
	last_seen          TEXT NOT NULL,
	active             INTEGER NOT NULL DEFAULT 1,
	last_fetch_run_id  TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_provider_channel_stable_key
	ON provider_channel (provider_id, stable_key)
	WHERE stable_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_provider_channel_provider_active
	ON provider_channel (provider_id, active);

CREATE TABLE IF NOT EXISTS profile_group_filter (
	id                  TEXT PRIMARY KEY,
	profile_id          TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
	provider_group_id   TEXT NOT NULL REFERENCES provider_group(id) ON DELETE CASCADE,
	decision            TEXT NOT NULL DEFAULT 'pending',
	channel_mode        TEXT NOT NULL DEFAULT 'all',
	output_name         TEXT,
	auto_num_start      INTEGER,
	auto_num_end        INTEGER,
	track_new_channels  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (profile_id, provider_group_id)
);

CREATE TABLE IF NOT EXISTS profile_group_channel_filter (
	id                  TEXT PRIMARY KEY,
	parent_filter_id    TEXT NOT NULL REFERENCES profile_group_filter(id) ON DELETE CASCADE,
	provider_channel_id TEXT NOT NULL REFERENCES provider_channel(id) ON DELETE CASCADE,
	output_group_name   TEXT,
	channel_number      INTEGER,
	UNIQUE (parent_filter_id, provider_channel_id)
);

CREATE TABLE IF NOT EXISTS fetch_run (
	id                 TEXT PRIMARY KEY,
	provider_id        TEXT NOT NULL REFERENCES provider(id) ON DELETE CASCADE,
	run_type           TEXT NOT NULL DEFAULT 'snapshot',
	started_at         TEXT NOT NULL,
	finished_at        TEXT,
	status             TEXT NOT NULL DEFAULT 'running',
	bytes_fetched      INTEGER NOT NULL DEFAULT 0,
	channel_count_seen INTEGER NOT NULL DEFAULT 0,
	error_summary      TEXT
);

CREATE INDEX IF NOT EXISTS idx_fetch_run_provider
	ON fetch_run (provider_id, started_at DESC);

CREATE TABLE IF NOT EXISTS snapshot (
	id                      TEXT PRIMARY KEY,
	profile_id              TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
	created_at              TEXT NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'staged',
	channel_index_path      TEXT NOT NULL,
	guide_path              TEXT NOT NULL,
	channel_count_published INTEGER NOT NULL DEFAULT 0,
	error_summary           TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshot_active
	ON snapshot (profile_id)
	WHERE status = 'active';

CREATE INDEX IF NOT EXISTS idx_snapshot_profile_created
	ON snapshot (profile_id, created_at DESC);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, ddl := range migrations {
		version := i + 1
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version,
		).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, nowRFC3339(),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}
