package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StartFetchRun inserts a new FetchRun in the running state.
func (s *Store) StartFetchRun(ctx context.Context, id, providerID string, runType FetchRunType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_run (id, provider_id, run_type, started_at, status)
		VALUES (?, ?, ?, ?, 'running')`,
		id, providerID, string(runType), nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("catalog: start fetch run: %w", err)
	}
	return nil
}

// FinishFetchRun transitions a FetchRun to ok or fail, recording its final
// counters. Callers pass a context that survives cancellation of the run
// itself, so a canceled refresh still persists as fail rather than being
// lost entirely.
func (s *Store) FinishFetchRun(ctx context.Context, id string, status FetchRunStatus, bytesFetched int64, channelCountSeen int, errorSummary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE fetch_run SET finished_at = ?, status = ?, bytes_fetched = ?, channel_count_seen = ?, error_summary = ?
		WHERE id = ?`,
		nowRFC3339(), string(status), bytesFetched, channelCountSeen, nullable(errorSummary), id,
	)
	if err != nil {
		return fmt.Errorf("catalog: finish fetch run: %w", err)
	}
	return nil
}

// GetFetchRun fetches one FetchRun by id.
func (s *Store) GetFetchRun(ctx context.Context, id string) (*FetchRun, error) {
	row := s.db.QueryRowContext(ctx, fetchRunSelectColumns+` FROM fetch_run WHERE id = ?`, id)
	fr, err := scanFetchRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return fr, err
}

// LatestFetchRun returns the most recently started FetchRun for a provider.
func (s *Store) LatestFetchRun(ctx context.Context, providerID string) (*FetchRun, error) {
	row := s.db.QueryRowContext(ctx, fetchRunSelectColumns+
		` FROM fetch_run WHERE provider_id = ? ORDER BY started_at DESC LIMIT 1`, providerID)
	fr, err := scanFetchRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return fr, err
}

const fetchRunSelectColumns = `
	SELECT id, provider_id, run_type, started_at, finished_at, status, bytes_fetched,
		channel_count_seen, error_summary`

func scanFetchRun(row rowScanner) (*FetchRun, error) {
	var fr FetchRun
	var runType, status string
	var startedAt string
	var finishedAt, errorSummary sql.NullString

	if err := row.Scan(
		&fr.ID, &fr.ProviderID, &runType, &startedAt, &finishedAt, &status,
		&fr.BytesFetched, &fr.ChannelCountSeen, &errorSummary,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan fetch run: %w", err)
	}

	fr.Type = FetchRunType(runType)
	fr.Status = FetchRunStatus(status)
	fr.ErrorSummary = errorSummary.String

	var err error
	if fr.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		if fr.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, err
		}
	}
	return &fr, nil
}
