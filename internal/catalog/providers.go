package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateProvider inserts a new provider. Name uniqueness is enforced by the
// schema; a duplicate name surfaces as ErrConflict.
func (s *Store) CreateProvider(ctx context.Context, p *Provider) error {
	headers, err := json.Marshal(p.Headers)
	if err != nil {
		return fmt.Errorf("catalog: marshal headers: %w", err)
	}
	now := nowRFC3339()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provider (id, name, playlist_url, guide_url, headers_json, user_agent,
			timeout_seconds, enabled, is_active, include_vod, include_series, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.PlaylistURL, nullable(p.GuideURL), headers, nullable(p.UserAgent),
		p.TimeoutSeconds, boolToInt(p.Enabled), boolToInt(p.IsActive),
		boolToInt(p.IncludeVOD), boolToInt(p.IncludeSeries), now, now,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("catalog: provider %q: %w", p.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("catalog: create provider: %w", err)
	}
	return nil
}

// GetProvider fetches a provider by id.
func (s *Store) GetProvider(ctx context.Context, id string) (*Provider, error) {
	row := s.db.QueryRowContext(ctx, providerSelectColumns+` FROM provider WHERE id = ?`, id)
	return scanProvider(row)
}

// ActiveProvider returns the unique enabled provider with is_active = true,
// or ErrNotFound if none is active.
func (s *Store) ActiveProvider(ctx context.Context) (*Provider, error) {
	row := s.db.QueryRowContext(ctx,
		providerSelectColumns+` FROM provider WHERE is_active = 1 AND enabled = 1`)
	return scanProvider(row)
}

// ListProviders returns all providers ordered by name.
func (s *Store) ListProviders(ctx context.Context) ([]*Provider, error) {
	rows, err := s.db.QueryContext(ctx, providerSelectColumns+` FROM provider ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list providers: %w", err)
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProviderRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetActiveProvider clears is_active on every provider, then sets it on id.
// This two-step write is required because the partial unique index on
// is_active cannot be satisfied by a single UPDATE that would otherwise
// momentarily produce two active rows within the same statement.
func (s *Store) SetActiveProvider(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE provider SET is_active = 0, updated_at = ? WHERE is_active = 1`, nowRFC3339()); err != nil {
			return fmt.Errorf("catalog: clear active provider: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE provider SET is_active = 1, updated_at = ? WHERE id = ?`, nowRFC3339(), id)
		if err != nil {
			return fmt.Errorf("catalog: set active provider: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog: provider %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

const providerSelectColumns = `
	SELECT id, name, playlist_url, guide_url, headers_json, user_agent, timeout_seconds,
		enabled, is_active, include_vod, include_series, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	p, err := scanProviderInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanProviderRows(rows *sql.Rows) (*Provider, error) {
	return scanProviderInto(rows)
}

func scanProviderInto(row rowScanner) (*Provider, error) {
	var p Provider
	var guideURL, userAgent sql.NullString
	var headersJSON string
	var createdAt, updatedAt string
	var enabled, isActive, includeVOD, includeSeries int

	if err := row.Scan(
		&p.ID, &p.Name, &p.PlaylistURL, &guideURL, &headersJSON, &userAgent, &p.TimeoutSeconds,
		&enabled, &isActive, &includeVOD, &includeSeries, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan provider: %w", err)
	}

	p.GuideURL = guideURL.String
	p.UserAgent = userAgent.String
	p.Enabled = enabled != 0
	p.IsActive = isActive != 0
	p.IncludeVOD = includeVOD != 0
	p.IncludeSeries = includeSeries != 0

	if err := json.Unmarshal([]byte(headersJSON), &p.Headers); err != nil {
		return nil, fmt.Errorf("catalog: decode provider headers: %w", err)
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("catalog: parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("catalog: parse updated_at: %w", err)
	}
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
