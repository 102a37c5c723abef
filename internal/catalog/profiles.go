package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateProfile inserts a new profile.
func (s *Store) CreateProfile(ctx context.Context, p *Profile) error {
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (id, name, output_name, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OutputName, boolToInt(p.Enabled), now, now,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("catalog: profile %q: %w", p.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("catalog: create profile: %w", err)
	}
	return nil
}

// GetProfile fetches a profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, profileSelectColumns+` FROM profile WHERE id = ?`, id)
	return scanProfile(row)
}

// GetProfileByOutputName fetches a profile by its published output name
// (the path segment client endpoints resolve against).
func (s *Store) GetProfileByOutputName(ctx context.Context, outputName string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, profileSelectColumns+` FROM profile WHERE output_name = ?`, outputName)
	return scanProfile(row)
}

// ListProfiles returns all profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, profileSelectColumns+` FROM profile ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfileInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveProviderProfile returns the enabled profile with lowest priority
// associated with providerID — "the" profile the Snapshot Builder picks for
// the active provider.
func (s *Store) ActiveProviderProfile(ctx context.Context, providerID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.output_name, p.enabled, p.created_at, p.updated_at
		FROM profile p
		JOIN profile_provider pp ON pp.profile_id = p.id
		WHERE pp.provider_id = ? AND pp.enabled = 1 AND p.enabled = 1
		ORDER BY pp.priority ASC
		LIMIT 1`, providerID)
	return scanProfile(row)
}

// AssociateProvider upserts a ProfileProvider association.
func (s *Store) AssociateProvider(ctx context.Context, link ProfileProvider) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_provider (profile_id, provider_id, priority, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (profile_id, provider_id) DO UPDATE SET priority = excluded.priority, enabled = excluded.enabled`,
		link.ProfileID, link.ProviderID, link.Priority, boolToInt(link.Enabled),
	)
	if err != nil {
		return fmt.Errorf("catalog: associate provider: %w", err)
	}
	return nil
}

const profileSelectColumns = `SELECT id, name, output_name, enabled, created_at, updated_at`

func scanProfile(row rowScanner) (*Profile, error) {
	p, err := scanProfileInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanProfileInto(row rowScanner) (*Profile, error) {
	var p Profile
	var enabled int
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.OutputName, &enabled, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: scan profile: %w", err)
	}
	p.Enabled = enabled != 0
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
