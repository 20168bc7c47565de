package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceRepo)(nil)

type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

func (r *SourceRepo) UpsertSource(name, url string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO sources (name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`, name, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateFetchResult records the outcome of one fetch. A nil fetchErr clears
// the previous error.
func (r *SourceRepo) UpdateFetchResult(name, title string, itemCount int, fetchErr error, nextFetch time.Time) error {
	now := time.Now().UTC()

	errorText := ""
	if fetchErr != nil {
		errorText = fetchErr.Error()
	}

	result, err := r.db.Exec(`
		UPDATE sources
		SET title = CASE WHEN ? = '' THEN title ELSE ? END,
		    item_count = ?,
		    last_error = ?,
		    last_fetched_at = ?,
		    next_fetch_at = ?,
		    updated_at = ?
		WHERE name = ?
	`, title, title, itemCount, errorText, now, nextFetch.UTC(), now, name)
	if err != nil {
		return fmt.Errorf("failed to update fetch result: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("source %q not found", name)
	}

	return nil
}

func (r *SourceRepo) GetSource(name string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT name, url, title, last_fetched_at, next_fetch_at, last_error, item_count, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, name).Scan(
		&source.Name, &source.URL, &source.Title, &source.LastFetchedAt, &source.NextFetchAt,
		&source.LastError, &source.ItemCount, &source.CreatedAt, &source.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

func (r *SourceRepo) GetSources() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT name, url, title, last_fetched_at, next_fetch_at, last_error, item_count, created_at, updated_at
		FROM sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		err := rows.Scan(
			&source.Name, &source.URL, &source.Title, &source.LastFetchedAt, &source.NextFetchAt,
			&source.LastError, &source.ItemCount, &source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
