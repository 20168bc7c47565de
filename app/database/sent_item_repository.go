package database

import (
	"fmt"
	"time"
)

var _ SentItemRepository = (*SentItemRepo)(nil)

type SentItemRepo struct {
	db *DB
}

func NewSentItemRepository(db *DB) *SentItemRepo {
	return &SentItemRepo{db: db}
}

func (r *SentItemRepo) GetSentItems() ([]string, error) {
	rows, err := r.db.Query("SELECT item_id FROM sent_items ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to get sent items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sent item: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sent items: %w", err)
	}

	return ids, nil
}

// AddSentItems inserts ids in one transaction; already present ids are ignored.
func (r *SentItemRepo) AddSentItems(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO sent_items (item_id, created_at) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := stmt.Exec(id, now); err != nil {
			return fmt.Errorf("failed to insert sent item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sent items: %w", err)
	}

	return nil
}

func (r *SentItemRepo) ClearSentItems() error {
	if _, err := r.db.Exec("DELETE FROM sent_items"); err != nil {
		return fmt.Errorf("failed to clear sent items: %w", err)
	}
	return nil
}
