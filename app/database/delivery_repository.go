package database

import (
	"fmt"
	"time"
)

var _ DeliveryRepository = (*DeliveryRepo)(nil)

type DeliveryRepo struct {
	db *DB
}

func NewDeliveryRepository(db *DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

func (r *DeliveryRepo) RecordDelivery(d Delivery) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	var publishedAt *time.Time
	if d.PublishedAt != nil {
		utc := d.PublishedAt.UTC()
		publishedAt = &utc
	}

	_, err := r.db.Exec(`
		INSERT INTO deliveries (
			item_id, source, title_original, title_translated, summary_original,
			summary_translated, link, published_at, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ItemID, d.Source, d.TitleOriginal, d.TitleTranslated, d.SummaryOriginal,
		d.SummaryTranslated, d.Link, publishedAt, d.Status, d.Error, d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	return nil
}

// GetRecentDeliveries returns successfully sent items, newest first.
func (r *DeliveryRepo) GetRecentDeliveries(limit int) ([]Delivery, error) {
	rows, err := r.db.Query(`
		SELECT id, item_id, source, title_original, title_translated, summary_original,
		       summary_translated, link, published_at, status, error, created_at
		FROM deliveries
		WHERE status = ?
		ORDER BY id DESC
		LIMIT ?
	`, DeliveryStatusSent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		err := rows.Scan(
			&d.ID, &d.ItemID, &d.Source, &d.TitleOriginal, &d.TitleTranslated, &d.SummaryOriginal,
			&d.SummaryTranslated, &d.Link, &d.PublishedAt, &d.Status, &d.Error, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery rows: %w", err)
	}

	return deliveries, nil
}

func (r *DeliveryRepo) GetDeliveryStats() (int, int, error) {
	var sent, failed int
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM deliveries
	`, DeliveryStatusSent, DeliveryStatusFailed).Scan(&sent, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get delivery stats: %w", err)
	}

	return sent, failed, nil
}
