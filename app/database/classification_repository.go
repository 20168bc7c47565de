package database

import (
	"fmt"
	"time"
)

var _ ClassificationRepository = (*ClassificationRepo)(nil)

// ClassificationRepo keeps an audit trail of every cascade decision.
type ClassificationRepo struct {
	db *DB
}

func NewClassificationRepository(db *DB) *ClassificationRepo {
	return &ClassificationRepo{db: db}
}

func (r *ClassificationRepo) RecordClassification(c Classification) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO classifications (
			item_id, source, title, link, decision, confidence, method,
			keyword_score, judge_consulted, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ItemID, c.Source, c.Title, c.Link, c.Decision, c.Confidence, c.Method,
		c.KeywordScore, c.JudgeConsulted, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}

	return nil
}

func (r *ClassificationRepo) GetMethodCounts(since time.Time) ([]MethodCount, error) {
	rows, err := r.db.Query(`
		SELECT method, decision, COUNT(*)
		FROM classifications
		WHERE created_at >= ?
		GROUP BY method, decision
		ORDER BY method, decision
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get method counts: %w", err)
	}
	defer rows.Close()

	var counts []MethodCount
	for rows.Next() {
		var mc MethodCount
		if err := rows.Scan(&mc.Method, &mc.Decision, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan method count: %w", err)
		}
		counts = append(counts, mc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating method counts: %w", err)
	}

	return counts, nil
}

func (r *ClassificationRepo) GetRecentClassifications(limit int) ([]Classification, error) {
	rows, err := r.db.Query(`
		SELECT id, item_id, source, title, link, decision, confidence, method,
		       keyword_score, judge_consulted, created_at
		FROM classifications
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent classifications: %w", err)
	}
	defer rows.Close()

	var classifications []Classification
	for rows.Next() {
		var c Classification
		err := rows.Scan(
			&c.ID, &c.ItemID, &c.Source, &c.Title, &c.Link, &c.Decision, &c.Confidence,
			&c.Method, &c.KeywordScore, &c.JudgeConsulted, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification row: %w", err)
		}
		classifications = append(classifications, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classification rows: %w", err)
	}

	return classifications, nil
}
