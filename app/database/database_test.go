package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestSourceRepo(t *testing.T) {
	repo := NewSourceRepository(openTestDB(t))

	if err := repo.UpsertSource("nature", "https://example.com/nature.rss"); err != nil {
		t.Fatalf("Failed to upsert source: %v", err)
	}
	if err := repo.UpsertSource("nature", "https://example.com/nature2.rss"); err != nil {
		t.Fatalf("Failed to update source: %v", err)
	}

	source, err := repo.GetSource("nature")
	if err != nil {
		t.Fatalf("Failed to get source: %v", err)
	}
	if source == nil {
		t.Fatal("Expected source to exist")
	}
	if source.URL != "https://example.com/nature2.rss" {
		t.Errorf("Expected updated URL, got %s", source.URL)
	}
	if source.LastFetchedAt != nil {
		t.Error("Expected no fetch time before first fetch")
	}

	next := time.Now().Add(time.Hour)
	if err := repo.UpdateFetchResult("nature", "Nature News", 10, nil, next); err != nil {
		t.Fatalf("Failed to update fetch result: %v", err)
	}
	if err := repo.UpdateFetchResult("nature", "", 0, errors.New("timeout"), next); err != nil {
		t.Fatalf("Failed to update fetch result: %v", err)
	}

	source, _ = repo.GetSource("nature")
	if source.Title != "Nature News" {
		t.Errorf("Expected title kept after failed fetch, got %q", source.Title)
	}
	if source.LastError != "timeout" {
		t.Errorf("Expected last error 'timeout', got %q", source.LastError)
	}
	if source.LastFetchedAt == nil || source.NextFetchAt == nil {
		t.Error("Expected fetch times to be set")
	}

	if err := repo.UpdateFetchResult("missing", "", 0, nil, next); err == nil {
		t.Error("Expected error for unknown source")
	}

	missing, err := repo.GetSource("missing")
	if err != nil || missing != nil {
		t.Errorf("Expected nil source without error, got %v, %v", missing, err)
	}

	count, _ := repo.GetSourceCount()
	if count != 1 {
		t.Errorf("Expected 1 source, got %d", count)
	}
}

func TestClassificationRepo(t *testing.T) {
	repo := NewClassificationRepository(openTestDB(t))

	records := []Classification{
		{ItemID: "a", Source: "nature", Title: "T-rex", Decision: true, Confidence: 0.95, Method: "keyword_only", KeywordScore: 12},
		{ItemID: "b", Source: "nature", Title: "Bones", Decision: true, Confidence: 0.8, Method: "remote_judge", JudgeConsulted: true},
		{ItemID: "c", Source: "nature", Title: "NASA", Decision: false, Confidence: 0.99, Method: "prefilter"},
		{ItemID: "d", Source: "nature", Title: "Old", Method: "prefilter", CreatedAt: time.Now().Add(-48 * time.Hour)},
	}
	for _, record := range records {
		if err := repo.RecordClassification(record); err != nil {
			t.Fatalf("Failed to record classification: %v", err)
		}
	}

	counts, err := repo.GetMethodCounts(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Failed to get method counts: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("Expected 3 method/decision groups, got %d: %+v", len(counts), counts)
	}

	recent, err := repo.GetRecentClassifications(2)
	if err != nil {
		t.Fatalf("Failed to get recent classifications: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 classifications, got %d", len(recent))
	}
	if recent[0].ItemID != "d" {
		t.Errorf("Expected newest insert first, got %s", recent[0].ItemID)
	}
	if recent[1].ItemID != "c" || recent[1].Decision || recent[1].Confidence != 0.99 {
		t.Errorf("Expected classification c round-tripped, got %+v", recent[1])
	}
}

func TestDeliveryRepo(t *testing.T) {
	repo := NewDeliveryRepository(openTestDB(t))

	published := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	deliveries := []Delivery{
		{ItemID: "a", Source: "nature", TitleOriginal: "First", Status: DeliveryStatusSent, PublishedAt: &published},
		{ItemID: "b", Source: "nature", TitleOriginal: "Second", Status: DeliveryStatusFailed, Error: "telegram down"},
		{ItemID: "c", Source: "nature", TitleOriginal: "Third", TitleTranslated: "세번째", Status: DeliveryStatusSent},
	}
	for _, d := range deliveries {
		if err := repo.RecordDelivery(d); err != nil {
			t.Fatalf("Failed to record delivery: %v", err)
		}
	}

	sent, failed, err := repo.GetDeliveryStats()
	if err != nil {
		t.Fatalf("Failed to get delivery stats: %v", err)
	}
	if sent != 2 || failed != 1 {
		t.Errorf("Expected 2 sent and 1 failed, got %d and %d", sent, failed)
	}

	recent, err := repo.GetRecentDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to get recent deliveries: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 sent deliveries, got %d", len(recent))
	}
	if recent[0].ItemID != "c" {
		t.Errorf("Expected newest delivery first, got %s", recent[0].ItemID)
	}
	if recent[1].PublishedAt == nil || !recent[1].PublishedAt.Equal(published) {
		t.Errorf("Expected published time %v, got %v", published, recent[1].PublishedAt)
	}
}

func TestSentItemRepo(t *testing.T) {
	repo := NewSentItemRepository(openTestDB(t))

	if err := repo.AddSentItems([]string{"a", "b"}); err != nil {
		t.Fatalf("Failed to add sent items: %v", err)
	}
	if err := repo.AddSentItems([]string{"b", "c"}); err != nil {
		t.Fatalf("Failed to add sent items: %v", err)
	}

	ids, err := repo.GetSentItems()
	if err != nil {
		t.Fatalf("Failed to get sent items: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("Expected 3 sent items, got %d", len(ids))
	}

	if err := repo.ClearSentItems(); err != nil {
		t.Fatalf("Failed to clear sent items: %v", err)
	}
	ids, _ = repo.GetSentItems()
	if len(ids) != 0 {
		t.Errorf("Expected no sent items after clear, got %d", len(ids))
	}
}
