package dedup

import (
	"github.com/lysyi3m/dino-relay/app/database"
)

// SQLiteBackend stores the delivered set in the history database.
type SQLiteBackend struct {
	repo database.SentItemRepository
}

func NewSQLiteBackend(repo database.SentItemRepository) *SQLiteBackend {
	return &SQLiteBackend{repo: repo}
}

func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

func (b *SQLiteBackend) Load() ([]string, error) {
	return b.repo.GetSentItems()
}

func (b *SQLiteBackend) Add(ids []string) error {
	return b.repo.AddSentItems(ids)
}

func (b *SQLiteBackend) Clear() error {
	return b.repo.ClearSentItems()
}

// Close is a no-op; the database handle is owned by the caller.
func (b *SQLiteBackend) Close() error {
	return nil
}
