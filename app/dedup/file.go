package dedup

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/lysyi3m/dino-relay/app/state"
)

const fileVersion = 1

type sentFile struct {
	Version    int       `json:"version"`
	SentItems  []string  `json:"sent_items"`
	LastUpdate time.Time `json:"last_update"`
}

// FileBackend keeps the delivered set in a JSON file, rewritten atomically on
// every Add. It also reads the older bare-array layout, whose entries are
// lower-cased titles; those load as title-only IDs.
type FileBackend struct {
	mu   sync.Mutex
	path string
	ids  []string
	seen map[string]struct{}
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{
		path: path,
		seen: make(map[string]struct{}),
	}
}

func (b *FileBackend) Name() string {
	return "file"
}

func (b *FileBackend) Load() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	ids, err := decodeSentFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, err)
	}

	b.ids = b.ids[:0]
	b.seen = make(map[string]struct{}, len(ids))
	b.merge(ids)

	return append([]string(nil), b.ids...), nil
}

func decodeSentFile(data []byte) ([]string, error) {
	var legacy []string
	if err := json.Unmarshal(data, &legacy); err == nil {
		ids := make([]string, 0, len(legacy))
		for _, title := range legacy {
			ids = append(ids, ItemID(title, ""))
		}
		return ids, nil
	}

	var file sentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Version > fileVersion {
		return nil, fmt.Errorf("unsupported sent items version %d", file.Version)
	}
	return file.SentItems, nil
}

func (b *FileBackend) merge(ids []string) {
	for _, id := range ids {
		if _, ok := b.seen[id]; ok {
			continue
		}
		b.seen[id] = struct{}{}
		b.ids = append(b.ids, id)
	}
}

func (b *FileBackend) Add(ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.merge(ids)
	return b.write()
}

func (b *FileBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ids = nil
	b.seen = make(map[string]struct{})
	return b.write()
}

func (b *FileBackend) write() error {
	ids := b.ids
	if ids == nil {
		ids = []string{}
	}
	return state.WriteJSON(b.path, sentFile{
		Version:    fileVersion,
		SentItems:  ids,
		LastUpdate: time.Now().UTC(),
	})
}

func (b *FileBackend) Close() error {
	return nil
}
