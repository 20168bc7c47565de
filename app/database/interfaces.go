package database

import (
	"time"
)

type SourceRepository interface {
	GetSource(name string) (*Source, error)
	GetSources() ([]Source, error)
	GetSourceCount() (int, error)

	UpsertSource(name, url string) error
	UpdateFetchResult(name, title string, itemCount int, fetchErr error, nextFetch time.Time) error
}

type ClassificationRepository interface {
	RecordClassification(c Classification) error
	GetMethodCounts(since time.Time) ([]MethodCount, error)
	GetRecentClassifications(limit int) ([]Classification, error)
}

type DeliveryRepository interface {
	RecordDelivery(d Delivery) error
	GetRecentDeliveries(limit int) ([]Delivery, error)
	GetDeliveryStats() (sent int, failed int, err error)
}

type SentItemRepository interface {
	GetSentItems() ([]string, error)
	AddSentItems(ids []string) error
	ClearSentItems() error
}
