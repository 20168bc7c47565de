package database

import (
	"time"
)

type Source struct {
	Name          string // Configuration source identifier derived from filename
	URL           string
	Title         string // Feed's own <title>, filled after the first successful fetch
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	LastError     string
	ItemCount     int // Entries seen on the last fetch
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Classification struct {
	ID             int64
	ItemID         string
	Source         string
	Title          string
	Link           string
	Decision       bool
	Confidence     float64
	Method         string
	KeywordScore   float64
	JudgeConsulted bool
	CreatedAt      time.Time
}

const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

type Delivery struct {
	ID                int64
	ItemID            string
	Source            string
	TitleOriginal     string
	TitleTranslated   string
	SummaryOriginal   string
	SummaryTranslated string
	Link              string
	PublishedAt       *time.Time
	Status            string // sent, failed
	Error             string
	CreatedAt         time.Time
}

type MethodCount struct {
	Method   string
	Decision bool
	Count    int
}
