// Package budget caps the daily number (and monthly cost) of remote calls.
package budget

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/dino-relay/app/state"
)

const (
	stateVersion = 1
	dateLayout   = "2006-01-02"
)

var ErrBudgetExhausted = errors.New("daily call budget exhausted")

// Usage is the persisted counter layout.
type Usage struct {
	Version     int     `json:"version"`
	DailyCalls  int     `json:"daily_calls"`
	Date        string  `json:"date"`
	MonthlyCost float64 `json:"monthly_cost"`
}

type Counter struct {
	mu             sync.Mutex
	name           string
	path           string
	maxDaily       int
	maxMonthlyCost float64
	usage          Usage
	now            func() time.Time
}

// NewCounter loads the counter from path. A missing or unreadable file starts
// from zero. maxDaily <= 0 and maxMonthlyCost <= 0 mean unlimited.
func NewCounter(name, path string, maxDaily int, maxMonthlyCost float64) *Counter {
	c := &Counter{
		name:           name,
		path:           path,
		maxDaily:       maxDaily,
		maxMonthlyCost: maxMonthlyCost,
		now:            time.Now,
	}
	c.load()
	return c
}

func (c *Counter) load() {
	if c.path == "" {
		return
	}

	var usage Usage
	found, err := state.ReadJSON(c.path, &usage)
	if err != nil {
		slog.Warn("Usage counter unreadable, starting from zero", "counter", c.name, "path", c.path, "error", err)
		return
	}
	if !found {
		return
	}
	if _, err := time.Parse(dateLayout, usage.Date); err != nil {
		slog.Warn("Usage counter has invalid date, starting from zero", "counter", c.name, "date", usage.Date)
		return
	}
	c.usage = usage
}

// rollover resets counters when the date (calls) or month (cost) changed.
// Must be called with c.mu held.
func (c *Counter) rollover() {
	today := c.now().Format(dateLayout)
	if c.usage.Date == today {
		return
	}

	if len(c.usage.Date) < 7 || c.usage.Date[:7] != today[:7] {
		c.usage.MonthlyCost = 0
	}
	c.usage.DailyCalls = 0
	c.usage.Date = today
}

// Allow reports whether another call fits in today's budget.
func (c *Counter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()

	if c.maxDaily > 0 && c.usage.DailyCalls >= c.maxDaily {
		return false
	}
	if c.maxMonthlyCost > 0 && c.usage.MonthlyCost >= c.maxMonthlyCost {
		return false
	}
	return true
}

// Record counts one call with its estimated cost and persists the counter.
func (c *Counter) Record(cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	c.usage.DailyCalls++
	c.usage.MonthlyCost += cost

	if c.path == "" {
		return
	}
	c.usage.Version = stateVersion
	if err := state.WriteJSON(c.path, c.usage); err != nil {
		slog.Error("Failed to persist usage counter", "counter", c.name, "error", err)
	}
}

func (c *Counter) Snapshot() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	return c.usage
}

func (c *Counter) Name() string {
	return c.name
}
