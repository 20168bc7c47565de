package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultFeedItems        = 50
	DefaultRecentClassified = 20
)

func NewHandler(deps HandlerDeps) *Handler {
	if deps.FeedItems <= 0 {
		deps.FeedItems = DefaultFeedItems
	}
	return &Handler{deps: deps}
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := http.StatusOK
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.deps.ConfigCache != nil {
		health["loaded_sources"] = h.deps.ConfigCache.GetConfigCount()
	}

	if h.deps.SourceRepo != nil {
		if count, err := h.deps.SourceRepo.GetSourceCount(); err == nil {
			health["sources"] = count
		}
	}

	if h.deps.Sent != nil {
		health["sent_items"] = h.deps.Sent.Len()
	}

	if h.deps.DedupHealth != nil {
		dedupHealth := h.deps.DedupHealth.Health()
		health["dedup"] = dedupHealth
		if dedupHealth["status"] != "healthy" {
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	if len(h.deps.Breakers) > 0 {
		breakers := make(map[string]string, len(h.deps.Breakers))
		for name, breaker := range h.deps.Breakers {
			breakers[name] = breaker.State()
		}
		health["breakers"] = breakers
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if h.deps.SourceRepo != nil {
		sources, err := h.deps.SourceRepo.GetSources()
		if err != nil {
			slog.Error("Database error", "operation", "get_sources", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		failing := 0
		for _, source := range sources {
			if source.LastError != "" {
				failing++
			}
		}
		stats["sources"] = gin.H{"total": len(sources), "failing": failing}
	}

	if h.deps.ClassRepo != nil {
		counts, err := h.deps.ClassRepo.GetMethodCounts(time.Now().Add(-24 * time.Hour))
		if err != nil {
			slog.Error("Database error", "operation", "get_method_counts", "error", err)
		} else {
			methods := map[string]map[string]int{}
			for _, mc := range counts {
				if methods[mc.Method] == nil {
					methods[mc.Method] = map[string]int{"relevant": 0, "irrelevant": 0}
				}
				if mc.Decision {
					methods[mc.Method]["relevant"] += mc.Count
				} else {
					methods[mc.Method]["irrelevant"] += mc.Count
				}
			}
			stats["classifications_24h"] = methods
		}
	}

	if h.deps.DeliveryRepo != nil {
		if sent, failed, err := h.deps.DeliveryRepo.GetDeliveryStats(); err == nil {
			stats["deliveries"] = gin.H{"sent": sent, "failed": failed}
		} else {
			slog.Error("Database error", "operation", "get_delivery_stats", "error", err)
		}
	}

	if len(h.deps.Counters) > 0 {
		budgets := make(map[string]interface{}, len(h.deps.Counters))
		for _, counter := range h.deps.Counters {
			budgets[counter.Name()] = counter.Snapshot()
		}
		stats["budgets"] = budgets
	}

	if h.deps.Sent != nil {
		stats["sent_items"] = h.deps.Sent.Len()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetFeed(c *gin.Context) {
	if h.deps.DeliveryRepo == nil || h.deps.Generator == nil {
		c.Status(http.StatusNotFound)
		return
	}

	deliveries, err := h.deps.DeliveryRepo.GetRecentDeliveries(h.deps.FeedItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_deliveries", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.deps.Generator.Run(deliveries)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(deliveries)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.deps.ConfigCache.GetEnabledConfigsSorted()

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"display_name":     sourceConfig.SourceName(),
			"url":              sourceConfig.URL,
			"max_items":        sourceConfig.Settings.MaxItems,
			"freshness_hours":  sourceConfig.Settings.FreshnessHours,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(sourceConfig.Filters),
		}

		if h.deps.SourceRepo != nil {
			if source, err := h.deps.SourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
				sourceInfo["title"] = source.Title
				sourceInfo["last_fetched_at"] = source.LastFetchedAt
				sourceInfo["next_fetch_at"] = source.NextFetchAt
				sourceInfo["last_error"] = source.LastError
				sourceInfo["item_count"] = source.ItemCount
			}
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIRecentClassifications(c *gin.Context) {
	limit := DefaultRecentClassified
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	classifications, err := h.deps.ClassRepo.GetRecentClassifications(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_classifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"classifications": classifications,
		"total":           len(classifications),
	})
}

// APIClassify runs the cascade on a posted item without recording or
// delivering anything. The remote judge is still consulted when the cascade
// reaches it.
func (h *Handler) APIClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result := h.deps.Classifier.Classify(c.Request.Context(), req.Title, req.Summary)
	score := h.deps.Classifier.Score(req.Title, req.Summary)

	c.JSON(http.StatusOK, gin.H{
		"result":    result,
		"prefilter": h.deps.Classifier.Prefilter(req.Title, req.Summary).String(),
		"keywords": gin.H{
			"score":         score.Score,
			"confidence":    score.Confidence,
			"decision":      score.Decision,
			"include_score": score.IncludeScore,
			"exclude_score": score.ExcludeScore,
			"matched":       score.Matched,
		},
	})
}

func (h *Handler) APIResetSent(c *gin.Context) {
	before := h.deps.Sent.Len()
	if err := h.deps.Sent.Reset(); err != nil {
		slog.Error("Failed to reset sent items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reset sent items",
			"details": err.Error(),
		})
		return
	}

	slog.Info("Sent items reset via API", "cleared", before)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cleared": before,
	})
}
