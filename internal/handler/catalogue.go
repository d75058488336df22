package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// MetricInfo describes one registered metric.
type MetricInfo struct {
	ID            model.MetricID `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	DefaultWeight float64        `json:"default_weight"`
}

// FilterInfo describes one search filter.
type FilterInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

var filterCatalogue = []FilterInfo{
	{"subscriber_min", "Min Subscribers", "number", "Minimum subscriber count"},
	{"subscriber_max", "Max Subscribers", "number", "Maximum subscriber count"},
	{"avg_video_length_min", "Min Avg Video Length", "number", "Minimum average video length in seconds"},
	{"growth_rate_min", "Min Growth Rate", "number", "Minimum growth rate percentage"},
	{"uploads_last_90_days_min", "Min Recent Uploads", "number", "Minimum videos in last 90 days"},
	{"topic_relevance_min", "Min Topic Relevance", "number", "Minimum topic match score (0-1)"},
}

// CatalogueHandler lists the metrics and filters a search may use.
type CatalogueHandler struct {
	metrics []MetricInfo
}

func NewCatalogueHandler(registry *metric.Registry) *CatalogueHandler {
	defaults := model.DefaultMetricConfigs()
	infos := []MetricInfo{}
	for _, id := range registry.IDs() {
		m, err := registry.Get(id)
		if err != nil {
			continue
		}
		infos = append(infos, MetricInfo{
			ID:            id,
			Name:          m.Name(),
			Description:   m.Description(),
			DefaultWeight: defaults[id].Weight,
		})
	}
	return &CatalogueHandler{metrics: infos}
}

// Metrics handles GET /api/metrics
func (h *CatalogueHandler) Metrics(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"metrics": h.metrics})
}

// Filters handles GET /api/filters
func (h *CatalogueHandler) Filters(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"filters": filterCatalogue})
}
