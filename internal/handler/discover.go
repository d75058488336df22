package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/abm312/expert-suitability-engine/internal/middleware"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// Discoverer adds creators matching a query to the corpus.
type Discoverer interface {
	Discover(ctx context.Context, query string, max int) ([]model.DiscoveredCreator, error)
}

type DiscoverRequest struct {
	SearchQuery string `json:"search_query"`
	MaxResults  int    `json:"max_results"`
}

type DiscoverHandler struct {
	svc Discoverer
}

func NewDiscoverHandler(svc Discoverer) *DiscoverHandler {
	return &DiscoverHandler{svc: svc}
}

// Discover handles POST /api/discover
func (h *DiscoverHandler) Discover(c fiber.Ctx) error {
	var req DiscoverRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	query, errMsg := middleware.ValidateTopic("search_query", req.SearchQuery)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	maxResults, errMsg := middleware.ValidateDiscoverMax(req.MaxResults)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	added, err := h.svc.Discover(c.Context(), query, maxResults)
	if err != nil {
		return serviceError(c, err, "No channels found", "Discovery failed")
	}
	return c.JSON(fiber.Map{
		"status":      "success",
		"added_count": len(added),
		"creators":    added,
	})
}
