package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/abm312/expert-suitability-engine/internal/middleware"
	"github.com/abm312/expert-suitability-engine/internal/model"
	"github.com/abm312/expert-suitability-engine/internal/service"
)

// Searcher runs a ranking pass.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest, events chan<- model.ProgressEvent) (*model.SearchResponse, error)
}

type SearchHandler struct {
	svc      Searcher
	progress *service.ProgressTracker
}

func NewSearchHandler(svc Searcher, progress *service.ProgressTracker) *SearchHandler {
	return &SearchHandler{svc: svc, progress: progress}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(c fiber.Ctx) error {
	var req model.SearchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	events, done := h.progress.Attach()
	resp, err := h.svc.Search(c.Context(), req, events)
	done()
	if err != nil {
		return serviceError(c, err, "No creators found", "Search failed")
	}
	return c.JSON(resp)
}

// Progress handles GET /api/progress
func (h *SearchHandler) Progress(c fiber.Ctx) error {
	return c.JSON(h.progress.Last())
}
