package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/abm312/expert-suitability-engine/internal/middleware"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// CreatorReader serves the listing and detail views.
type CreatorReader interface {
	List(ctx context.Context, sortBy string, limit, offset int) (*model.CreatorPage, error)
	Detail(ctx context.Context, id int64, topic string) (*model.CreatorDetail, error)
}

// CreatorRefresher re-fetches a creator from the provider.
type CreatorRefresher interface {
	Refresh(ctx context.Context, creatorID int64) error
}

type CreatorHandler struct {
	svc       CreatorReader
	refresher CreatorRefresher
}

func NewCreatorHandler(svc CreatorReader, refresher CreatorRefresher) *CreatorHandler {
	return &CreatorHandler{svc: svc, refresher: refresher}
}

// List handles GET /api/creators
func (h *CreatorHandler) List(c fiber.Ctx) error {
	limit, offset, errMsg := middleware.ValidatePagination(c.Query("limit"), c.Query("offset"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	sortBy, errMsg := middleware.ValidateSortBy(c.Query("sort_by"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	page, err := h.svc.List(c.Context(), sortBy, limit, offset)
	if err != nil {
		return serviceError(c, err, "No creators found", "Failed to list creators")
	}
	return c.JSON(page)
}

// Detail handles GET /api/creators/:id
func (h *CreatorHandler) Detail(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateCreatorID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	topic, errMsg := middleware.ValidateOptionalTopic("topic_query", c.Query("topic_query"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	detail, err := h.svc.Detail(c.Context(), id, topic)
	if err != nil {
		return serviceError(c, err, "Creator not found", "Failed to load creator")
	}
	return c.JSON(detail)
}

// Refresh handles POST /api/creators/:id/refresh
func (h *CreatorHandler) Refresh(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateCreatorID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if err := h.refresher.Refresh(c.Context(), id); err != nil {
		return serviceError(c, err, "Creator not found", "Creator refresh failed")
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Creator data refreshed"})
}
