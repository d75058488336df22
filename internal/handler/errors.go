package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/middleware"
	"github.com/abm312/expert-suitability-engine/internal/provider"
	"github.com/abm312/expert-suitability-engine/internal/service"
)

// serviceError maps a service failure to the API error envelope. fallback is the
// message used for unexpected errors, whose details stay in the log.
func serviceError(c fiber.Ctx, err error, notFound, fallback string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, metric.ErrUnknownMetric):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, provider.ErrChannelNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", notFound)
	case errors.Is(err, provider.ErrNotConfigured):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "Upstream provider is not configured")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "CANCELLED", "Request was cancelled before completion")
	}
	log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}
