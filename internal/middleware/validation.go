package middleware

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// ErrorResponse writes the standard {"error":{"code","message"}} envelope.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateTopic trims a free-text topic and checks its length in characters.
func ValidateTopic(field, q string) (string, string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", field + " is required"
	}
	if n := utf8.RuneCountInString(q); n < model.MinTopicLen || n > model.MaxTopicLen {
		return "", field + " must be " + strconv.Itoa(model.MinTopicLen) + "-" + strconv.Itoa(model.MaxTopicLen) + " characters"
	}
	return q, ""
}

// ValidateOptionalTopic is ValidateTopic for parameters that may be omitted.
func ValidateOptionalTopic(field, q string) (string, string) {
	if strings.TrimSpace(q) == "" {
		return "", ""
	}
	return ValidateTopic(field, q)
}

// ValidateCreatorID parses a positive creator ID path segment.
func ValidateCreatorID(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "id is required"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "id must be a positive integer"
	}
	return id, ""
}

// ValidatePagination parses limit and offset query values. Empty values take the
// defaults; limit must be 1-100 and offset non-negative.
func ValidatePagination(limitRaw, offsetRaw string) (int, int, string) {
	limit, offset := model.DefaultLimit, 0
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil || n < 1 || n > model.MaxLimit {
			return 0, 0, "limit must be an integer between 1 and " + strconv.Itoa(model.MaxLimit)
		}
		limit = n
	}
	if offsetRaw != "" {
		n, err := strconv.Atoi(offsetRaw)
		if err != nil || n < 0 {
			return 0, 0, "offset must be a non-negative integer"
		}
		offset = n
	}
	return limit, offset, ""
}

// ValidateSortBy accepts the creator listing sort keys. Empty means overall_score.
func ValidateSortBy(s string) (string, string) {
	switch s = strings.TrimSpace(s); s {
	case "":
		return model.SortOverallScore, ""
	case model.SortOverallScore, model.SortSubscribers, model.SortCreatedAt:
		return s, ""
	}
	return "", "sort_by must be one of overall_score, total_subscribers, created_at"
}

// ValidateDiscoverMax checks the requested number of discovery results. Zero means
// the default.
func ValidateDiscoverMax(n int) (int, string) {
	if n == 0 {
		return model.DefaultDiscoverMax, ""
	}
	if n < 1 || n > model.MaxDiscover {
		return 0, "max_results must be between 1 and " + strconv.Itoa(model.MaxDiscover)
	}
	return n, ""
}
