package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/pkg/hash"
)

// Logger is the request logger. InitLogger also installs it as the zerolog/log
// global that services and workers log through.
var Logger zerolog.Logger

// InitLogger sets up structured JSON logging. Unknown levels fall back to info.
func InitLogger(level, service string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
	log.Logger = Logger
}

// hashIPForLog keeps a short irreversible prefix for correlating clients.
func hashIPForLog(ip string) string {
	return hash.Prefix(ip, 12)
}

// sanitizePath replaces creator IDs with a placeholder so log lines group by route.
func sanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if parts[i-1] == "creators" && parts[i] != "" {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// slowRequest is the duration above which a successful request logs at warn.
// Searches over a large corpus with semantic matching approach it.
const slowRequest = 5 * time.Second

// requestID returns the caller's request ID when it looks sane, or a fresh one.
func requestID(c fiber.Ctx) string {
	if id := c.Get(RequestIDHeader); id != "" && len(id) <= 64 {
		return id
	}
	return uuid.NewString()
}

// NewRequestLogger returns a Fiber middleware that tags each request with an ID
// and logs it as one structured line. Raw IPs and query strings are never logged.
func NewRequestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		id := requestID(c)
		c.Set(RequestIDHeader, id)
		c.Locals("request_id", id)

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		var evt *zerolog.Event
		switch {
		case status >= 500:
			evt = Logger.Error()
		case status >= 400 || duration > slowRequest:
			evt = Logger.Warn()
		default:
			evt = Logger.Info()
		}

		evt.
			Str("request_id", id).
			Str("method", c.Method()).
			Str("path", sanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", duration).
			Str("ip_hash", hashIPForLog(c.IP())).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
