package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	fiber "github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/gitlab"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

// WebhookHandler normalizes inbound GitLab deliveries for the orchestrator
type WebhookHandler struct {
	scm     gitlab.SCM
	limiter *rateLimiter
}

// NewWebhookHandler creates a handler backed by the given adapter
func NewWebhookHandler(cfg *config.Config, scm gitlab.SCM) *WebhookHandler {
	logging.Info("Webhook handler initialized",
		zap.Int("rate_limit_per_min", cfg.Server.RateLimitPerMin))
	return &WebhookHandler{
		scm:     scm,
		limiter: newRateLimiter(cfg.Server.RateLimitPerMin),
	}
}

// HandleWebhook parses a delivery and answers with the normalized event.
// Unsupported deliveries are acknowledged with a null event.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/json")

	if err := h.limiter.Allow(c.IP()); err != nil {
		logging.Warn("Webhook rejected", zap.String("source", c.IP()), zap.Error(err))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Quick validation of content type
	if !c.Is("json") {
		contentType := c.Get("Content-Type")
		logging.Warn("Invalid content type: %s", contentType)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Content-Type must be application/json, got: %s", contentType),
		})
	}

	body := c.Body()
	if !json.Valid(body) {
		logging.Warn("Invalid JSON payload", zap.Int("bytes", len(body)))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON payload",
		})
	}

	event := h.scm.ParseHook(requestHeader(c), body)
	if event == nil {
		logging.Info("Ignoring unsupported webhook",
			zap.String("gitlab_event", c.Get("X-Gitlab-Event")),
			zap.Any("request_id", c.Locals(requestIDKey)))
		return c.JSON(fiber.Map{
			"event":  nil,
			"status": "ignored",
		})
	}

	logging.Info("Webhook normalized",
		zap.String("type", event.Type),
		zap.String("action", event.Action),
		zap.String("branch", event.Branch),
		zap.String("sha", event.SHA),
		zap.Any("request_id", c.Locals(requestIDKey)))

	return c.JSON(fiber.Map{
		"event": event,
	})
}

// HandleStats reports the outbound transport counters and breaker state
func (h *WebhookHandler) HandleStats(c *fiber.Ctx) error {
	return c.JSON(h.scm.Stats())
}

// HandleHealth reports liveness
func (h *WebhookHandler) HandleHealth(c *fiber.Ctx) error {
	stats := h.scm.Stats()
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"service":        serviceName,
		"breaker_closed": stats.Breaker.IsClosed,
	})
}

// requestHeader copies the fasthttp request headers into an http.Header
func requestHeader(c *fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}
