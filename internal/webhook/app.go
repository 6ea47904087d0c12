package webhook

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/gitlab"
)

const (
	serviceName  = "scm-gitlab"
	requestIDKey = "requestid"
)

// NewApp wires the webhook, stats, health and metrics routes.
// collectors are registered on a private registry served at /metrics.
func NewApp(cfg *config.Config, scm gitlab.SCM, metrics ...prometheus.Collector) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  func() string { return xid.New().String() },
		ContextKey: requestIDKey,
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	for _, m := range metrics {
		registry.MustRegister(m)
	}

	handler := NewWebhookHandler(cfg, scm)
	app.Post("/webhook", handler.HandleWebhook)
	app.Get("/stats", handler.HandleStats)
	app.Get("/health", handler.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return app
}
