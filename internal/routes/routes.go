package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/yash-g01/Next-Gen-ATM/internal/config"
	"github.com/yash-g01/Next-Gen-ATM/internal/metrics"
	"github.com/yash-g01/Next-Gen-ATM/internal/middleware"
	"github.com/yash-g01/Next-Gen-ATM/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Controller *session.Controller
	Logger     *slog.Logger
}

// Setup configures middlewares and all terminal routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Controller == nil {
		return fmt.Errorf("session controller is required")
	}
	// Outside of dev the terminal must run against real backing stores.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler := session.NewHandler(d.Controller)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterSessionRoutes(api, handler)

	// Cash movement endpoints get idempotency protection when redis is
	// available; a double-submitted deposit must not post twice.
	transactions := api.Group("/transactions")
	if d.Cache != nil {
		transactions.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterTransactionRoutes(transactions, handler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
