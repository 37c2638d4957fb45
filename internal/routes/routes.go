package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/skyroute/skyroute-api/internal/account"
	"github.com/skyroute/skyroute-api/internal/config"
	"github.com/skyroute/skyroute-api/internal/kv"
	"github.com/skyroute/skyroute-api/internal/middleware"
	"github.com/skyroute/skyroute-api/internal/notification"
	"github.com/skyroute/skyroute-api/internal/secrets"
	"github.com/skyroute/skyroute-api/internal/tts"
	"github.com/skyroute/skyroute-api/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// The browser client is served from a different origin, so CORS stays
	// permissive with uniform preflight handling.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Shared infrastructure
	var store kv.Store
	if d.Cache != nil {
		store = kv.NewRedisStore(d.Cache)
	} else {
		store = kv.NewMemoryStore()
	}

	cipher, err := secrets.NewCipher(d.Cfg.PIIKey)
	if err != nil {
		return err
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	codeSvc := verification.NewService(store, notifier, d.Cfg.VerificationTTL, d.Logger)

	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewKVRepository(store)
	}
	accountSvc := account.NewService(repo, codeSvc, cipher, d.Logger)

	verifyHandler := verification.NewHandler(codeSvc)
	accountHandler := account.NewHandler(accountSvc)

	rateLimiter := middleware.VerifyRateLimit(d.Cache, d.Cfg.VerifyRatePerMin)
	RegisterAuthRoutes(app, accountHandler, verifyHandler, rateLimiter)

	ttsSvc := tts.NewService(buildSynthesizer(d.Cfg.TTSURL, d.Cfg), buildSynthesizer(d.Cfg.TTSFallbackURL, d.Cfg), d.Logger)
	RegisterTTSRoutes(app, tts.NewHandler(ttsSvc))

	// Everything else mirrors the original worker's plain 404.
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(http.StatusNotFound).SendString("Not Found")
	})

	return nil
}

func buildSynthesizer(url string, cfg config.Config) tts.Synthesizer {
	if url == "" {
		return nil
	}
	return tts.NewHTTPProvider(url, cfg.TTSTimeout)
}
