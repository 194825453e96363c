package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskflow/configs"
	v1 "taskflow/internal/api/v1"
	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/repository"
	"taskflow/internal/store"
	myws "taskflow/internal/websocket"
	"taskflow/pkg/database"
	"taskflow/pkg/googleauth"
	"taskflow/pkg/logger"
	"taskflow/pkg/mailer"
)

func main() {
	// Load config dulu, logger butuh direktorinya
	cfg := configs.LoadConfig()

	logger.InitLoggers(cfg.LogDir)
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	// Inisialisasi database; koneksinya disuntikkan ke Store, bukan global
	db := database.ConnectDB(cfg)
	defer db.Close()
	logger.SystemLogger.Info("Database Connected")

	// Buat tabel jika belum ada:
	repository.CreateTableIfNotExists(db)
	// Jika ingin menghapus tabel:
	// repository.DeleteAllTable(db)

	config.SecretKey = []byte(cfg.JWTSecret)
	config.Store = store.New(db)
	config.Mailer = mailer.NewSMTP(cfg)
	config.Google = googleauth.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	config.RedisClient = database.ConnectRedis(cfg)
	defer config.RedisClient.Close()

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Daftarkan route API v1
	v1.RegisterRoutes(app)

	// WebSocket presence feed: snapshot disiarkan tiap 30 detik
	hub := myws.NewHub(config.Store, 30*time.Second)
	go hub.Run()
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/presence", websocket.New(hub.Serve))

	logger.SystemLogger.Info("Application ready, listening on port 3004")
	if err := app.Listen(":3004"); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
