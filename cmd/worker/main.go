package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/Maksimka7878/gorod/internal/bus"
	"github.com/Maksimka7878/gorod/internal/cache"
	"github.com/Maksimka7878/gorod/internal/cacheproxy"
	"github.com/Maksimka7878/gorod/internal/capability"
	"github.com/Maksimka7878/gorod/internal/diagnostics"
	"github.com/Maksimka7878/gorod/internal/handlers"
	"github.com/Maksimka7878/gorod/internal/middleware"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/notify"
	"github.com/Maksimka7878/gorod/internal/repository"
	"github.com/Maksimka7878/gorod/internal/storage"
	"github.com/Maksimka7878/gorod/internal/worker"
)

// lifecycleVersions lets the diagnostics reporter ask the lifecycle
// running in this process for its registration.
type lifecycleVersions struct {
	lifecycle *worker.Lifecycle
}

func (v lifecycleVersions) Version(context.Context) (models.Registration, error) {
	return v.lifecycle.Registration(), nil
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	pushSecret := os.Getenv("PUSH_JWT_SECRET")
	if pushSecret == "" {
		log.Fatal("PUSH_JWT_SECRET is required")
	}

	version := os.Getenv("WORKER_VERSION")
	if version == "" {
		version = "dev"
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Gorod Offline Worker",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	// Initialize Redis, the shared store every context sees
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	var store cache.Store
	var broadcastBus *bus.Bus
	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running with in-process cache, contexts stay isolated.", err)
		store = cache.NewMemoryStore()
		broadcastBus = bus.New(nil)
		redisCache = nil
	} else {
		log.Println("Redis connected successfully")
		store = redisCache
		broadcastBus = bus.New(bus.NewRedisTransport(redisCache.Client(), bus.ChannelName))
	}
	defer broadcastBus.Close()

	// Local queue database
	database := repository.LoadDatabaseFromEnv()
	queueRepo := repository.NewQueueRepository(database)

	// Cache router over the shared store
	classifier := cacheproxy.LoadClassifierFromEnv()
	upstream := cacheproxy.NewAgentUpstream()
	router := cacheproxy.NewRouter(classifier, upstream, store, cacheproxy.DefaultNetworkTimeout)

	// Shell artifacts (best-effort; precache is skipped if missing)
	var shell cacheproxy.ShellSource
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: Shell storage not configured: %v", err)
	} else if st, err := storage.NewShellStore(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize shell storage: %v", err)
	} else {
		shell = st
		log.Printf("Shell storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Worker lifecycle and client hub
	hub := worker.NewHub()
	lifecycle := worker.NewLifecycle(version, store, hub, shell)
	control := worker.NewControl(lifecycle, broadcastBus)
	defer control.Close()

	// Connectivity monitor with optional active probe
	monitor := notify.NewMonitor(true)
	defer monitor.Close()
	monitor.StartProbing(os.Getenv("CONNECTIVITY_PROBE_URL"), 30*time.Second)

	caps := capability.Probe(capability.Checks{
		Storage: func() bool {
			_, err := database.Open()
			return err == nil
		},
		Channel:       func() bool { return redisCache != nil },
		Worker:        func() bool { return true },
		Notifications: func() bool { return true },
	})

	reporter := diagnostics.NewReporter(caps, store, queueRepo, monitor, nil,
		lifecycleVersions{lifecycle: lifecycle}, "gorod-worker/"+version)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub)
	pushHandler := handlers.NewPushHandler(hub, lifecycle)
	notificationHandler := handlers.NewNotificationHandler(hub)
	controlHandler := handlers.NewControlHandler(control, lifecycle)
	diagnosticsHandler := handlers.NewDiagnosticsHandler(reporter)
	proxyHandler := handlers.NewProxyHandler(router)

	// Push inbox, JWT-guarded and rate-limited
	api := app.Group("/api")
	push := api.Group("/push", limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}), middleware.PushAuthRequired())
	push.Post("/", pushHandler.ReceivePush)
	push.Post("/subscription", pushHandler.Subscribe)
	push.Delete("/subscription", pushHandler.Unsubscribe)

	// Page context surface
	api.Post("/notifications", notificationHandler.Show)
	api.Post("/notifications/click", notificationHandler.Click)
	api.Post("/control", controlHandler.Control)
	api.Get("/version", controlHandler.Version)

	// Diagnostics
	api.Get("/diagnostics", diagnosticsHandler.Snapshot)
	api.Get("/diagnostics/report", diagnosticsHandler.Report)
	api.Post("/diagnostics/check-update", diagnosticsHandler.CheckUpdate)
	api.Delete("/diagnostics/caches", diagnosticsHandler.ClearCaches)

	// Caching proxy
	app.Get("/proxy", proxyHandler.Fetch)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"state":   lifecycle.State(),
		})
	})

	// Install this version; activates immediately unless another version
	// is still active, in which case we wait for SKIP_WAITING.
	if err := control.Install(context.Background()); err != nil {
		log.Fatal("Failed to install worker:", err)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8790"
	}

	log.Printf("Worker %s starting on port %s...", version, port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
