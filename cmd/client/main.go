package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Maksimka7878/gorod/internal/bus"
	"github.com/Maksimka7878/gorod/internal/cache"
	"github.com/Maksimka7878/gorod/internal/capability"
	"github.com/Maksimka7878/gorod/internal/diagnostics"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/notify"
	"github.com/Maksimka7878/gorod/internal/repository"
)

// envPrompter answers the permission prompt from configuration instead of
// a dialog: a headless page context has nobody to ask.
type envPrompter struct{}

func (envPrompter) RequestPermission(context.Context) (notify.Permission, error) {
	if os.Getenv("NOTIFICATIONS_ALLOWED") == "false" {
		return notify.PermissionDenied, nil
	}
	return notify.PermissionGranted, nil
}

// logPage logs focus and navigation instead of driving a real window.
type logPage struct{}

func (logPage) Focus()              { log.Println("[Page] Focused") }
func (logPage) Navigate(url string) { log.Printf("[Page] Navigating to %s", url) }

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Local queue database
	database := repository.LoadDatabaseFromEnv()
	queueRepo := repository.NewQueueRepository(database)

	// Shared redis, best-effort
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	var store cache.Store
	var broadcastBus *bus.Bus
	redisCache := cache.NewRedisCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running isolated.", err)
		store = cache.NewMemoryStore()
		broadcastBus = bus.New(nil)
		redisCache = nil
	} else {
		store = redisCache
		broadcastBus = bus.New(bus.NewRedisTransport(redisCache.Client(), bus.ChannelName))
	}
	defer broadcastBus.Close()

	// Log everything other contexts broadcast
	sub := broadcastBus.On(models.BroadcastAll, func(msg models.BroadcastMessage) {
		log.Printf("[Page] Broadcast %s from %s (%d bytes)", msg.Type, msg.Origin, len(msg.Payload))
	})
	defer sub.Unsubscribe()

	// Connectivity with active probe against the worker
	monitor := notify.NewMonitor(true)
	defer monitor.Close()
	probeURL := os.Getenv("CONNECTIVITY_PROBE_URL")
	if probeURL == "" && os.Getenv("WORKER_URL") != "" {
		probeURL = os.Getenv("WORKER_URL") + "/health"
	}
	monitor.StartProbing(probeURL, 30*time.Second)

	// Notification path through the worker
	surface := notify.LoadWorkerSurfaceFromEnv()
	versionClient := diagnostics.LoadVersionClientFromEnv()

	var dispatcherSurface notify.Surface
	if surface != nil {
		dispatcherSurface = surface
	}
	dispatcher := notify.NewDispatcher(queueRepo, dispatcherSurface, monitor, envPrompter{}, logPage{})
	defer dispatcher.Close()
	dispatcher.RequestPermission(context.Background())

	caps := capability.Probe(capability.Checks{
		Storage: func() bool {
			_, err := database.Open()
			return err == nil
		},
		Channel: func() bool { return redisCache != nil },
		Worker: func() bool {
			if versionClient == nil {
				return false
			}
			_, err := versionClient.Version(context.Background())
			return err == nil
		},
		Notifications: func() bool { return surface != nil },
	})

	var versions diagnostics.VersionSource
	if versionClient != nil {
		versions = versionClient
	}
	reporter := diagnostics.NewReporter(caps, store, queueRepo, monitor, dispatcher,
		versions, "gorod-client")

	fmt.Print(diagnostics.Format(reporter.Snapshot()))

	if found, err := reporter.CheckForUpdate(context.Background()); err != nil {
		log.Printf("Update check failed: %v", err)
	} else if found {
		log.Println("A new worker version is waiting; send SKIP_WAITING to activate it")
	}

	log.Println("Page context running, Ctrl+C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Page context shutting down")
}
