// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	botapi "github.com/ezloot/LOOT-SERVICES/bot/api"
	"github.com/ezloot/LOOT-SERVICES/bot/commands"
	"github.com/ezloot/LOOT-SERVICES/bot/dispatch"
	"github.com/ezloot/LOOT-SERVICES/bot/flusher"
	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/bot/logstore"
	"github.com/ezloot/LOOT-SERVICES/bot/resolver"
	"github.com/ezloot/LOOT-SERVICES/shared/api"
	"github.com/ezloot/LOOT-SERVICES/shared/cluster"
	"github.com/ezloot/LOOT-SERVICES/shared/config"
	redisu "github.com/ezloot/LOOT-SERVICES/shared/redis"
	"github.com/ezloot/LOOT-SERVICES/shared/registry"
	sharedservice "github.com/ezloot/LOOT-SERVICES/shared/service"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadBotServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- 2. Connect to Redis (interaction log buffer + registry) ---
	redisClient, err := redisu.NewRedisClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis Cluster: %v", err)
	}
	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Fatalf("Error closing Redis client: %v", err)
		}
		log.Println("Redis Client closed..")
	}()

	// --- 3. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "bot-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()

	// --- 4. Initialize Cluster Assignment Manager (flusher leadership) ---
	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL)
	assignmentManager := cluster.NewServiceAssignmentManager(registryClient, registrar, cfg.HeartbeatInterval)
	go assignmentManager.Start()
	defer assignmentManager.Stop()

	// --- 5. Initialize Clients and the Command Router ---
	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL)
	lootClient := sharedservice.NewLootClient(cfg.LootServiceURL)
	userResolver := resolver.New(gatewayClient, lootClient)
	logStore := logstore.NewLogStore(redisClient)

	router := commands.NewRouter(cfg.CommandPrefix, cfg.GearSlots, lootClient, gatewayClient, userResolver, logStore)
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := router.LoadAdmins(startupCtx); err != nil {
		// The loot-service may still be coming up; reloadadmins recovers later.
		log.Printf("WARN: Could not load admin IDs at startup: %v", err)
	}
	startupCancel()

	// --- 6. Start the Command Dispatcher ---
	dispatcher := dispatch.NewDispatcher(cfg.DispatchWorkers, cfg.DispatchQueueDepth)
	dispatcher.Start()
	defer dispatcher.Stop()

	// --- 7. Start the Interaction Log Flusher (leader-gated) ---
	if cfg.LogChannelID != "" {
		logFlusher := flusher.NewFlusher(logStore, gatewayClient, assignmentManager, cfg.LogChannelID, cfg.LogFlushInterval)
		go logFlusher.Start()
		defer logFlusher.Stop()
	} else {
		log.Println("WARN: LOG_CHANNEL_ID not set; interaction log flushing disabled.")
	}

	// --- 8. Setup HTTP Server and Register Routes ---
	botAPIHandlers := botapi.NewBotHandlers(router, dispatcher)
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	botAPIHandlers.RegisterRoutes(baseServer.Router)

	// --- 9. Start HTTP Server ---
	go func() {
		log.Printf("HTTP server starting on %s...", cfg.ListenAddr)
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()

	// --- 10. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Server gracefully stopped.")
}
