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

	lootapi "github.com/ezloot/LOOT-SERVICES/loot/api"
	"github.com/ezloot/LOOT-SERVICES/loot/service"
	"github.com/ezloot/LOOT-SERVICES/loot/store"
	"github.com/ezloot/LOOT-SERVICES/shared/api"
	"github.com/ezloot/LOOT-SERVICES/shared/config"
	mongodbu "github.com/ezloot/LOOT-SERVICES/shared/mongodb"
	redisu "github.com/ezloot/LOOT-SERVICES/shared/redis"
	"github.com/ezloot/LOOT-SERVICES/shared/registry"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadLootServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- 2. Connect to MongoDB ---
	mongoClient, err := mongodbu.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err = mongoClient.Disconnect(context.Background()); err != nil {
			log.Fatalf("Failed to disconnect from MongoDB: %v", err)
		}
		log.Println("Disconnected from MongoDB.")
	}()

	// --- 3. Connect to Redis (service registry) ---
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

	// --- 4. Initialize Data Stores (passing MongoDB collections) ---
	usersCollection := mongoClient.Collection(cfg.MongoDBUsersCollection)
	configCollection := mongoClient.Collection(cfg.MongoDBConfigCollection)

	userStore := store.NewUserStore(usersCollection)
	adminStore := store.NewAdminStore(configCollection)

	// --- 5. Initialize Business Logic Services (passing stores) ---
	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	lootService, err := service.NewLootService(startupCtx, userStore, adminStore, cfg.GearSlots)
	startupCancel()
	if err != nil {
		log.Fatalf("Failed to initialize loot service: %v", err)
	}
	reportService := service.NewReportService(userStore, lootService)

	// --- 6. Initialize API Handlers (passing business logic services) ---
	lootAPIHandlers := lootapi.NewLootHandlers(lootService, reportService)

	// --- 7. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "loot-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()

	// --- 8. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	baseServer.Router.Use(api.TimeoutMiddleware(cfg.RequestTimeout))
	lootAPIHandlers.RegisterRoutes(baseServer.Router)

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
