// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultGearSlots is the slot set used when GEAR_SLOTS is not configured.
var DefaultGearSlots = []string{
	"Head", "Cloak", "Chest", "Gloves", "Legs", "Boots", "Necklace",
	"Bracelet", "Belt", "Ring1", "Ring2", "Weapon1", "Weapon2",
}

// CommonConfig holds configuration fields that are shared across both services.
type CommonConfig struct {
	RedisAddrs              []string      // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to the registry
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries
	ServiceIP               string        // The IP address this service advertises for registration
	ServicePort             int           // The port this service listens on, used for registration
}

// LootServiceConfig holds configuration specific to the loot-service.
type LootServiceConfig struct {
	CommonConfig                          // Embed CommonConfig
	ListenAddr              string        // Address for the HTTP server (e.g., ":8081")
	MongoDBConnStr          string        // MongoDB connection string
	MongoDBDatabase         string        // MongoDB database name
	MongoDBUsersCollection  string        // MongoDB collection for user loot records
	MongoDBConfigCollection string        // MongoDB collection for config documents (admin IDs)
	GearSlots               []string      // The configured equipment slot set
	RequestTimeout          time.Duration // Per-request store operation timeout
}

// BotServiceConfig holds configuration specific to the bot-service.
type BotServiceConfig struct {
	CommonConfig                     // Embed CommonConfig
	ListenAddr         string        // Address for the webhook HTTP server (e.g., ":8082")
	GatewayBaseURL     string        // Base URL of the chat gateway API
	LootServiceURL     string        // Base URL of the loot-service
	CommandPrefix      string        // Chat command prefix (e.g., "!ezloot ")
	LogChannelID       string        // Channel the interaction log is flushed to ("" disables flushing)
	LogFlushInterval   time.Duration // How often buffered interaction logs are delivered
	DispatchWorkers    int           // Number of command worker queues
	DispatchQueueDepth int           // Buffered invocations per worker queue
	GearSlots          []string      // Slot set, must match the loot-service's
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"redis-cluster:6379"}
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			cfg.RedisAddrs = append(cfg.RedisAddrs, strings.TrimSpace(addr))
		}
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	// Service IP for registration (injected by Kubernetes)
	cfg.ServiceIP = os.Getenv("POD_IP")
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = "0.0.0.0"
		fmt.Printf("WARNING: POD_IP not set, defaulting ServiceIP to %s\n", cfg.ServiceIP)
	}

	return cfg, nil
}

// LoadLootServiceConfig loads configuration for the loot-service.
func LoadLootServiceConfig() (*LootServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for loot-service: %w", err)
	}

	cfg := &LootServiceConfig{
		CommonConfig:            common,
		ListenAddr:              os.Getenv("LOOT_SERVICE_LISTEN_ADDR"),
		MongoDBConnStr:          os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:         os.Getenv("MONGODB_DATABASE"),
		MongoDBUsersCollection:  os.Getenv("MONGODB_USERS_COLLECTION"),
		MongoDBConfigCollection: os.Getenv("MONGODB_CONFIG_COLLECTION"),
		GearSlots:               getSlots("GEAR_SLOTS"),
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8081"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017"
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "ezloot"
	}
	if cfg.MongoDBUsersCollection == "" {
		cfg.MongoDBUsersCollection = "users"
	}
	if cfg.MongoDBConfigCollection == "" {
		cfg.MongoDBConfigCollection = "config"
	}
	cfg.RequestTimeout, err = getDuration("LOOT_SERVICE_REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from LOOT_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}

// LoadBotServiceConfig loads configuration for the bot-service.
func LoadBotServiceConfig() (*BotServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for bot-service: %w", err)
	}

	cfg := &BotServiceConfig{
		CommonConfig:   common,
		ListenAddr:     os.Getenv("BOT_SERVICE_LISTEN_ADDR"),
		GatewayBaseURL: os.Getenv("CHAT_GATEWAY_URL"),
		LootServiceURL: os.Getenv("LOOT_SERVICE_URL"),
		CommandPrefix:  os.Getenv("COMMAND_PREFIX"),
		LogChannelID:   os.Getenv("LOG_CHANNEL_ID"),
		GearSlots:      getSlots("GEAR_SLOTS"),
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8082"
	}
	if cfg.GatewayBaseURL == "" {
		cfg.GatewayBaseURL = "http://chat-gateway:8080"
	}
	if cfg.LootServiceURL == "" {
		cfg.LootServiceURL = "http://loot-service:8081"
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!ezloot "
	}

	cfg.LogFlushInterval, err = getDuration("LOG_FLUSH_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.DispatchWorkers, err = getInt("DISPATCH_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	if cfg.DispatchWorkers <= 0 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be a positive integer (got %d)", cfg.DispatchWorkers)
	}
	cfg.DispatchQueueDepth, err = getInt("DISPATCH_QUEUE_DEPTH", 16)
	if err != nil {
		return nil, err
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from BOT_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}

// getSlots parses a comma-separated slot list from an environment variable,
// falling back to DefaultGearSlots.
func getSlots(envKey string) []string {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return append([]string(nil), DefaultGearSlots...)
	}
	var slots []string
	for _, s := range strings.Split(valStr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slots = append(slots, s)
		}
	}
	return slots
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8081" -> 8081)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		// If SplitHostPort fails, check if ListenAddr is just a port (e.g., ":8081")
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}
