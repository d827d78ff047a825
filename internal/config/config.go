package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SSLMode        string
	RedisHost      string
	RedisPort      string
	NatsHost       string
	NatsPort       string
	ApiPort        string
	ApiEnabled     string
	BusProvider    string
	GRPCHost       string
	GRPCPort       string
	GRPCListenPort string
	BusBufferSize  int
	WorkerProvider string

	Env           string
	AdminID       string
	StoreID       string
	RewardAsset   string
	PlayFee       uint64
	InitialSupply uint64
	JWTSecret     string
	JWTIssuer     string
	BusSecret     string
}

// New loads and validates configuration from environment variables.
// HTTP server is optional: if PLAYLEDGER_API_ENABLED != "true", ApiAddr() returns an error
// and the HTTP server simply won't start.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:         os.Getenv("PLAYLEDGER_POSTGRES_USER"),
		DBPass:         os.Getenv("PLAYLEDGER_POSTGRES_PASSWORD"),
		DBHost:         os.Getenv("PLAYLEDGER_POSTGRES_HOST"),
		DBPort:         getEnv("PLAYLEDGER_POSTGRES_PORT", "5432"),
		DBName:         os.Getenv("PLAYLEDGER_POSTGRES_DB"),
		SSLMode:        getEnv("PLAYLEDGER_POSTGRES_SSLMODE", "disable"),
		RedisHost:      os.Getenv("PLAYLEDGER_REDIS_HOST"),
		RedisPort:      getEnv("PLAYLEDGER_REDIS_PORT", "6379"),
		NatsHost:       os.Getenv("PLAYLEDGER_NATS_HOST"),
		NatsPort:       os.Getenv("PLAYLEDGER_NATS_PORT"),
		GRPCHost:       os.Getenv("PLAYLEDGER_GRPC_HOST"),
		GRPCPort:       os.Getenv("PLAYLEDGER_GRPC_PORT"),
		GRPCListenPort: getEnv("PLAYLEDGER_GRPC_LISTEN_PORT", "50051"),
		BusProvider:    os.Getenv("PLAYLEDGER_BUS_PROVIDER"),
		ApiPort:        os.Getenv("PLAYLEDGER_API_PORT"),
		ApiEnabled:     os.Getenv("PLAYLEDGER_API_ENABLED"),
		BusBufferSize:  getEnvInt("PLAYLEDGER_BUS_BUFFER_SIZE", 1024),
		WorkerProvider: os.Getenv("PLAYLEDGER_WORKER_PROVIDER"),

		Env:           getEnv("PLAYLEDGER_ENV", "development"),
		AdminID:       strings.TrimSpace(os.Getenv("PLAYLEDGER_ADMIN_ID")),
		StoreID:       getEnv("PLAYLEDGER_STORE_ID", "playledger:record-store"),
		RewardAsset:   getEnv("PLAYLEDGER_REWARD_ASSET_ID", "playledger:reward-asset"),
		PlayFee:       uint64(getEnvInt("PLAYLEDGER_PLAY_FEE", 10)),
		InitialSupply: uint64(getEnvInt("PLAYLEDGER_INITIAL_SUPPLY", 1_000_000)),
		JWTSecret:     os.Getenv("PLAYLEDGER_JWT_SECRET"),
		JWTIssuer:     os.Getenv("PLAYLEDGER_JWT_ISSUER"),
		BusSecret:     os.Getenv("PLAYLEDGER_BUS_SECRET"),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required env for database: PLAYLEDGER_POSTGRES_USER/HOST/DB")
	}

	// Required: redis
	if cfg.RedisHost == "" {
		return nil, fmt.Errorf("missing required env for redis: PLAYLEDGER_REDIS_HOST")
	}

	// Required: ledger identities
	if cfg.AdminID == "" {
		return nil, fmt.Errorf("missing required env: PLAYLEDGER_ADMIN_ID")
	}
	if cfg.StoreID == cfg.AdminID {
		return nil, fmt.Errorf("PLAYLEDGER_STORE_ID must differ from PLAYLEDGER_ADMIN_ID")
	}

	// Required: bus provider
	if cfg.BusProvider == "" {
		return nil, fmt.Errorf("missing required env: PLAYLEDGER_BUS_PROVIDER (nats|grpc)")
	}
	if cfg.BusProvider != "nats" && cfg.BusProvider != "grpc" {
		return nil, fmt.Errorf("invalid bus provider %q, must be 'nats' or 'grpc'", cfg.BusProvider)
	}

	// Worker provider defaults to the bus provider.
	if cfg.WorkerProvider == "" {
		cfg.WorkerProvider = cfg.BusProvider
	}
	if cfg.WorkerProvider != "nats" && cfg.WorkerProvider != "grpc" {
		return nil, fmt.Errorf("invalid worker provider %q, must be 'nats' or 'grpc'", cfg.WorkerProvider)
	}
	if cfg.BusProvider == "grpc" && (cfg.GRPCHost == "" || cfg.GRPCPort == "") {
		return nil, fmt.Errorf("missing required env for grpc bus: PLAYLEDGER_GRPC_HOST/PORT")
	}
	if (cfg.BusProvider == "nats" || cfg.WorkerProvider == "nats") && (cfg.NatsHost == "" || cfg.NatsPort == "") {
		return nil, fmt.Errorf("missing required env for nats: PLAYLEDGER_NATS_HOST/PORT")
	}

	// The gRPC API always runs and, like the HTTP API, authenticates every call.
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env: PLAYLEDGER_JWT_SECRET")
	}
	// EventService calls carry the shared bus secret in both directions.
	if (cfg.BusProvider == "grpc" || cfg.WorkerProvider == "grpc") && cfg.BusSecret == "" {
		return nil, fmt.Errorf("PLAYLEDGER_BUS_SECRET is required when the bus or worker provider is grpc")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// GRPCAddr is the remote EventService used as the bus when BusProvider is "grpc".
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%s", c.GRPCHost, c.GRPCPort)
}

// GRPCListenAddr is where this process serves the ledger gRPC API.
func (c *Config) GRPCListenAddr() string {
	return ":" + c.GRPCListenPort
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if PLAYLEDGER_API_ENABLED != "true"; callers should skip starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("PLAYLEDGER_API_PORT is required when PLAYLEDGER_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (PLAYLEDGER_API_ENABLED != true)")
}

// BusAddr returns the connection address for the configured bus provider.
func (c *Config) BusAddr() string {
	if c.BusProvider == "nats" {
		return c.NatsAddr()
	}
	return c.GRPCAddr()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil || intVal < 0 {
		return defaultVal
	}
	return intVal
}
