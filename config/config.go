// config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup. Nothing reloads it afterwards.
type Config struct {
	Port           string
	AllowedOrigins []string
	ServiceToken   string
	AuthServiceURL string

	Database DatabaseConfig
	IPFS     IPFSConfig
	Staging  StagingConfig
	Security SecurityConfig
	Chains   ChainConfig
}

type DatabaseConfig struct {
	Driver        string // sqlite | postgres | redis
	URL           string
	SQLiteDir     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type IPFSConfig struct {
	Primary    string
	Fallbacks  []string
	GatewayURL string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration

	PinataJWT           string
	InfuraProjectID     string
	InfuraProjectSecret string
	Web3StorageToken    string
	LocalNodeURL        string

	FilebaseAccessKeyID     string
	FilebaseSecretAccessKey string
	FilebaseBucket          string
}

type StagingConfig struct {
	Dir           string
	MaxRetries    int
	MaxAge        time.Duration
	RetryAfter    time.Duration
	SweepInterval time.Duration
}

type SecurityConfig struct {
	HoneypotPaths         []string
	MaxPayloadBytes       int
	MaxRequestsPerMinute  int
	CleanupInterval       time.Duration
	MissionExpiryInterval time.Duration
}

type ChainConfig struct {
	BaseRelayURL            string
	ScrollRPCURL            string
	ScrollChainID           int64
	ScrollContractAddress   string
	ScrollPrivateKey        string
	StarknetContractAddress string
	SpenderAddress          string
}

var DefaultHoneypotPaths = []string{
	"/.env",
	"/.git/config",
	"/wp-admin",
	"/wp-login.php",
	"/phpmyadmin",
	"/admin/config",
	"/api/internal/debug",
	"/server-status",
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	return &Config{
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		ServiceToken:   os.Getenv("SERVICE_TOKEN"),
		AuthServiceURL: os.Getenv("AUTH_SERVICE_URL"),
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
			URL:           os.Getenv("DATABASE_URL"),
			SQLiteDir:     getEnv("SQLITE_DIR", "./data"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getInt("REDIS_DB", 0),
		},
		IPFS: IPFSConfig{
			Primary:                 strings.ToLower(getEnv("IPFS_PRIMARY_PROVIDER", "pinata")),
			Fallbacks:               providerNames(getList("IPFS_FALLBACK_PROVIDERS", nil)),
			GatewayURL:              strings.TrimRight(getEnv("IPFS_GATEWAY_URL", "https://gateway.pinata.cloud"), "/"),
			MaxRetries:              getInt("IPFS_MAX_RETRIES", 3),
			RetryDelay:              getDuration("IPFS_RETRY_DELAY", time.Second),
			Timeout:                 getDuration("IPFS_TIMEOUT", 60*time.Second),
			PinataJWT:               os.Getenv("PINATA_JWT"),
			InfuraProjectID:         os.Getenv("INFURA_PROJECT_ID"),
			InfuraProjectSecret:     os.Getenv("INFURA_PROJECT_SECRET"),
			Web3StorageToken:        os.Getenv("WEB3_STORAGE_TOKEN"),
			LocalNodeURL:            os.Getenv("IPFS_LOCAL_NODE_URL"),
			FilebaseAccessKeyID:     os.Getenv("FILEBASE_ACCESS_KEY_ID"),
			FilebaseSecretAccessKey: os.Getenv("FILEBASE_SECRET_ACCESS_KEY"),
			FilebaseBucket:          os.Getenv("FILEBASE_BUCKET"),
		},
		Staging: StagingConfig{
			Dir:           getEnv("STAGING_DIR", "./uploads/staging"),
			MaxRetries:    getInt("STAGING_MAX_RETRIES", 5),
			MaxAge:        getDuration("STAGING_MAX_AGE", 24*time.Hour),
			RetryAfter:    getDuration("STAGING_RETRY_AFTER", 5*time.Minute),
			SweepInterval: getDuration("STAGING_SWEEP_INTERVAL", time.Minute),
		},
		Security: SecurityConfig{
			HoneypotPaths:         getList("SECURITY_HONEYPOT_PATHS", DefaultHoneypotPaths),
			MaxPayloadBytes:       getInt("SECURITY_MAX_PAYLOAD_BYTES", 1<<20),
			MaxRequestsPerMinute:  getInt("SECURITY_MAX_REQUESTS_PER_MINUTE", 60),
			CleanupInterval:       getDuration("SECURITY_CLEANUP_INTERVAL", time.Hour),
			MissionExpiryInterval: getDuration("MISSION_EXPIRY_INTERVAL", time.Minute),
		},
		Chains: ChainConfig{
			BaseRelayURL:            os.Getenv("BASE_RELAY_URL"),
			ScrollRPCURL:            os.Getenv("SCROLL_RPC_URL"),
			ScrollChainID:           int64(getInt("SCROLL_CHAIN_ID", 534352)),
			ScrollContractAddress:   os.Getenv("SCROLL_CONTRACT_ADDRESS"),
			ScrollPrivateKey:        os.Getenv("SCROLL_PRIVATE_KEY"),
			StarknetContractAddress: os.Getenv("STARKNET_CONTRACT_ADDRESS"),
			SpenderAddress:          os.Getenv("SPENDER_ADDRESS"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  [CONFIG] %s=%q is not an integer, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("⚠️  [CONFIG] %s=%q is not a valid duration, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

// getList splits a comma-separated variable, trimming spaces and dropping empties.
// providerNames lowercases and dedupes provider names, keeping the first occurrence.
func providerNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		n = strings.ToLower(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
