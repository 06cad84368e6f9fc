package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Store database
	DatabaseURL string // full DSN override, sqlite:// for development
	DBHost      string // host, host:port or socket path
	DBUser      string
	DBPassword  string
	DBName      string
	TablePrefix string
	Multisite   bool

	// Store layout
	StoreBaseDir string
	UploadDir    string
	CartID       string // pins cart detection when set

	// Bridge
	StoreKeyFile   string
	PublicKeyFile  string
	PrivateKeyFile string
	KeyID          string

	// Kafka
	KafkaBrokers string

	// API Configuration
	APIPort      string
	APIHost      string
	AdminToken   string
	AdminOrigins []string

	// Refund authorization callback
	KeyCheckURL string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "wordpress"),
		TablePrefix:    getEnv("TABLE_PREFIX", "wp_"),
		Multisite:      getEnvAsBool("MULTISITE", false),
		StoreBaseDir:   getEnv("STORE_BASE_DIR", "."),
		UploadDir:      getEnv("UPLOAD_DIR", "wp-content/uploads"),
		CartID:         getEnv("CART_ID", ""),
		StoreKeyFile:   getEnv("STORE_KEY_FILE", "bridge.key"),
		PublicKeyFile:  getEnv("BRIDGE_PUBLIC_KEY_FILE", ""),
		PrivateKeyFile: getEnv("BRIDGE_PRIVATE_KEY_FILE", ""),
		KeyID:          getEnv("BRIDGE_KEY_ID", ""),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", ""),
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		AdminOrigins:   getEnvAsSlice("ADMIN_ORIGINS", []string{"*"}),
		KeyCheckURL:    getEnv("KEY_CHECK_URL", "https://app.api2cart.com/request/key/check"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
