package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Portal    PortalConfig
	Upstream  UpstreamConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	OTEL      OTELConfig
	Metrics   MetricsConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// PortalConfig holds the subdomain routing table inputs
type PortalConfig struct {
	RootDomain        string
	EnvPrefix         string
	AdminSubdomain    string
	ProviderSubdomain string
	HostSubdomain     string
	HostPaths         []string
	PublicPaths       []string
	RedirectStatus    int
	DefaultScheme     string
}

// UpstreamConfig holds the frontend origin the gateway proxies to
type UpstreamConfig struct {
	URL            string
	HealthPath     string
	TimeoutSeconds int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host                  string
	Port                  int
	Password              string
	DB                    int
	Enabled               bool
	StaticCacheTTLSeconds int
}

// AnalyticsConfig holds redirect analytics configuration
type AnalyticsConfig struct {
	Enabled           bool
	RetentionDays     int
	RetentionSchedule string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Namespace string
}

// DefaultHostPaths are the path prefixes owned by the host portal.
var DefaultHostPaths = []string{
	"/dashboard",
	"/listings",
	"/calendar",
	"/reservations",
	"/inbox",
	"/chat",
	"/channels",
	"/settings",
	"/automation",
	"/templates",
	"/notifications",
	"/cleaning",
	"/dev-portal",
	"/support",
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Portal: PortalConfig{
			RootDomain:        strings.ToLower(getEnv("PORTAL_ROOT_DOMAIN", "")),
			EnvPrefix:         strings.ToLower(getEnv("PORTAL_ENV_PREFIX", "")),
			AdminSubdomain:    strings.ToLower(getEnv("ADMIN_SUBDOMAIN", "admin")),
			ProviderSubdomain: strings.ToLower(getEnv("PROVIDER_SUBDOMAIN", "provider")),
			HostSubdomain:     strings.ToLower(getEnv("HOST_SUBDOMAIN", "hoster")),
			HostPaths:         getEnvAsList("HOST_PORTAL_PATHS", DefaultHostPaths),
			PublicPaths:       getEnvAsList("PUBLIC_PATHS", nil),
			RedirectStatus:    getEnvAsInt("REDIRECT_STATUS", http.StatusTemporaryRedirect),
			DefaultScheme:     getEnv("DEFAULT_SCHEME", "https"),
		},
		Upstream: UpstreamConfig{
			URL:            getEnv("UPSTREAM_URL", "http://localhost:3000"),
			HealthPath:     getEnv("UPSTREAM_HEALTH_PATH", "/"),
			TimeoutSeconds: getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "host_portal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:                  getEnv("REDIS_HOST", "localhost"),
			Port:                  getEnvAsInt("REDIS_PORT", 6379),
			Password:              getEnv("REDIS_PASSWORD", ""),
			DB:                    getEnvAsInt("REDIS_DB", 0),
			Enabled:               getEnvAsBool("REDIS_ENABLED", true),
			StaticCacheTTLSeconds: getEnvAsInt("STATIC_CACHE_TTL_SECONDS", 3600),
		},
		Analytics: AnalyticsConfig{
			Enabled:           getEnvAsBool("ANALYTICS_ENABLED", false),
			RetentionDays:     getEnvAsInt("ANALYTICS_RETENTION_DAYS", 30),
			RetentionSchedule: getEnv("ANALYTICS_RETENTION_SCHEDULE", "@daily"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "portal-gateway"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "portal_gateway"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would make the gateway misroute traffic
func (c *Config) Validate() error {
	switch c.Portal.RedirectStatus {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("REDIRECT_STATUS %d is not a redirect status", c.Portal.RedirectStatus))
	}

	subdomains := map[string]string{
		"ADMIN_SUBDOMAIN":    c.Portal.AdminSubdomain,
		"PROVIDER_SUBDOMAIN": c.Portal.ProviderSubdomain,
		"HOST_SUBDOMAIN":     c.Portal.HostSubdomain,
	}
	seen := make(map[string]string, len(subdomains))
	for key, value := range subdomains {
		if value == "" || strings.Contains(value, ".") {
			return apperrors.NewValidationError(key + " must be a single non-empty label")
		}
		if other, dup := seen[value]; dup {
			return apperrors.NewValidationError(fmt.Sprintf("%s and %s share subdomain %q", key, other, value))
		}
		seen[value] = key
	}

	if c.Portal.DefaultScheme != "http" && c.Portal.DefaultScheme != "https" {
		return apperrors.NewValidationError("DEFAULT_SCHEME must be http or https")
	}

	u, err := url.Parse(c.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.NewValidationError(fmt.Sprintf("UPSTREAM_URL %q must be an absolute URL", c.Upstream.URL))
	}

	return nil
}

// ServerAddr returns the listen address
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
