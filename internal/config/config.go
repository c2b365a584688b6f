package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the QuerySage server.
type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	Redis     RedisConfig
	Knowledge KnowledgeConfig
	Feedback  FeedbackConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type WarehouseConfig struct {
	Driver       string // "postgres" or "http"
	URL          string
	Username     string
	Password     string
	MaxConns     int
	QueryTimeout time.Duration
	PollInterval time.Duration
	RowCap       int
}

type RedisConfig struct {
	URL            string // optional; empty disables the query result cache
	QueryResultTTL time.Duration
}

type KnowledgeConfig struct {
	Dir         string
	QueriesDir  string
	Workers     int
	PreviewRows int
}

type FeedbackConfig struct {
	Dir        string
	ReportsDir string
}

type AuthConfig struct {
	Keys           []APIKey
	RequestsPerMin int
}

// APIKey is a configured API credential: the raw key is presented as a
// bearer token and compared against Hash with bcrypt.
type APIKey struct {
	Name   string
	Hash   string
	Scopes []string
}

var validDrivers = map[string]bool{
	"postgres": true,
	"http":     true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	knowledgeDir := envString("KNOWLEDGE_DIR", "knowledge")
	feedbackDir := envString("FEEDBACK_DIR", "feedback")

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QUERYSAGE_PORT", 8080),
			Env:  envString("QUERYSAGE_ENV", "development"),
		},
		Warehouse: WarehouseConfig{
			Driver:       os.Getenv("WAREHOUSE_DRIVER"),
			URL:          os.Getenv("WAREHOUSE_URL"),
			Username:     os.Getenv("WAREHOUSE_USERNAME"),
			Password:     os.Getenv("WAREHOUSE_PASSWORD"),
			MaxConns:     envInt("WAREHOUSE_MAX_CONNS", 5),
			QueryTimeout: envDuration("WAREHOUSE_QUERY_TIMEOUT", 5*time.Minute),
			PollInterval: envDuration("WAREHOUSE_POLL_INTERVAL", time.Second),
			RowCap:       envInt("WAREHOUSE_ROW_CAP", 100),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("REDIS_URL"),
			QueryResultTTL: envDuration("QUERY_CACHE_TTL", 0),
		},
		Knowledge: KnowledgeConfig{
			Dir:         knowledgeDir,
			QueriesDir:  envString("QUERIES_DIR", filepath.Join(knowledgeDir, "queries")),
			Workers:     envInt("KNOWLEDGE_WORKERS", 4),
			PreviewRows: envInt("KNOWLEDGE_PREVIEW_ROWS", 20),
		},
		Feedback: FeedbackConfig{
			Dir:        feedbackDir,
			ReportsDir: envString("REPORTS_DIR", filepath.Join(feedbackDir, "reports")),
		},
		Auth: AuthConfig{
			Keys:           parseAPIKeys(os.Getenv("QUERYSAGE_API_KEYS")),
			RequestsPerMin: envInt("RATE_LIMIT_PER_MIN", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Warehouse.Driver == "" {
		return fmt.Errorf("WAREHOUSE_DRIVER is required")
	}
	if !validDrivers[c.Warehouse.Driver] {
		return fmt.Errorf("WAREHOUSE_DRIVER must be one of postgres, http; got %q", c.Warehouse.Driver)
	}

	if c.Warehouse.URL == "" {
		return fmt.Errorf("WAREHOUSE_URL is required")
	}
	if c.Warehouse.Driver == "http" &&
		!strings.HasPrefix(c.Warehouse.URL, "http://") && !strings.HasPrefix(c.Warehouse.URL, "https://") {
		return fmt.Errorf("WAREHOUSE_URL must start with http:// or https:// for the http driver, got %q", c.Warehouse.URL)
	}

	if c.Warehouse.RowCap < 1 {
		return fmt.Errorf("WAREHOUSE_ROW_CAP must be positive, got %d", c.Warehouse.RowCap)
	}
	if c.Knowledge.Workers < 1 {
		return fmt.Errorf("KNOWLEDGE_WORKERS must be positive, got %d", c.Knowledge.Workers)
	}

	if c.Server.Env == "production" && len(c.Auth.Keys) == 0 {
		return fmt.Errorf("QUERYSAGE_API_KEYS is required in production")
	}

	return nil
}

// parseAPIKeys parses comma-separated "name:bcrypt-hash:scope+scope" entries.
// Malformed entries are dropped; validate() catches the all-dropped case in
// production.
func parseAPIKeys(raw string) []APIKey {
	var keys []APIKey
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			continue
		}
		var scopes []string
		for _, s := range strings.Split(parts[2], "+") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		keys = append(keys, APIKey{Name: parts[0], Hash: parts[1], Scopes: scopes})
	}
	return keys
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
