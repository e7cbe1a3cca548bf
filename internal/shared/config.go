package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	CatalogSource string // file | mysql
	CatalogPath   string
	MySQLDSN      string

	TrackingStore   string // redis | mysql | none
	TrackingWorkers int
	TrackingTimeout time.Duration

	RedisAddr string
	RedisDB   int
	RedisPass string

	CacheTTL      time.Duration
	QueryMaxLimit int
	CORSOrigins   []string

	DatasetBase  string
	DatasetToken string
	BuildWorkers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("var", k).Str("value", v).Msg("ignoring non-numeric value")
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		CatalogSource:   strings.ToLower(env("CATALOG_SOURCE", "file")),
		CatalogPath:     env("CATALOG_PATH", ""),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/halalcities?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		TrackingStore:   strings.ToLower(env("TRACKING_STORE", "redis")),
		TrackingWorkers: atoi("TRACKING_WORKERS", 16),
		TrackingTimeout: time.Duration(atoi("TRACKING_TIMEOUT_MS", 2000)) * time.Millisecond,
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		QueryMaxLimit:   atoi("QUERY_MAX_LIMIT", 500),
		CORSOrigins:     splitList(env("CORS_ORIGINS", "*")),
		DatasetBase:     env("DATASET_BASE_URL", ""),
		DatasetToken:    env("DATASET_TOKEN", ""),
		BuildWorkers:    atoi("BUILD_WORKERS", 8),
	}
	switch c.CatalogSource {
	case "file", "mysql":
	default:
		log.Warn().Str("value", c.CatalogSource).Msg("unknown CATALOG_SOURCE, using file")
		c.CatalogSource = "file"
	}
	switch c.TrackingStore {
	case "redis", "mysql", "none":
	default:
		log.Warn().Str("value", c.TrackingStore).Msg("unknown TRACKING_STORE, using none")
		c.TrackingStore = "none"
	}
	return c
}

// Dev reports whether the process runs with human-readable logs.
func (c Config) Dev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
