package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"CATALOG_SOURCE", "TRACKING_STORE", "CACHE_TTL_SECONDS", "QUERY_MAX_LIMIT", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.CatalogSource != "file" || c.TrackingStore != "redis" {
		t.Fatalf("unexpected sources: %q %q", c.CatalogSource, c.TrackingStore)
	}
	if c.CacheTTL != 900*time.Second {
		t.Fatalf("cache ttl = %v", c.CacheTTL)
	}
	if c.QueryMaxLimit != 500 {
		t.Fatalf("max limit = %d", c.QueryMaxLimit)
	}
	if len(c.CORSOrigins) != 1 || c.CORSOrigins[0] != "*" {
		t.Fatalf("cors = %v", c.CORSOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "MySQL")
	t.Setenv("TRACKING_STORE", "bogus")
	t.Setenv("TRACKING_TIMEOUT_MS", "250")
	t.Setenv("QUERY_MAX_LIMIT", "abc")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	c := Load()
	if c.CatalogSource != "mysql" {
		t.Fatalf("catalog source = %q", c.CatalogSource)
	}
	if c.TrackingStore != "none" {
		t.Fatalf("tracking store = %q", c.TrackingStore)
	}
	if c.TrackingTimeout != 250*time.Millisecond {
		t.Fatalf("timeout = %v", c.TrackingTimeout)
	}
	if c.QueryMaxLimit != 500 {
		t.Fatalf("max limit = %d", c.QueryMaxLimit)
	}
	if len(c.CORSOrigins) != 2 {
		t.Fatalf("cors = %v", c.CORSOrigins)
	}
}
