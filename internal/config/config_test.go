package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.fatsecret.com.br", cfg.Source.BaseURL)
	assert.Equal(t, "https://www.fatsecret.com.br/calorias-nutri%C3%A7%C3%A3o/search?q=Vitao", cfg.Source.SearchURL)
	assert.Equal(t, "/calorias-nutri%C3%A7%C3%A3o/vitao/", cfg.Source.Namespace)
	assert.Equal(t, "pg", cfg.Source.PageParam)
	assert.Contains(t, cfg.Source.UserAgent, "Chrome/91")
	assert.Equal(t, 0, cfg.Crawl.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Crawl.MinInterval)
	assert.Equal(t, 30, cfg.Crawl.TimeoutSecs)
	assert.Equal(t, 1, cfg.Crawl.MaxAttempts)
	assert.Equal(t, 1, cfg.Scrape.Concurrency)
	assert.Equal(t, "Produto Vitao", cfg.Scrape.Category)
	assert.Equal(t, "Nome não encontrado", cfg.Scrape.NotFoundName)
	assert.Equal(t, filepath.Join("dados", "vitao_urls.json"), cfg.Output.LocatorsPath())
	assert.Equal(t, "vitao_nutricional", cfg.Output.RecordsFile)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Zero(t, cfg.Store.CacheTTL())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  search_url: https://example.com/search?q=granola
crawl:
  min_interval: 500ms
  max_pages: 4
scrape:
  concurrency: 3
output:
  formats: [csv, xlsx]
store:
  cache_ttl_hours: 12
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/search?q=granola", cfg.Source.SearchURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.MinInterval)
	assert.Equal(t, 4, cfg.Crawl.MaxPages)
	assert.Equal(t, 3, cfg.Scrape.Concurrency)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)
	assert.Equal(t, 12*time.Hour, cfg.Store.CacheTTL())
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "Produto Vitao", cfg.Scrape.Category)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  driver: sqlite\n"), 0o644))

	t.Setenv("NUTRI_STORE_DRIVER", "postgres")
	t.Setenv("NUTRI_CRAWL_MIN_INTERVAL", "3s")
	t.Setenv("NUTRI_OUTPUT_DIR", "out")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Crawl.MinInterval)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("crawl: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults(t)

	for _, mode := range []string{"collect", "scrape", "run", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults(t)
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults(t)

	cfg.Scrape.Concurrency = 0
	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scrape.concurrency must be between 1 and 16")

	cfg.Scrape.Concurrency = 17
	assert.Error(t, cfg.Validate("run"))

	cfg.Scrape.Concurrency = 16
	assert.NoError(t, cfg.Validate("run"))

	cfg.Scrape.Concurrency = 0
	assert.NoError(t, cfg.Validate("collect"), "collect does not scrape")
}

func TestValidateCollect_Errors(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Source.SearchURL = ""
	cfg.Crawl.MinInterval = -time.Second
	cfg.Crawl.MaxAttempts = 0
	cfg.Output.Formats = []string{"csv", "parquet"}

	err := cfg.Validate("collect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.search_url is required")
	assert.Contains(t, err.Error(), "crawl.min_interval must be >= 0")
	assert.Contains(t, err.Error(), "crawl.max_attempts must be >= 1")
	assert.Contains(t, err.Error(), "unsupported format parquet")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required for postgres")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestRedactedDatabaseURL(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"url with password", "postgres://scraper:s3cret@db:5432/nutri?sslmode=disable", "postgres://scraper:xxxxx@db:5432/nutri?sslmode=disable"},
		{"url without password", "postgres://scraper@db/nutri", "postgres://scraper@db/nutri"},
		{"key value", "host=db user=scraper password=s3cret dbname=nutri", "host=db user=scraper password=xxxxx dbname=nutri"},
		{"quoted key value", "host=db password='s3 cret' dbname=nutri", "host=db password=xxxxx dbname=nutri"},
		{"sqlite path", "state/nutrition.db", "state/nutrition.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StoreConfig{DatabaseURL: tt.dsn}.RedactedDatabaseURL()
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "s3")
		})
	}
}

func TestConfigRedactedLeavesOriginal(t *testing.T) {
	c := &Config{Store: StoreConfig{DatabaseURL: "postgres://u:pw@h/db"}}
	r := c.Redacted()

	assert.Equal(t, "postgres://u:xxxxx@h/db", r.Store.DatabaseURL)
	assert.Equal(t, "postgres://u:pw@h/db", c.Store.DatabaseURL)
}
