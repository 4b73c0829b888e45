package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Crawl  CrawlConfig  `yaml:"crawl" mapstructure:"crawl"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SourceConfig identifies the remote catalog.
type SourceConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	SearchURL string `yaml:"search_url" mapstructure:"search_url"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	PageParam string `yaml:"page_param" mapstructure:"page_param"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CrawlConfig configures fetching.
type CrawlConfig struct {
	MaxPages    int           `yaml:"max_pages" mapstructure:"max_pages"`
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ScrapeConfig configures record assembly.
type ScrapeConfig struct {
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	Category     string `yaml:"category" mapstructure:"category"`
	NotFoundName string `yaml:"not_found_name" mapstructure:"not_found_name"`
}

// OutputConfig configures the data directory and file names.
type OutputConfig struct {
	Dir          string   `yaml:"dir" mapstructure:"dir"`
	LocatorsFile string   `yaml:"locators_file" mapstructure:"locators_file"`
	RecordsFile  string   `yaml:"records_file" mapstructure:"records_file"`
	Formats      []string `yaml:"formats" mapstructure:"formats"`
}

// LocatorsPath returns the path of the locator list.
func (c OutputConfig) LocatorsPath() string {
	return filepath.Join(c.Dir, c.LocatorsFile)
}

// StoreConfig configures run history and the page cache.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CacheTTL returns the page cache lifetime. Zero disables the cache.
func (c StoreConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

var dsnPassword = regexp.MustCompile(`(?i)(password=)('[^']*'|\S+)`)

// RedactedDatabaseURL returns DatabaseURL with any password masked, for both
// URL and key=value connection strings.
func (c StoreConfig) RedactedDatabaseURL() string {
	if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			return u.Redacted()
		}
		return c.DatabaseURL
	}
	return dsnPassword.ReplaceAllString(c.DatabaseURL, "${1}xxxxx")
}

// Redacted returns a copy of c that is safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Output.Formats = append([]string(nil), c.Output.Formats...)
	out.Store.DatabaseURL = c.Store.RedactedDatabaseURL()
	return &out
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NUTRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.base_url", "https://www.fatsecret.com.br")
	v.SetDefault("source.search_url", "https://www.fatsecret.com.br/calorias-nutri%C3%A7%C3%A3o/search?q=Vitao")
	v.SetDefault("source.namespace", "/calorias-nutri%C3%A7%C3%A3o/vitao/")
	v.SetDefault("source.page_param", "pg")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.min_interval", "2s")
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.max_attempts", 1)
	v.SetDefault("scrape.concurrency", 1)
	v.SetDefault("scrape.category", "Produto Vitao")
	v.SetDefault("scrape.not_found_name", "Nome não encontrado")
	v.SetDefault("output.dir", "dados")
	v.SetDefault("output.locators_file", "vitao_urls.json")
	v.SetDefault("output.records_file", "vitao_nutricional")
	v.SetDefault("output.formats", []string{"csv"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "state/nutrition.db")
	v.SetDefault("store.cache_ttl_hours", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var knownFormats = map[string]bool{"csv": true, "json": true, "xlsx": true}

// Validate checks the settings needed by the given command mode: "collect",
// "scrape", "run", or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	needCrawl := false
	needOutput := false
	switch mode {
	case "collect":
		needCrawl, needOutput = true, true
	case "scrape", "run":
		needCrawl, needOutput = true, true
		if c.Scrape.Concurrency < 1 || c.Scrape.Concurrency > 16 {
			errs = append(errs, "scrape.concurrency must be between 1 and 16")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needCrawl {
		if c.Source.SearchURL == "" {
			errs = append(errs, "source.search_url is required")
		}
		if c.Source.Namespace == "" {
			errs = append(errs, "source.namespace is required")
		}
		if c.Crawl.MinInterval < 0 {
			errs = append(errs, "crawl.min_interval must be >= 0")
		}
		if c.Crawl.MaxPages < 0 {
			errs = append(errs, "crawl.max_pages must be >= 0")
		}
		if c.Crawl.MaxAttempts < 1 {
			errs = append(errs, "crawl.max_attempts must be >= 1")
		}
	}
	if needOutput {
		if c.Output.LocatorsFile == "" {
			errs = append(errs, "output.locators_file is required")
		}
		if c.Output.RecordsFile == "" {
			errs = append(errs, "output.records_file is required")
		}
		for _, f := range c.Output.Formats {
			if !knownFormats[strings.ToLower(f)] {
				errs = append(errs, "output.formats: unsupported format "+f)
			}
		}
	}

	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}
	if c.Store.CacheTTLHours < 0 {
		errs = append(errs, "store.cache_ttl_hours must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
