package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultEndpoint       = "https://api.valueserp.com/search"
	DefaultGoogleDomain   = "google.co.uk"
	DefaultCountry        = "gb"
	DefaultLanguage       = "en"
	DefaultQuerySuffix    = " Stockists"
	DefaultTargetPosition = 1
	DefaultHomepageDepth  = 2
	DefaultInputFile      = "brands.txt"
	DefaultOutputFile     = "brand_links_output.csv"
	DefaultDelay          = time.Second
	DefaultTimeout        = 30 * time.Second

	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds every tunable of a run. It is built once and handed to the
// components that need it.
type Config struct {
	APIKey       string `mapstructure:"api_key"`
	Endpoint     string `mapstructure:"endpoint"`
	GoogleDomain string `mapstructure:"google_domain"`
	Country      string `mapstructure:"country"`
	Language     string `mapstructure:"language"`

	QuerySuffix    string `mapstructure:"query_suffix"`
	TargetPosition int    `mapstructure:"target_position"`
	HomepageDepth  int    `mapstructure:"homepage_depth"`

	BaseDir    string `mapstructure:"base_dir"`
	InputFile  string `mapstructure:"input_file"`
	OutputFile string `mapstructure:"output_file"`

	Delay      time.Duration `mapstructure:"delay"`
	Jitter     float64       `mapstructure:"jitter"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TLSProfile string        `mapstructure:"tls_profile"`
	ProxyURL   string        `mapstructure:"proxy_url"`

	Backend     string `mapstructure:"backend"`
	DSN         string `mapstructure:"dsn"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Report      string `mapstructure:"report"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("google_domain", DefaultGoogleDomain)
	v.SetDefault("country", DefaultCountry)
	v.SetDefault("language", DefaultLanguage)
	v.SetDefault("query_suffix", DefaultQuerySuffix)
	v.SetDefault("target_position", DefaultTargetPosition)
	v.SetDefault("homepage_depth", DefaultHomepageDepth)
	v.SetDefault("base_dir", "")
	v.SetDefault("input_file", DefaultInputFile)
	v.SetDefault("output_file", DefaultOutputFile)
	v.SetDefault("delay", DefaultDelay)
	v.SetDefault("jitter", 0.0)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("tls_profile", "go")
	v.SetDefault("proxy_url", "")
	v.SetDefault("backend", BackendCSV)
	v.SetDefault("dsn", "")
	v.SetDefault("metrics_port", 0)
	v.SetDefault("report", "text")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads the optional config file at path, overlays STOCKISTS_*
// environment variables and decodes the result into a Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("stockists")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// WithDefaults fills zero fields with the package defaults. It is meant for
// a Config built by hand, such as in tests, where zero means unset. Load
// does not call it, so an explicit homepage_depth of 0 is kept.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.GoogleDomain == "" {
		c.GoogleDomain = DefaultGoogleDomain
	}
	if c.Country == "" {
		c.Country = DefaultCountry
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.TargetPosition == 0 {
		c.TargetPosition = DefaultTargetPosition
	}
	if c.HomepageDepth == 0 {
		c.HomepageDepth = DefaultHomepageDepth
	}
	if c.InputFile == "" {
		c.InputFile = DefaultInputFile
	}
	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TLSProfile == "" {
		c.TLSProfile = "go"
	}
	if c.Backend == "" {
		c.Backend = BackendCSV
	}
	if c.Report == "" {
		c.Report = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	return c
}

// Validate reports settings a run cannot proceed with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if c.TargetPosition < 1 {
		errs = append(errs, fmt.Errorf("target_position must be >= 1, got %d", c.TargetPosition))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay cannot be negative: %s", c.Delay))
	}
	switch c.Backend {
	case BackendCSV, BackendJSON, BackendSQLite:
	case BackendPostgres:
		if c.DSN == "" {
			errs = append(errs, errors.New("dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	switch c.Report {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown report format %q", c.Report))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
