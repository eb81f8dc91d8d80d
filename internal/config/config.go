// Package config provides centralized configuration management for the
// registration tool. Settings come from struct-tag defaults, an optional YAML
// file named by ESU_CONFIG_FILE, and environment variables, in that order of
// precedence (later wins). Everything is validated on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/gib"
)

// Config holds all application configuration.
type Config struct {
	GIB      GIBConfig      `yaml:"gib"`
	Batch    BatchConfig    `yaml:"batch"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Security SecurityConfig `yaml:"security"`
}

// GIBConfig holds the registry credentials and company identity.
type GIBConfig struct {
	// CompanyCode is the registry-assigned firm code, also the Basic auth user
	CompanyCode string `env:"GIB_FIRMA_KODU" yaml:"firma_kodu" required:"true"`

	// Secret is the API password
	Secret string `env:"GIB_API_SIFRE" yaml:"api_sifre" required:"true"`

	// CompanyTaxID is the firm's 10 digit tax number (VKN)
	CompanyTaxID string `env:"FIRMA_VKN" yaml:"firma_vkn" required:"true"`

	// CompanyTitle is the firm's registered title
	CompanyTitle string `env:"FIRMA_UNVAN" yaml:"firma_unvan" required:"true"`

	// License is the EPDK charging network licence (ŞH/xxxxx-x/xxxxx)
	License string `env:"EPDK_LISANS_KODU" yaml:"epdk_lisans_kodu" required:"true"`

	// Production selects the production registry (default: false, test registry)
	Production bool `env:"PROD_API" yaml:"prod_api" default:"false"`

	// VerifyTLS enables certificate verification (default: true)
	VerifyTLS bool `env:"SSL_DOGRULAMA" yaml:"ssl_dogrulama" default:"true"`

	// UseTestCompany sends TestCompanyTaxID instead of CompanyTaxID
	UseTestCompany bool `env:"TEST_FIRMA_KULLAN" yaml:"test_firma_kullan" default:"false"`

	// TestCompanyTaxID is the tax number the test registry expects
	TestCompanyTaxID string `env:"GIB_TEST_FIRMA_VKN" yaml:"test_firma_vkn"`

	// APIURL overrides the registry root derived from Production
	APIURL string `env:"GIB_API_URL" yaml:"api_url"`

	// Timeout bounds a single registry call (default: 30s)
	Timeout time.Duration `env:"GIB_TIMEOUT" yaml:"timeout" default:"30s"`

	// LogRequests logs every outgoing payload at debug level
	LogRequests bool `env:"GIB_LOG_REQUESTS" yaml:"log_requests" default:"false"`
}

// BatchConfig holds bulk registration settings.
type BatchConfig struct {
	// InputPath is the default CSV or XLSX input (default: resources/data/esu_list.csv)
	InputPath string `env:"BATCH_INPUT" yaml:"input" default:"resources/data/esu_list.csv"`

	// Parallel runs records concurrently (default: false)
	Parallel bool `env:"BATCH_PARALLEL" yaml:"parallel" default:"false"`

	// Workers bounds concurrent records; 0 means max(NumCPU-2, 1)
	Workers int `env:"BATCH_WORKERS" yaml:"workers" default:"0"`

	// WriteReport writes the run summary to ReportPath (default: false)
	WriteReport bool `env:"BATCH_WRITE_REPORT" yaml:"write_report" default:"false"`

	// ReportPath is where the summary is written (default: gonderim_raporu.json)
	ReportPath string `env:"BATCH_REPORT_PATH" yaml:"report_path" default:"gonderim_raporu.json"`

	// MaxFileSize caps uploaded input files in bytes (default: 10MB)
	MaxFileSize int64 `env:"BATCH_MAX_FILE_SIZE" yaml:"max_file_size" default:"10485760"`

	// MaxConcurrentRuns is the number of runs the API executes at once (default: 2)
	MaxConcurrentRuns int `env:"BATCH_MAX_CONCURRENT_RUNS" yaml:"max_concurrent_runs" default:"2"`

	// MaxWaitTime is how long an API run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"BATCH_MAX_WAIT_TIME" yaml:"max_wait_time" default:"30s"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" yaml:"host" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" yaml:"port" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" yaml:"read_timeout" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, runs can be long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" yaml:"write_timeout" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" yaml:"request_timeout" default:"10m"`
}

// DatabaseConfig holds the optional run ledger connection. The ledger is
// disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" yaml:"url"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" yaml:"max_conns" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" yaml:"min_conns" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" yaml:"max_conn_lifetime" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" yaml:"max_conn_idle_time" default:"30m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" yaml:"level" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" yaml:"format" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" yaml:"enabled" default:"true"`
	Path    string `env:"METRICS_PATH" yaml:"path" default:"/metrics"`
}

// SecurityConfig holds HTTP API access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES" yaml:"trusted_proxies"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS" yaml:"api_keys"`

	// RequireAPIKey rejects API requests without a valid key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" yaml:"require_api_key" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Enabled reports whether a ledger database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// BaseURL resolves the registry root: the explicit override if set,
// otherwise the production or test deployment.
func (c *GIBConfig) BaseURL() string {
	if u := strings.TrimSpace(c.APIURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if c.Production {
		return gib.ProdBaseURL
	}
	return gib.TestBaseURL
}

// Credentials returns the Basic auth pair for the registry.
func (c *GIBConfig) Credentials() gib.Credentials {
	return gib.Credentials{CompanyCode: c.CompanyCode, Secret: c.Secret}
}

// Company returns the registering firm. With UseTestCompany the test tax
// number replaces the firm's own.
func (c *Config) Company() esu.Company {
	taxID := c.GIB.CompanyTaxID
	if c.GIB.UseTestCompany {
		taxID = c.GIB.TestCompanyTaxID
	}
	return esu.NewCompany(c.GIB.CompanyCode, taxID, c.GIB.CompanyTitle, c.GIB.License)
}
