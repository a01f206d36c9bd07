package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	SharePoint SharePointConfig
	Storage    StorageConfig
	Classifier ClassifierConfig
	Scan       ScanConfig
	Import     ImportConfig
	Swagger    SwaggerConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// Folder source providers
const (
	ProviderGraph = "graph"
	ProviderS3    = "s3"
)

// SharePointConfig holds the folder source settings. Credentials are injected from the
// environment (SPSYNC_SHAREPOINT_CLIENT_SECRET etc).
type SharePointConfig struct {
	Provider       string // graph or s3
	RootPath       string // remote root holding one folder per operation
	TenantID       string
	ClientID       string
	ClientSecret   string
	DriveID        string
	GraphBaseURL   string
	TokenURL       string // defaults to the Azure AD v2 endpoint for TenantID
	Scopes         []string
	RequestTimeout time.Duration
	MaxConcurrency int
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Bucket            string
	AccessKey         string
	SecretKey         string
	Region            string
	Endpoint          string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// ClassifierConfig holds extra filename patterns
type ClassifierConfig struct {
	OrderPatterns   []string
	InvoicePatterns []string
}

// Scan lease backends
const (
	LeaseBackendDatabase = "database"
	LeaseBackendRedis    = "redis"
)

// ScanConfig holds scan orchestration settings
type ScanConfig struct {
	Timeout          time.Duration
	LeaseBackend     string
	LeaseTTL         time.Duration
	ScheduleEnabled  bool
	ScheduleInterval time.Duration
}

// ImportConfig holds import pipeline settings
type ImportConfig struct {
	Timeout time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling (Pyroscope)
	ProfilingEnabled           bool
	ProfilingServerAddress     string   // e.g. "http://pyroscope:4040"
	ProfilingBasicAuthUser     string
	ProfilingBasicAuthPassword string
	ProfilingTypes             []string // empty selects cpu, alloc_space, inuse_space, goroutines
	ProfilingSpanProfiles      bool     // label CPU samples with span ids (needs tracing)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SPSYNC_ prefix (e.g., SPSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		SharePoint: SharePointConfig{
			Provider:       v.GetString("sharepoint.provider"),
			RootPath:       v.GetString("sharepoint.root_path"),
			TenantID:       v.GetString("sharepoint.tenant_id"),
			ClientID:       v.GetString("sharepoint.client_id"),
			ClientSecret:   v.GetString("sharepoint.client_secret"),
			DriveID:        v.GetString("sharepoint.drive_id"),
			GraphBaseURL:   v.GetString("sharepoint.graph_base_url"),
			TokenURL:       v.GetString("sharepoint.token_url"),
			Scopes:         v.GetStringSlice("sharepoint.scopes"),
			RequestTimeout: v.GetDuration("sharepoint.request_timeout"),
			MaxConcurrency: v.GetInt("sharepoint.max_concurrency"),
		},
		Storage: StorageConfig{
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Classifier: ClassifierConfig{
			OrderPatterns:   v.GetStringSlice("classifier.order_patterns"),
			InvoicePatterns: v.GetStringSlice("classifier.invoice_patterns"),
		},
		Scan: ScanConfig{
			Timeout:          v.GetDuration("scan.timeout"),
			LeaseBackend:     v.GetString("scan.lease_backend"),
			LeaseTTL:         v.GetDuration("scan.lease_ttl"),
			ScheduleEnabled:  v.GetBool("scan.schedule.enabled"),
			ScheduleInterval: v.GetDuration("scan.schedule.interval"),
		},
		Import: ImportConfig{
			Timeout: v.GetDuration("import.timeout"),
		},
		Swagger: SwaggerConfig{
			Enabled: v.GetBool("swagger.enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),

			ProfilingEnabled:           v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress:     v.GetString("telemetry.profiling_server_address"),
			ProfilingBasicAuthUser:     v.GetString("telemetry.profiling_basic_auth_user"),
			ProfilingBasicAuthPassword: v.GetString("telemetry.profiling_basic_auth_password"),
			ProfilingTypes:             v.GetStringSlice("telemetry.profiling_types"),
			ProfilingSpanProfiles:      v.GetBool("telemetry.profiling_span_profiles"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sharepoint-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "erp"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// scans can take a while on large trees
		cfg.HTTP.WriteTimeout = 90 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-ID", "X-User-Name"}
	}
	if cfg.SharePoint.Provider == "" {
		cfg.SharePoint.Provider = ProviderGraph
	}
	if cfg.SharePoint.RootPath == "" {
		cfg.SharePoint.RootPath = "Operations (Sales orders)"
	}
	if cfg.SharePoint.GraphBaseURL == "" {
		cfg.SharePoint.GraphBaseURL = "https://graph.microsoft.com/v1.0"
	}
	if cfg.SharePoint.TokenURL == "" && cfg.SharePoint.TenantID != "" {
		cfg.SharePoint.TokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token",
			url.PathEscape(cfg.SharePoint.TenantID))
	}
	if len(cfg.SharePoint.Scopes) == 0 {
		cfg.SharePoint.Scopes = []string{"https://graph.microsoft.com/.default"}
	}
	if cfg.SharePoint.RequestTimeout == 0 {
		cfg.SharePoint.RequestTimeout = 20 * time.Second
	}
	if cfg.SharePoint.MaxConcurrency == 0 {
		cfg.SharePoint.MaxConcurrency = 4
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Scan.Timeout == 0 {
		cfg.Scan.Timeout = 60 * time.Second
	}
	if cfg.Scan.LeaseBackend == "" {
		cfg.Scan.LeaseBackend = LeaseBackendDatabase
	}
	if cfg.Scan.LeaseTTL == 0 {
		cfg.Scan.LeaseTTL = 5 * time.Minute
	}
	if cfg.Scan.ScheduleInterval == 0 {
		cfg.Scan.ScheduleInterval = 15 * time.Minute
	}
	if cfg.Import.Timeout == 0 {
		cfg.Import.Timeout = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sharepoint-sync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.SharePoint.Provider {
	case ProviderGraph, ProviderS3:
	default:
		return fmt.Errorf("sharepoint.provider must be %q or %q, got %q", ProviderGraph, ProviderS3, c.SharePoint.Provider)
	}
	if strings.TrimSpace(c.SharePoint.RootPath) == "" {
		return fmt.Errorf("sharepoint.root_path is required")
	}
	if c.SharePoint.MaxConcurrency < 1 {
		return fmt.Errorf("sharepoint.max_concurrency must be positive")
	}

	switch c.Scan.LeaseBackend {
	case LeaseBackendDatabase, LeaseBackendRedis:
	default:
		return fmt.Errorf("scan.lease_backend must be %q or %q, got %q", LeaseBackendDatabase, LeaseBackendRedis, c.Scan.LeaseBackend)
	}
	if c.Scan.LeaseTTL < c.Scan.Timeout {
		return fmt.Errorf("scan.lease_ttl (%s) must not be shorter than scan.timeout (%s)", c.Scan.LeaseTTL, c.Scan.Timeout)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if err := c.SharePoint.validateCredentials(c.Storage); err != nil {
			return err
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServerAddress == "" {
		return fmt.Errorf("telemetry.profiling_server_address is required when profiling is enabled")
	}

	return nil
}

// validateCredentials checks that the selected provider has what it needs to authenticate.
func (s SharePointConfig) validateCredentials(storage StorageConfig) error {
	switch s.Provider {
	case ProviderGraph:
		missing := make([]string, 0, 4)
		if s.TenantID == "" && s.TokenURL == "" {
			missing = append(missing, "sharepoint.tenant_id")
		}
		if s.ClientID == "" {
			missing = append(missing, "sharepoint.client_id")
		}
		if s.ClientSecret == "" {
			missing = append(missing, "sharepoint.client_secret")
		}
		if s.DriveID == "" {
			missing = append(missing, "sharepoint.drive_id")
		}
		if len(missing) > 0 {
			return fmt.Errorf("graph provider requires %s", strings.Join(missing, ", "))
		}
	case ProviderS3:
		if storage.Bucket == "" {
			return fmt.Errorf("s3 provider requires storage.bucket")
		}
	}
	return nil
}

// CredentialsError returns the credential problem for the selected provider, if any.
// Outside production a missing credential is only logged at startup.
func (c *Config) CredentialsError() error {
	return c.SharePoint.validateCredentials(c.Storage)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
