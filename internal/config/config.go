package config

import (
	"strconv"
	"time"
)

type ServerConfig struct {
	Scheme string `koanf:"scheme" default:"http"`
	Port   int    `koanf:"port" default:"8082" validate:"min=1,max=65535"`
	Host   string `koanf:"host" default:"localhost"`

	ReadTimeout     time.Duration `koanf:"read_timeout" default:"5s"`
	WriteTimeout    time.Duration `koanf:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" default:"30s"`

	AllowOrigins []string `koanf:"alloworigins" default:"[]"`
	BodyLimit    string   `koanf:"body_limit" default:"64K"`
	HealthCheck  bool     `koanf:"health_check" default:"true"`
}

func (s *ServerConfig) GetServerURL() string {
	return s.Scheme + "://" + s.Host + ":" + strconv.Itoa(s.Port)
}

type APPConfig struct {
	Environment string `koanf:"environment" default:"development" validate:"oneof=development production test"`
	LogLevel    string `koanf:"log_level" default:"debug"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" default:"sqlite" validate:"oneof=sqlite pgx"`
	DSN    string `koanf:"dsn" default:"servicecheck.db" validate:"required"`
	// Creates the providers/services tables when missing. Disable when the
	// tables are owned by another application.
	EnsureSchema bool `koanf:"ensure_schema" default:"true"`
	// Pool bounds for pgx; SQLite always uses a single connection.
	MaxOpenConns    int           `koanf:"max_open_conns" default:"10" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" default:"30m"`
}

type CheckerConfig struct {
	Interval     time.Duration `koanf:"interval" default:"10m" validate:"min=1s"`
	MaxWorkers   int           `koanf:"max_workers" default:"4" validate:"min=1"`
	RunAtStartup bool          `koanf:"run_at_startup" default:"false"`
	DryRun       bool          `koanf:"dry_run" default:"false"`
	// Upper bound for a whole run; zero disables it.
	RunTimeout time.Duration `koanf:"run_timeout" default:"0s"`
}

type FetcherConfig struct {
	Timeout            time.Duration `koanf:"timeout" default:"120s" validate:"min=1s"`
	UserAgent          string        `koanf:"user_agent" default:"Mozilla/4.0 (compatible; MSIE 5.01; Windows NT 5.0)"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify" default:"true"`
	SendTokenField     bool          `koanf:"send_token_field" default:"false"`
	MaxBodySize        int           `koanf:"max_body_size" default:"10485760" validate:"min=0"`
	Action             string        `koanf:"action" default:"services" validate:"required"`
}

type MailConfig struct {
	Host       string        `koanf:"host" default:""`
	Port       int           `koanf:"port" default:"587" validate:"min=1,max=65535"`
	Username   string        `koanf:"username" default:""`
	Password   string        `koanf:"password" default:""`
	From       string        `koanf:"from" default:"servicecheck@localhost" validate:"required"`
	AdminEmail string        `koanf:"admin_email" default:"" validate:"omitempty,email"`
	TLS        string        `koanf:"tls" default:"opportunistic" validate:"oneof=opportunistic mandatory none"`
	Timeout    time.Duration `koanf:"timeout" default:"15s"`
}

type ArchiveConfig struct {
	Enabled  bool          `koanf:"enabled" default:"false"`
	Path     string        `koanf:"path" default:"./catalogs"`
	InMemory bool          `koanf:"in_memory" default:"true"`
	TTL      time.Duration `koanf:"ttl" default:"168h"`
}

type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled" default:"false"`
	ServiceName    string `koanf:"service_name" default:"servicecheck"`
	ServiceVersion string `koanf:"service_version" default:"v0.1.0"`
	// OTEL_EXPORTER_OTLP_ENDPOINT overrides it when set.
	OTLPEndpoint string `koanf:"otlp_endpoint" default:"localhost:4317"`
	OTLPInsecure bool   `koanf:"otlp_insecure" default:"true"`
	// Fraction of root spans kept; child spans follow their parent.
	SampleRatio float64 `koanf:"sample_ratio" default:"1" validate:"min=0,max=1"`
}

type Config struct {
	APP       APPConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Checker   CheckerConfig   `koanf:"checker"`
	Fetcher   FetcherConfig   `koanf:"fetcher"`
	Mail      MailConfig      `koanf:"mail"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}
