package models

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string `json:"port,omitzero" yaml:"port"`
	MediaPort      string `json:"media_port,omitzero" yaml:"media_port"`
	PublicHost     string `json:"public_host,omitzero" yaml:"public_host"`
	AllowedOrigins string `json:"allowed_origins,omitzero" yaml:"allowed_origins"`
	Environment    string `json:"environment,omitzero" yaml:"environment"`
	LogLevel       string `json:"log_level,omitzero" yaml:"log_level"`
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgresql"
	MySQL      DatabaseType = "mysql"
	SQLite     DatabaseType = "sqlite"
	ClickHouse DatabaseType = "clickhouse"
)

type DatabaseConfig struct {
	Type     DatabaseType `yaml:"type" json:"type"`
	DSN      string       `yaml:"dsn,omitempty" json:"dsn,omitzero"`
	Host     string       `yaml:"host,omitempty" json:"host,omitzero"`
	Port     int          `yaml:"port,omitempty" json:"port,omitzero"`
	Username string       `yaml:"username,omitempty" json:"username,omitzero"`
	Password string       `yaml:"password,omitempty" json:"password,omitzero"`
	Database string       `yaml:"database" json:"database"`
	SSLMode  string       `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitzero"`
	FilePath string       `yaml:"file_path,omitempty" json:"file_path,omitzero"`

	MaxOpenConns    int `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitzero"`
	MaxIdleConns    int `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitzero"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitzero"`
}

type RedisConfig struct {
	URL      string `yaml:"url,omitempty" json:"url,omitzero"`
	Addr     string `yaml:"addr,omitempty" json:"addr,omitzero"`
	Password string `yaml:"password,omitempty" json:"password,omitzero"`
	DB       int    `yaml:"db,omitempty" json:"db,omitzero"`
}

// BillingConfig tunes the session governor and the price sync job.
// Intervals are in the units their names state; zero values fall back to
// the defaults in the governor and billing packages.
type BillingConfig struct {
	SettlementIntervalSeconds int `yaml:"settlement_interval_seconds,omitempty" json:"settlement_interval_seconds,omitzero"`
	CutoffPollMillis          int `yaml:"cutoff_poll_millis,omitempty" json:"cutoff_poll_millis,omitzero"`
	PriceSyncIntervalMinutes  int `yaml:"price_sync_interval_minutes,omitempty" json:"price_sync_interval_minutes,omitzero"`
	PriceCacheTTLSeconds      int `yaml:"price_cache_ttl_seconds,omitempty" json:"price_cache_ttl_seconds,omitzero"`
}

// EngineConfig configures the conversation engine's LLM upstream.
type EngineConfig struct {
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url,omitzero"`
	APIKey       string `yaml:"api_key,omitempty" json:"-"`
	DefaultModel string `yaml:"default_model,omitempty" json:"default_model,omitzero"`
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"system_prompt,omitzero"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid,omitempty" json:"account_sid,omitzero"`
	AuthToken  string `yaml:"auth_token,omitempty" json:"-"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key,omitempty" json:"-"`
	WebhookSecret string `yaml:"webhook_secret,omitempty" json:"-"`
	SuccessURL    string `yaml:"success_url,omitempty" json:"success_url,omitzero"`
	CancelURL     string `yaml:"cancel_url,omitempty" json:"cancel_url,omitzero"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	JWTSecret string `yaml:"jwt_secret,omitempty" json:"-"`
}
