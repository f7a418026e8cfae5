package config

// ServiceConfig is the orchestrated service configuration. It can come
// from a TOML file or from ORCHESTRATOR_* environment variables.
type ServiceConfig struct {
	// rpc configs
	Port int    `toml:"port"`
	Host string `toml:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	Environment    string `toml:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url"`

	InsecureOTLP bool `toml:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode"`

	// Ledger access. The first URL is the primary node, the rest are
	// failover backups.
	NodeURLs []string `toml:"node_urls"`

	// Contract accounts
	AmmID  string `toml:"amm_id"`
	WrapID string `toml:"wrap_id"`

	// Settlement confirmation window
	PollIntervalMs int `toml:"poll_interval_ms"`
	PollAttempts   int `toml:"poll_attempts"`

	// Cache refetch delay after a settled action, in milliseconds
	RefetchDelayMs int `toml:"refetch_delay_ms"`

	// Optional known-token table for metadata fallback
	TokensPath string `toml:"tokens_path"`
}

// TokenEntry is one row of the known-token table.
type TokenEntry struct {
	ID       string `toml:"id"`
	Symbol   string `toml:"symbol"`
	Name     string `toml:"name"`
	Decimals int    `toml:"decimals"`
	IconURI  string `toml:"icon_uri"`
}

// TokensFile is the on-disk known-token table.
type TokensFile struct {
	Tokens []TokenEntry `toml:"tokens"`
}
