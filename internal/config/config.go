package config

import "time"

// Config is the top-level router configuration: the realms to open at
// startup, the servers (WebSocket listeners) that accept connections
// onto them, and the ambient logging/metrics/admission/cache settings.
type Config struct {
	Realms    []RealmConfig   `yaml:"realms"`
	Servers   []ServerConfig  `yaml:"servers"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
	Admission AdmissionConfig `yaml:"admission"`
	AuthCache AuthCacheConfig `yaml:"auth_cache"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// TracingConfig configures the optional OpenTelemetry tracer
// (internal/tracing). Left disabled, every span call is a no-op.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// RealmConfig describes one realm to open at startup.
type RealmConfig struct {
	URI                              string   `yaml:"uri"`
	Authorizer                       string   `yaml:"authorizer"` // "allow_all", "deny_all", "ruleset"
	CallerDisclosure                 string   `yaml:"caller_disclosure"`
	PublisherDisclosure              string   `yaml:"publisher_disclosure"`
	StrictDisclosure                 bool     `yaml:"strict_disclosure"`
	TimeoutForwarding                bool     `yaml:"timeout_forwarding"`
	MetaAPIEnabled                   bool     `yaml:"meta_api_enabled"`
	MetaProcedureRegistrationAllowed bool     `yaml:"meta_procedure_registration_allowed"`
	MetaTopicPublicationAllowed      bool     `yaml:"meta_topic_publication_allowed"`
	TimestampPrecision               string   `yaml:"timestamp_precision"`
}

// ServerConfig describes one WebSocket listener. It names no realms:
// every listener serves whichever configured realm a HELLO asks for.
type ServerConfig struct {
	ID               string        `yaml:"id"`
	Address          string        `yaml:"address"`
	Path             string        `yaml:"path"`
	TLS              TLSConfig     `yaml:"tls"`
	ReadLimit        int64         `yaml:"read_limit"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	MessageRateLimit float64       `yaml:"message_rate_limit"`
	MessageBurst     int           `yaml:"message_burst"`
}

// TLSConfig carries certificate material for a server listener.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AdminConfig configures the additive, non-normative admin HTTP
// surface spec.md §6 names (GET /meta/... read endpoints over the
// meta-API).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig mirrors internal/logging.Config's fields so it can be
// unmarshaled directly from YAML and passed through to logging.New.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// AdmissionConfig mirrors internal/admission.Config's tunables.
type AdmissionConfig struct {
	SoftLimit          int           `yaml:"soft_limit"`
	HardLimit          int           `yaml:"hard_limit"`
	MonitoringInterval time.Duration `yaml:"monitoring_interval"`
	HelloTimeout       time.Duration `yaml:"hello_timeout"`
	ChallengeTimeout   time.Duration `yaml:"challenge_timeout"`
	StaleTimeout       time.Duration `yaml:"stale_timeout"`
	OverstayTimeout    time.Duration `yaml:"overstay_timeout"`
	BackoffMin         time.Duration `yaml:"backoff_min"`
	BackoffMax         time.Duration `yaml:"backoff_max"`
}

// AuthCacheConfig configures the optional distributed authorization
// cache (internal/authcache), per SPEC_FULL.md's OQ-1. Loader.validate
// checks these fields, but cmd/wampd does not read them: no Realm is
// wired to the cache, whether or not Enabled is set.
type AuthCacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a configuration with sensible defaults for a
// single-realm development deployment.
func DefaultConfig() *Config {
	return &Config{
		Servers: []ServerConfig{{
			ID:           "default",
			Address:      ":8080",
			Path:         "/ws",
			ReadLimit:    1 << 20,
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		}},
		Admin: AdminConfig{
			Enabled: true,
			Address: ":8081",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Admission: AdmissionConfig{
			SoftLimit:          4096,
			HardLimit:          8192,
			MonitoringInterval: time.Second,
			HelloTimeout:       5 * time.Second,
			ChallengeTimeout:   5 * time.Second,
			StaleTimeout:       60 * time.Second,
			OverstayTimeout:    24 * time.Hour,
			BackoffMin:         10 * time.Millisecond,
			BackoffMax:         time.Second,
		},
	}
}
