package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
)

// Loader handles configuration loading and parsing.
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.Parse(data)
}

// Parse parses configuration from YAML bytes.
func (l *Loader) Parse(data []byte) (*Config, error) {
	expanded := l.expandEnvVars(string(data))

	cfg := DefaultConfig()
	cfg.Servers = nil // let the file's own servers list replace the default

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(cfg.Servers) == 0 {
		cfg.Servers = DefaultConfig().Servers
	}

	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate checks configuration for errors, collecting every problem
// found rather than stopping at the first one.
func (l *Loader) validate(cfg *Config) error {
	var errs *multierror.Error

	if len(cfg.Realms) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one realm is required"))
	}
	realmURIs := make(map[string]bool, len(cfg.Realms))
	for i, r := range cfg.Realms {
		if r.URI == "" {
			errs = multierror.Append(errs, fmt.Errorf("realm %d: uri is required", i))
			continue
		}
		if realmURIs[r.URI] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate realm uri: %s", r.URI))
		}
		realmURIs[r.URI] = true

		switch r.Authorizer {
		case "", "allow_all", "deny_all", "ruleset":
		default:
			errs = multierror.Append(errs, fmt.Errorf("realm %s: unknown authorizer %q", r.URI, r.Authorizer))
		}
	}

	if len(cfg.Servers) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one server is required"))
	}
	serverIDs := make(map[string]bool, len(cfg.Servers))
	for i, s := range cfg.Servers {
		if s.ID == "" {
			errs = multierror.Append(errs, fmt.Errorf("server %d: id is required", i))
			continue
		}
		if serverIDs[s.ID] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate server id: %s", s.ID))
		}
		serverIDs[s.ID] = true

		if s.Address == "" {
			errs = multierror.Append(errs, fmt.Errorf("server %s: address is required", s.ID))
		}
		if s.TLS.Enabled {
			if s.TLS.CertFile == "" {
				errs = multierror.Append(errs, fmt.Errorf("server %s: tls enabled but cert_file not provided", s.ID))
			}
			if s.TLS.KeyFile == "" {
				errs = multierror.Append(errs, fmt.Errorf("server %s: tls enabled but key_file not provided", s.ID))
			}
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = multierror.Append(errs, fmt.Errorf("logging: invalid level %q", cfg.Logging.Level))
	}

	if cfg.Admission.SoftLimit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("admission: soft_limit must be >= 0"))
	}
	if cfg.Admission.HardLimit > 0 && cfg.Admission.SoftLimit > cfg.Admission.HardLimit {
		errs = multierror.Append(errs, fmt.Errorf("admission: soft_limit must be <= hard_limit"))
	}

	if cfg.AuthCache.Enabled && cfg.AuthCache.Address == "" {
		errs = multierror.Append(errs, fmt.Errorf("auth_cache: address is required when enabled"))
	}

	return errs.ErrorOrNil()
}

// Merge combines two configurations, with overlay taking precedence.
func Merge(base, overlay *Config) *Config {
	merged := MergeNonZero(*base, *overlay)
	return &merged
}
