// Package config loads the agent's configuration. For simplicity we lump
// every component's settings into one struct and let viper layer an
// optional YAML file under environment variables prefixed CERT_AGENT,
// following the same file-plus-env layering the original implementation
// used. No defaults are baked into the zero value of Config itself;
// Load applies them explicitly so the source of every value is visible
// in one place.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/cert-agent/cert-agent/agenterrors"
)

// GRPCConfig controls the RPC listener.
type GRPCConfig struct {
	BindAddress    string
	MaxMessageSize int
	TLS            TLSConfig
}

// TLSConfig controls the optional mTLS listener.
type TLSConfig struct {
	Enabled           bool
	ServerCertFile    string
	ServerKeyFile     string
	ClientCACertFile  string
	RequireClientCert bool
}

// RedisConfig controls how the store reaches redis.
type RedisConfig struct {
	URL            string
	MaxConnections int
}

// CertificateConfig controls the CA and leaf issuance defaults.
type CertificateConfig struct {
	CADir                string
	CACommonName         string
	CAOrganization       string
	CACountry            string
	StoragePath          string
	DefaultValidityDays  int
	RenewalThresholdDays int
	KeySize              int
	// SignatureAlgorithm is descriptive only: every certificate this agent
	// signs uses SHA-256, the only algorithm implemented today.
	SignatureAlgorithm string
}

// WatcherConfig controls the renewal loop's cadence.
type WatcherConfig struct {
	CheckIntervalSeconds  int
	RenewalThresholdDays  int
	MaxConcurrentRenewals int
	CleanupAfterDays      int
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// Config stores every component's settings. We lump them into one struct
// and use viper to read it from a file and/or the environment.
type Config struct {
	GRPC        GRPCConfig
	Redis       RedisConfig
	Certificate CertificateConfig
	Watcher     WatcherConfig
	Log         LogConfig
}

// Load reads configuration from path (if it exists) layered with
// environment variables prefixed CERT_AGENT_, e.g. CERT_AGENT_REDIS_URL
// overrides redis.url. path may be empty, in which case only defaults and
// the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("CERT_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, agenterrors.InvalidRequestError("reading config file %s: %s", path, err)
			}
		}
	}

	cfg := &Config{
		GRPC: GRPCConfig{
			BindAddress:    v.GetString("grpc.bind_address"),
			MaxMessageSize: v.GetInt("grpc.max_message_size"),
			TLS: TLSConfig{
				Enabled:           v.GetBool("grpc.tls.enabled"),
				ServerCertFile:    v.GetString("grpc.tls.server_cert_file"),
				ServerKeyFile:     v.GetString("grpc.tls.server_key_file"),
				ClientCACertFile:  v.GetString("grpc.tls.client_ca_cert_file"),
				RequireClientCert: v.GetBool("grpc.tls.require_client_cert"),
			},
		},
		Redis: RedisConfig{
			URL:            v.GetString("redis.url"),
			MaxConnections: v.GetInt("redis.max_connections"),
		},
		Certificate: CertificateConfig{
			CADir:                v.GetString("certificate.ca_dir"),
			CACommonName:         v.GetString("certificate.ca_common_name"),
			CAOrganization:       v.GetString("certificate.ca_organization"),
			CACountry:            v.GetString("certificate.ca_country"),
			StoragePath:          v.GetString("certificate.storage_path"),
			DefaultValidityDays:  v.GetInt("certificate.default_validity_days"),
			RenewalThresholdDays: v.GetInt("certificate.renewal_threshold_days"),
			KeySize:              v.GetInt("certificate.key_size"),
			SignatureAlgorithm:   v.GetString("certificate.signature_algorithm"),
		},
		Watcher: WatcherConfig{
			CheckIntervalSeconds:  v.GetInt("watcher.check_interval_seconds"),
			RenewalThresholdDays:  v.GetInt("watcher.renewal_threshold_days"),
			MaxConcurrentRenewals: v.GetInt("watcher.max_concurrent_renewals"),
			CleanupAfterDays:      v.GetInt("watcher.cleanup_after_days"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("grpc.bind_address", "0.0.0.0:50051")
	v.SetDefault("grpc.max_message_size", 4*1024*1024)
	v.SetDefault("grpc.tls.enabled", false)
	v.SetDefault("grpc.tls.require_client_cert", false)

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.max_connections", 10)

	v.SetDefault("certificate.ca_dir", "./certs/ca")
	// The well-known single-tenant CA subject spec.md fixes: CN=Cert Agent
	// CA, O=Cert Agent, C=US. Exposed as config only so a deployment can
	// override it; the shipped defaults match the spec's constant exactly.
	v.SetDefault("certificate.ca_common_name", "Cert Agent CA")
	v.SetDefault("certificate.ca_organization", "Cert Agent")
	v.SetDefault("certificate.ca_country", "US")
	v.SetDefault("certificate.storage_path", "./certs/issued")
	v.SetDefault("certificate.default_validity_days", 365)
	v.SetDefault("certificate.renewal_threshold_days", 30)
	v.SetDefault("certificate.key_size", 2048)
	v.SetDefault("certificate.signature_algorithm", "sha256")

	v.SetDefault("watcher.check_interval_seconds", 3600)
	v.SetDefault("watcher.renewal_threshold_days", 30)
	v.SetDefault("watcher.max_concurrent_renewals", 10)
	v.SetDefault("watcher.cleanup_after_days", 30)

	v.SetDefault("log.level", "info")
}
