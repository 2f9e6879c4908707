package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/spelfilter/internal/types"
)

// LoadConfig loads the filter API configuration.
// Precedence: environment > config file > defaults. CLI flags are applied
// by the caller on top of the result.
func LoadConfig(configPath string) (*FilterAPIConfig, error) {
	v := viper.New()

	d := DefaultFilterAPIConfig()
	v.SetDefault("filter_api.host", d.Host)
	v.SetDefault("filter_api.port", d.Port)
	v.SetDefault("filter_api.max_connections", d.MaxConnections)
	v.SetDefault("filter_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("filter_api.max_batch_size", d.MaxBatchSize)
	v.SetDefault("filter_api.max_query_length", d.MaxQueryLength)
	v.SetDefault("filter_api.data_dir", d.DataDir)

	// filter_api.port -> SF_FILTER_API_PORT
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := validateNoSecretsInConfig(configPath); err != nil {
			return nil, err
		}
	}

	cfg := &FilterAPIConfig{
		Host:           v.GetString("filter_api.host"),
		Port:           v.GetInt("filter_api.port"),
		MaxConnections: v.GetInt("filter_api.max_connections"),
		RequestTimeout: v.GetDuration("filter_api.request_timeout"),
		MaxBatchSize:   v.GetInt("filter_api.max_batch_size"),
		MaxQueryLength: v.GetInt("filter_api.max_query_length"),
		DataDir:        v.GetString("filter_api.data_dir"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *FilterAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.MaxBatchSize)
	}
	if cfg.MaxQueryLength <= 0 || cfg.MaxQueryLength > types.MaxQueryLength {
		return fmt.Errorf("max_query_length must be between 1 and %d, got %d", types.MaxQueryLength, cfg.MaxQueryLength)
	}
	return nil
}

// validateNoSecretsInConfig keeps secrets environment-only. The file is
// read without environment binding so SF_HMAC_SECRET itself does not trip
// the check.
func validateNoSecretsInConfig(configPath string) error {
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if file.IsSet("hmac_secret") || file.IsSet("filter_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s environment variable)", hmacSecretEnv)
	}
	return nil
}
