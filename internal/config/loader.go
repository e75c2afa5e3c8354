package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/billm/framehub/pkg/types"
)

// envVarPattern matches ${VAR_NAME} and ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(:-([^}]*))?\}`)

// interpolateEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} placeholders
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 4 {
			return parts[3]
		}
		return ""
	})
}

// validateFilePath checks if the file path is valid and has the correct extension
func validateFilePath(path string) error {
	if path == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "configuration file path cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return types.NewError(types.ErrCodeInvalidArgument,
			"configuration file must have .yaml or .yml extension, got: "+ext)
	}
	return nil
}

// ReadYAML reads a YAML file, interpolates environment placeholders and decodes it into out
func ReadYAML(path string, out any) error {
	if err := validateFilePath(path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.WrapError(types.ErrCodeNotFound, "file not found: "+path, err)
		}
		return types.WrapError(types.ErrCodeInvalidArgument, "failed to read file: "+path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return types.NewError(types.ErrCodeInvalid, "file is empty: "+path)
	}

	expanded := interpolateEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return types.WrapError(types.ErrCodeInvalid, "YAML type error in "+path, err)
		}
		return types.WrapError(types.ErrCodeInvalid, "invalid YAML syntax in "+path, err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, applies defaults and validates it
func LoadFromFile(path string) (*Config, error) {
	var cfg Config
	if err := ReadYAML(path, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, types.WrapError(types.ErrCodeInvalid, "configuration validation failed for "+path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides configuration fields from FRAMEHUB_* environment variables.
// Fields whose variables are unset keep their current values.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, "parse environment", err)
	}
	return nil
}
