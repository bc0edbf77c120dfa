package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/json"
)

// Load reads a configuration file, expands ${ENV_VAR} references, decodes
// it over the defaults from New, and validates the result. The format is
// chosen by extension: .json decodes as JSON, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}

	expanded := os.Expand(string(data), func(key string) string {
		// Keep unknown references intact so validation surfaces them
		// instead of silently blanking a credential.
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return "${" + key + "}"
	})

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse JSON config")
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	return cfg, nil
}
