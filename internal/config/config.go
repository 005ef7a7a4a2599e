// Package config loads the CLI configuration from file, environment
// variables, and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"relatics.dev/relatics/internal/version"
)

// Config holds everything the CLI needs to construct a client.
type Config struct {
	// Company selects the hosted environment <company>.relaticsonline.com.
	Company string `koanf:"company"`

	// Workspace is the workspace identification.
	Workspace string `koanf:"workspace"`

	// EntryCode authenticates operations configured for entry-code access.
	EntryCode string `koanf:"entry_code"`

	// ClientID and ClientSecret authenticate via OAuth2 client credentials.
	// They take precedence over the entry code when both are set.
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// UserAgent overrides the default user agent.
	UserAgent string `koanf:"user_agent"`

	// BaseURL overrides the derived host URL. Mainly for tests against a
	// local mock server.
	BaseURL string `koanf:"base_url"`

	// LogFile enables rotating file logging when set.
	LogFile string `koanf:"log_file"`

	// NoColor disables colored output.
	NoColor bool `koanf:"no_color"`

	// Yes skips confirmation prompts, for scripted use.
	Yes bool `koanf:"yes"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > ./relatics.yaml > ./relatics.yml >
// ~/.config/relatics/config.yaml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"relatics.yaml", "relatics.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".config", "relatics", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load loads the configuration.
// Precedence (highest to lowest): flags > RELATICS_* env vars > config file
// > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"user_agent": version.UserAgent(),
		"no_color":   false,
		"yes":        false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if configFile := findConfigFile(cfgFile); configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Environment variables: RELATICS_CLIENT_ID -> client_id
	if err := k.Load(env.Provider("RELATICS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "RELATICS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags: --entry-code -> entry_code, only when explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient for webservice calls.
func (c *Config) Validate() error {
	if c.Company == "" {
		return fmt.Errorf("no company configured (set --company, RELATICS_COMPANY, or the config file)")
	}
	if c.Workspace == "" {
		return fmt.Errorf("no workspace configured (set --workspace, RELATICS_WORKSPACE, or the config file)")
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("client_id and client_secret must be configured together")
	}
	return nil
}
