package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relatics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func commandFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("relatics", pflag.ContinueOnError)
	flags.String("company", "", "")
	flags.String("workspace", "", "")
	flags.String("entry-code", "", "")
	flags.String("client-id", "", "")
	flags.String("client-secret", "", "")
	flags.Bool("no-color", false, "")
	flags.BoolP("yes", "y", false, "")
	return flags
}

func TestLoad(t *testing.T) {
	t.Run("reads values from a config file", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\nworkspace: ws-123\nentry_code: CODE\n")

		cfg, err := Load(path, nil)
		require.NoError(t, err)
		require.Equal(t, "acme", cfg.Company)
		require.Equal(t, "ws-123", cfg.Workspace)
		require.Equal(t, "CODE", cfg.EntryCode)
		require.False(t, cfg.NoColor)
	})

	t.Run("env vars override the config file", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\nworkspace: ws-123\n")
		t.Setenv("RELATICS_WORKSPACE", "ws-from-env")

		cfg, err := Load(path, nil)
		require.NoError(t, err)
		require.Equal(t, "ws-from-env", cfg.Workspace)
		require.Equal(t, "acme", cfg.Company)
	})

	t.Run("flags override env vars", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\n")
		t.Setenv("RELATICS_WORKSPACE", "ws-from-env")

		flags := commandFlags()
		require.NoError(t, flags.Parse([]string{"--workspace", "ws-from-flag"}))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		require.Equal(t, "ws-from-flag", cfg.Workspace)
	})

	t.Run("unset flags do not clobber configured values", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\nworkspace: ws-123\n")

		cfg, err := Load(path, commandFlags())
		require.NoError(t, err)
		require.Equal(t, "ws-123", cfg.Workspace)
	})

	t.Run("reads the confirmation skip from the environment", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\n")
		t.Setenv("RELATICS_YES", "true")

		cfg, err := Load(path, nil)
		require.NoError(t, err)
		require.True(t, cfg.Yes)
	})

	t.Run("reads the confirmation skip from flags", func(t *testing.T) {
		path := writeConfigFile(t, "company: acme\n")

		flags := commandFlags()
		require.NoError(t, flags.Parse([]string{"--yes"}))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		require.True(t, cfg.Yes)
	})

	t.Run("defaults include the user agent", func(t *testing.T) {
		cfg, err := Load(writeConfigFile(t, "company: acme\n"), nil)
		require.NoError(t, err)
		require.Contains(t, cfg.UserAgent, "go-relatics/")
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts a complete config", func(t *testing.T) {
		cfg := &Config{Company: "acme", Workspace: "ws-123"}
		require.NoError(t, cfg.Validate())
	})

	t.Run("requires company and workspace", func(t *testing.T) {
		require.Error(t, (&Config{Workspace: "ws"}).Validate())
		require.Error(t, (&Config{Company: "acme"}).Validate())
	})

	t.Run("requires client credentials in pairs", func(t *testing.T) {
		cfg := &Config{Company: "acme", Workspace: "ws", ClientID: "id"}
		require.Error(t, cfg.Validate())

		cfg.ClientSecret = "secret"
		require.NoError(t, cfg.Validate())
	})
}
