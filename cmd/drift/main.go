package main

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	drift "github.com/driftmq/drift-go"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.drift/config.toml.
type Config struct {
	Keys     ConfigKeys     `toml:"keys"`
	Behavior ConfigBehavior `toml:"behavior"`
}

// ConfigKeys holds the service credentials.
type ConfigKeys struct {
	SubscribeKey string `toml:"subscribe_key"`
	PublishKey   string `toml:"publish_key"`
	SecretKey    string `toml:"secret_key"`
	AuthKey      string `toml:"auth_key"`
	UUID         string `toml:"uuid"`
	Origin       string `toml:"origin"`
}

// ConfigBehavior holds subscribe-loop flags.
type ConfigBehavior struct {
	Restore           bool `toml:"restore"`
	CatchUp           bool `toml:"catch_up"`
	KeepTimetoken     bool `toml:"keep_timetoken"`
	PresenceHeartbeat int  `toml:"presence_heartbeat"`
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns the path to ~/.drift, creating it if needed.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	dir := filepath.Join(home, ".drift")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrap(err, "cannot create config directory")
	}
	return dir, nil
}

func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file. If the file does not exist,
// it returns a Config with empty keys and the restore, catch-up and
// keep-timetoken behaviors enabled.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Behavior: ConfigBehavior{Restore: true, CatchUp: true, KeepTimetoken: true}}, nil
		}
		return nil, errors.Wrap(err, "cannot read config")
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot encode config")
	}
	return os.WriteFile(path, data, 0o600)
}

// newClient builds a drift client from the CLI configuration.
func newClient(cfg *Config) *drift.Client {
	dc := drift.NewConfig()
	dc.SubscribeKey = cfg.Keys.SubscribeKey
	dc.PublishKey = cfg.Keys.PublishKey
	dc.SecretKey = cfg.Keys.SecretKey
	dc.AuthKey = cfg.Keys.AuthKey
	if cfg.Keys.UUID != "" {
		dc.UUID = cfg.Keys.UUID
	}
	if cfg.Keys.Origin != "" {
		dc.Origin = cfg.Keys.Origin
	}
	dc.RestoreSubscription = cfg.Behavior.Restore
	dc.CatchUpOnRestore = cfg.Behavior.CatchUp
	dc.KeepTimeTokenOnListChange = cfg.Behavior.KeepTimetoken
	dc.PresenceHeartbeatValue = cfg.Behavior.PresenceHeartbeat
	return drift.NewClient(dc)
}

// ============================================================================
// Root command
// ============================================================================

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Drift real-time messaging CLI",
	Long:  "Subscribe to and publish on Drift channels from the terminal.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
