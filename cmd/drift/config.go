package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage drift configuration",
	Long:  "View or modify the drift CLI configuration stored in ~/.drift/config.toml.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No configuration file found. Run 'drift config set keys.subscribe_key <key>' to create one.")
				return nil
			}
			return errors.Wrap(err, "cannot read config file")
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value using dot notation.\nExample: drift config set keys.subscribe_key sub-...",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s.\n", key)
		return nil
	},
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "keys.subscribe_key":
		cfg.Keys.SubscribeKey = value
	case "keys.publish_key":
		cfg.Keys.PublishKey = value
	case "keys.secret_key":
		cfg.Keys.SecretKey = value
	case "keys.auth_key":
		cfg.Keys.AuthKey = value
	case "keys.uuid":
		cfg.Keys.UUID = value
	case "keys.origin":
		cfg.Keys.Origin = value
	case "behavior.restore", "behavior.catch_up", "behavior.keep_timetoken":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "%s expects a boolean", key)
		}
		switch key {
		case "behavior.restore":
			cfg.Behavior.Restore = b
		case "behavior.catch_up":
			cfg.Behavior.CatchUp = b
		case "behavior.keep_timetoken":
			cfg.Behavior.KeepTimetoken = b
		}
	case "behavior.presence_heartbeat":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "%s expects an integer", key)
		}
		cfg.Behavior.PresenceHeartbeat = n
	default:
		return errors.Errorf("unknown configuration key %q", key)
	}
	return nil
}
