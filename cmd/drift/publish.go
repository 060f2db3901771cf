package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <message>",
	Short: "Publish a message on a channel",
	Long:  "Publish a message on a channel. The message is sent as a JSON string unless it already parses as JSON.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)
		defer client.Destroy()

		var payload interface{} = args[1]
		var parsed interface{}
		if err := json.Unmarshal([]byte(args[1]), &parsed); err == nil {
			payload = parsed
		}

		if _, err := client.Publish(args[0], payload); err != nil {
			return err
		}
		fmt.Println("Published.")
		return nil
	},
}
