package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	drift "github.com/driftmq/drift-go"
)

var (
	subscribeGroups   []string
	subscribePresence bool
)

func init() {
	subscribeCmd.Flags().StringSliceVar(&subscribeGroups, "group", nil, "channel groups to subscribe")
	subscribeCmd.Flags().BoolVar(&subscribePresence, "presence", false, "also subscribe presence companions")
	rootCmd.AddCommand(subscribeCmd)
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <channel> [channel...]",
	Short: "Subscribe to channels and print events until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)
		defer client.Destroy()

		client.AddListener(&drift.Listener{
			OnStatus: func(s *drift.Status) {
				fmt.Printf("-- status: %s (tt=%d)\n", s.Category, s.CurrentTimetoken)
			},
			OnMessage: func(m *drift.Message) {
				fmt.Printf("[%s] %s\n", m.Channel, string(m.Payload))
			},
			OnPresence: func(p *drift.PresenceEvent) {
				fmt.Printf("[%s] presence: %s %s\n", p.Channel, p.Event, p.UUID)
			},
		})

		client.Subscribe(args, subscribeGroups, subscribePresence)
		fmt.Printf("Subscribed to %s; press ctrl-c to stop.\n", strings.Join(args, ", "))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		client.UnsubscribeAll()
		return nil
	},
}
