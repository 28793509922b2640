package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	pollInterval time.Duration
	sensorMode   bool
	reportStatus string
	reportValue  float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for commands and report state in a loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := newClient(serverURL)
		c.apiKey = apiKey

		state := "locked"
		log.Printf("simulating device against %s every %s", serverURL, pollInterval)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			// Drain the queue before reporting.
			for {
				command, err := c.nextCommand()
				if err != nil {
					log.Printf("command poll failed: %v", err)
					break
				}
				if command == nil {
					break
				}
				switch command.Action {
				case "unlock":
					state = "unlocked"
				case "lock":
					state = "locked"
				}
				log.Printf("applied command %d: %s -> %s", command.ID, command.Action, state)
			}

			payload := reportPayload{Status: state}
			if sensorMode {
				v := 20 + rand.Float64()*8
				payload.NumericValue = &v
			}
			if err := c.report(payload); err != nil {
				log.Printf("report failed: %v", err)
			}

			select {
			case <-ctx.Done():
				log.Printf("stopping")
				return nil
			case <-ticker.C:
			}
		}
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send a single state report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		c := newClient(serverURL)
		c.apiKey = apiKey

		payload := reportPayload{Status: reportStatus}
		if cmd.Flags().Changed("value") {
			payload.NumericValue = &reportValue
		}
		if err := c.report(payload); err != nil {
			return err
		}
		fmt.Println("report accepted")
		return nil
	},
}

func init() {
	runCmd.Flags().DurationVar(&pollInterval, "interval", 5*time.Second, "poll interval")
	runCmd.Flags().BoolVar(&sensorMode, "sensor", false, "include a simulated temperature reading")

	reportCmd.Flags().StringVar(&reportStatus, "status", "active", "device status to report")
	reportCmd.Flags().Float64Var(&reportValue, "value", 0, "numeric value to report")
}
