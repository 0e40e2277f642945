package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/resilience"
)

var (
	pollWait     bool
	pollInterval time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll <profile-id>",
	Short: "Poll the engine once for a job and apply the observed transition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "poll")
		if err != nil {
			return err
		}
		defer env.Close()

		profileID := args[0]
		for {
			p, err := env.Tracker.Poll(ctx, profileID)
			if err != nil {
				if pollWait && resilience.IsServiceUnavailable(err) {
					zap.L().Warn("engine unavailable, retrying",
						zap.String("profile_id", profileID),
						zap.Duration("interval", pollInterval))
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(pollInterval):
						continue
					}
				}
				return err
			}

			if !pollWait || p.Status.Terminal() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollWait, "wait", false, "keep polling until the job reaches a terminal status")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 10*time.Second, "poll interval when --wait is set")
	rootCmd.AddCommand(pollCmd)
}
