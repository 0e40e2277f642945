package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/store"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsOffset int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List tracked analysis jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "jobs")
		if err != nil {
			return err
		}
		defer env.Close()

		profiles, err := env.Store.ListProfiles(ctx, store.ProfileFilter{
			Status: model.JobStatus(jobsStatus),
			Limit:  jobsLimit,
			Offset: jobsOffset,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (queued|processing|complete|failed)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum rows to list")
	jobsCmd.Flags().IntVar(&jobsOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(jobsCmd)
}
