package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brandintel/pkg/brandengine"
)

var (
	analyzeOwner string
	analyzeDepth int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url> [url...]",
	Short: "Trigger analysis for one or more brand URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		depth := analyzeDepth
		if depth == 0 {
			depth = cfg.Engine.AnalyzeDepth
		}

		type enqueued struct {
			JobID string `json:"job_id"`
			URL   string `json:"url"`
		}
		results := make([]enqueued, len(args))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Engine.RefreshWorkers)
		for i, url := range args {
			g.Go(func() error {
				resp, err := env.Engine.Analyze(gctx, brandengine.AnalyzeRequest{URL: url, Depth: depth})
				if err != nil {
					return eris.Wrapf(err, "analyze %s", url)
				}
				// The v2 contract: the profile shares the engine job id.
				if _, err := env.Store.CreateProfile(gctx, resp.JobID, analyzeOwner, url); err != nil {
					return eris.Wrapf(err, "create profile %s", resp.JobID)
				}
				zap.L().Info("analysis enqueued",
					zap.String("job_id", resp.JobID),
					zap.String("url", url))
				results[i] = enqueued{JobID: resp.JobID, URL: url}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOwner, "owner", "", "owner token recorded on the profile")
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "crawl depth (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}
