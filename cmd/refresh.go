package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
	"github.com/sells-group/brandintel/internal/store"
	"github.com/sells-group/brandintel/pkg/brandengine"
)

var refreshFromEngine bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [profile-id...]",
	Short: "Re-derive projections for completed jobs from their stored kits",
	Long: "Without arguments, every completed profile is refreshed. With --from-engine the " +
		"canonical result is re-fetched from the engine and reconciled before re-extraction; " +
		"otherwise the stored kit is the source.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "refresh")
		if err != nil {
			return err
		}
		defer env.Close()

		ids := args
		if len(ids) == 0 {
			profiles, err := env.Store.ListProfiles(ctx, store.ProfileFilter{
				Status: model.JobStatusComplete,
				Limit:  10000,
			})
			if err != nil {
				return err
			}
			for _, p := range profiles {
				ids = append(ids, p.ID)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Engine.RefreshWorkers)
		for _, id := range ids {
			g.Go(func() error {
				if err := refreshOne(gctx, env, id); err != nil {
					// A profile without a kit is skippable, not fatal for
					// the batch.
					if resilience.IsNotFound(err) || resilience.IsDataUnavailable(err) {
						zap.L().Warn("refresh skipped",
							zap.String("profile_id", id),
							zap.Error(err))
						return nil
					}
					return eris.Wrapf(err, "refresh %s", id)
				}
				zap.L().Info("projections refreshed", zap.String("profile_id", id))
				return nil
			})
		}
		return g.Wait()
	},
}

func refreshOne(ctx context.Context, env *appEnv, profileID string) error {
	if refreshFromEngine {
		resp, err := env.Engine.GetJob(ctx, profileID, brandengine.FormatComprehensive)
		if err != nil {
			return err
		}
		if resp.Status != brandengine.StatusComplete {
			return &resilience.DataUnavailableError{JobID: profileID}
		}
		k, err := env.Reconciler.Reconcile(profileID, resp.Result)
		if err != nil {
			return err
		}
		k.Source = model.KitSourceReanalyzed
		return env.Mat.Materialize(ctx, k)
	}

	k, err := env.Store.GetKit(ctx, profileID)
	if err != nil {
		return err
	}
	return env.Mat.Materialize(ctx, k)
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshFromEngine, "from-engine", false, "re-fetch results from the engine instead of the stored kit")
	rootCmd.AddCommand(refreshCmd)
}
