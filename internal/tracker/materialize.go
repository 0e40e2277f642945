package tracker

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/projection"
	"github.com/sells-group/brandintel/internal/store"
)

// Materializer persists a reconciled brand kit and fans out the derived
// projections. The kit upsert is the primary write; each projection builder
// runs in its own recover scope so one broken extractor cannot block the
// others or undo the kit row.
type Materializer struct {
	store   store.Store
	catalog *projection.PlatformCatalog
}

// NewMaterializer creates a Materializer. A nil catalog falls back to the
// embedded platform set.
func NewMaterializer(st store.Store, catalog *projection.PlatformCatalog) *Materializer {
	if catalog == nil {
		catalog = projection.DefaultCatalog()
	}
	return &Materializer{store: st, catalog: catalog}
}

// Materialize upserts the kit row and rebuilds the roadmap, social, and
// summary projections from it. Only the kit upsert can fail the call;
// projection failures are logged and swallowed because every projection is
// re-derivable from the persisted kit.
func (m *Materializer) Materialize(ctx context.Context, k *model.BrandKit) error {
	if err := m.store.UpsertKit(ctx, k); err != nil {
		return eris.Wrapf(err, "materialize: upsert kit %s", k.ProfileID)
	}

	m.runBuilder(k.ProfileID, "roadmap", func() error {
		rm := projection.BuildRoadmap(k.ProfileID, k.BrandRoadmap)
		if len(rm.Campaigns) == 0 && len(rm.Milestones) == 0 && len(rm.Tasks) == 0 {
			return nil
		}
		return m.store.UpsertRoadmap(ctx, rm)
	})

	m.runBuilder(k.ProfileID, "social", func() error {
		profiles := projection.ExtractSocialProfiles(k.ProfileID, k.Comprehensive, m.catalog)
		return m.store.ReplaceSocialProfiles(ctx, k.ProfileID, profiles)
	})

	// Summary goes last so its flags reflect whatever the builders above
	// managed to persist from this kit.
	m.runBuilder(k.ProfileID, "summary", func() error {
		return m.store.UpdateSummary(ctx, k.ProfileID, projection.BuildSummary(k))
	})

	return nil
}

// RefreshSummary recomputes the summary scalars from the stored kit without
// touching any other projection. Used when a completed job is re-observed.
func (m *Materializer) RefreshSummary(ctx context.Context, profileID string) error {
	k, err := m.store.GetKit(ctx, profileID)
	if err != nil {
		return eris.Wrapf(err, "materialize: refresh summary %s", profileID)
	}
	return m.store.UpdateSummary(ctx, profileID, projection.BuildSummary(k))
}

func (m *Materializer) runBuilder(profileID, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("projection builder panicked",
				zap.String("profile_id", profileID),
				zap.String("builder", name),
				zap.Any("panic", r))
		}
	}()

	if err := fn(); err != nil {
		zap.L().Error("projection builder failed",
			zap.String("profile_id", profileID),
			zap.String("builder", name),
			zap.Error(err))
	}
}
