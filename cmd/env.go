package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brandintel/internal/kit"
	"github.com/sells-group/brandintel/internal/projection"
	"github.com/sells-group/brandintel/internal/store"
	"github.com/sells-group/brandintel/internal/tracker"
	"github.com/sells-group/brandintel/pkg/brandengine"
)

// appEnv bundles the wired components every subcommand works against.
type appEnv struct {
	Store      store.Store
	Engine     brandengine.Client
	Reconciler *kit.Reconciler
	Catalog    *projection.PlatformCatalog
	Mat        *tracker.Materializer
	Tracker    *tracker.Tracker
}

func (e *appEnv) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	engine := brandengine.NewClient(
		brandengine.WithBaseURL(cfg.Engine.BaseURL),
		brandengine.WithRateLimit(cfg.Engine.RatePerSecond),
		brandengine.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Engine.TimeoutSecs) * time.Second,
		}),
	)

	catalog := projection.DefaultCatalog()
	if cfg.Extract.PlatformCatalog != "" {
		catalog, err = projection.LoadCatalog(cfg.Extract.PlatformCatalog)
		if err != nil {
			st.Close()
			return nil, eris.Wrap(err, "load platform catalog")
		}
	}

	rec := kit.NewReconciler(kit.FallbackOptions{
		ScalarConfidence: cfg.Extract.ScalarConfidence,
		ListConfidence:   cfg.Extract.ListConfidence,
	})
	mat := tracker.NewMaterializer(st, catalog)

	return &appEnv{
		Store:      st,
		Engine:     engine,
		Reconciler: rec,
		Catalog:    catalog,
		Mat:        mat,
		Tracker:    tracker.New(st, engine, rec, mat),
	}, nil
}
