package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/config"
	"github.com/sells-group/brandintel/internal/kit"
	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/monitoring"
	"github.com/sells-group/brandintel/internal/resilience"
	"github.com/sells-group/brandintel/pkg/brandengine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		// Background health checks while the API is up.
		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.Store),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type api struct {
	env *appEnv
	cfg *config.Config
}

func newRouter(env *appEnv, cfg *config.Config) http.Handler {
	a := &api{env: env, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Owner-Token"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Post("/analyze", a.handleAnalyze)
	r.Get("/jobs/{id}", a.handlePollJob)
	r.Post("/jobs/{id}/modules", a.handleAnalyzeModule)
	r.Get("/profiles/{id}", a.handleGetProfile)
	r.Get("/profiles/{id}/kit", a.handleGetKit)
	r.Post("/profiles/{id}/kit/patch", a.handlePatchKit)
	r.Get("/profiles/{id}/modules/{jobID}", a.handlePollModuleJob)

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL   string `json:"url"`
		Depth int    `json:"depth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, &resilience.ValidationError{Field: "url", Reason: "required"})
		return
	}

	depth := req.Depth
	if depth == 0 {
		depth = a.cfg.Engine.AnalyzeDepth
	}

	resp, err := a.env.Engine.Analyze(r.Context(), brandengine.AnalyzeRequest{URL: req.URL, Depth: depth})
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := a.env.Store.CreateProfile(r.Context(), resp.JobID, r.Header.Get("X-Owner-Token"), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, p)
}

func (a *api) handlePollJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.checkOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.env.Tracker.Poll(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) handleAnalyzeModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.checkOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ModuleID  string `json:"module_id"`
		PersonaID string `json:"persona_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &resilience.ValidationError{Field: "module_id", Reason: "required"})
		return
	}
	if err := kit.ValidateModuleID(req.ModuleID); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.env.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := a.env.Engine.AnalyzeModule(r.Context(), brandengine.AnalyzeModuleRequest{
		URL:       p.URL,
		ModuleID:  req.ModuleID,
		PersonaID: req.PersonaID,
		JobID:     p.ID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handlePollModuleJob polls a module-scoped job and, when it completed,
// merges the returned section patch into the parent profile's kit.
func (a *api) handlePollModuleJob(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	jobID := chi.URLParam(r, "jobID")
	if err := a.checkOwner(r, profileID); err != nil {
		writeError(w, err)
		return
	}

	resp, err := a.env.Engine.GetModuleJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	if resp.Status != brandengine.StatusComplete || resp.Result == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	k, err := a.env.Store.GetKit(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	merged, err := kit.ApplyModulePatch(k.Comprehensive, resp.ModuleID, resp.Result.BrandKitPatch)
	if err != nil {
		writeError(w, err)
		return
	}
	k.Comprehensive = merged
	k.Source = model.KitSourceReanalyzed
	k.GeneratedAt = time.Now().UTC()
	if err := a.env.Mat.Materialize(r.Context(), k); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":      resp.JobID,
		"module_id":   resp.ModuleID,
		"status":      resp.Status,
		"kit_version": k.Version,
	})
}

func (a *api) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.checkOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.env.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) handleGetKit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.checkOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	k, err := a.env.Store.GetKit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (a *api) handlePatchKit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.checkOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ModuleID string         `json:"module_id"`
		Patch    map[string]any `json:"patch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Patch == nil {
		writeError(w, &resilience.ValidationError{Field: "patch", Reason: "required"})
		return
	}
	k, err := a.env.Store.GetKit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	merged, err := kit.ApplyModulePatch(k.Comprehensive, req.ModuleID, req.Patch)
	if err != nil {
		writeError(w, err)
		return
	}
	k.Comprehensive = merged
	k.Source = model.KitSourceManual
	k.GeneratedAt = time.Now().UTC()
	if err := a.env.Mat.Materialize(r.Context(), k); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id":  id,
		"module_id":   req.ModuleID,
		"kit_version": k.Version,
	})
}

// checkOwner enforces the ownership header against the profile's recorded
// owner. Profiles created without an owner are open.
func (a *api) checkOwner(r *http.Request, profileID string) error {
	p, err := a.env.Store.GetProfile(r.Context(), profileID)
	if err != nil {
		return err
	}
	if p.OwnerID != "" && p.OwnerID != r.Header.Get("X-Owner-Token") {
		return &resilience.UnauthorizedError{Kind: "profile", ID: profileID}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		ve *resilience.ValidationError
		ue *resilience.UnauthorizedError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &ue):
		status = http.StatusForbidden
	case resilience.IsNotFound(err):
		status = http.StatusNotFound
	case resilience.IsServiceUnavailable(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
