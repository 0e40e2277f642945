// Package tracker owns the analysis-job state machine. Each Poll call
// fetches the engine-side status for one profile, advances the persisted
// status along queued -> processing -> {complete | failed}, and on
// completion reconciles the result and materializes the kit and its
// derived projections.
//
// The tracker is safe under concurrent pollers without locks: the
// processing timestamp is a conditional store update, terminal timestamps
// are set at most once, and every materialized write is an upsert or a
// full replace.
package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/kit"
	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
	"github.com/sells-group/brandintel/internal/store"
	"github.com/sells-group/brandintel/pkg/brandengine"
)

// Tracker polls the engine and applies job transitions.
type Tracker struct {
	store      store.Store
	engine     brandengine.Client
	reconciler *kit.Reconciler
	mat        *Materializer
	now        func() time.Time
}

// New creates a Tracker.
func New(st store.Store, engine brandengine.Client, rec *kit.Reconciler, mat *Materializer) *Tracker {
	return &Tracker{
		store:      st,
		engine:     engine,
		reconciler: rec,
		mat:        mat,
		now:        time.Now,
	}
}

// Poll fetches the engine status for the profile's job and advances the
// persisted state machine. It returns the best-known profile after the
// observation was applied.
//
// Engine-communication failures surface as ServiceUnavailableError and
// leave the persisted status untouched. A complete job whose result carries
// no recognizable kit shape still lands terminal; the miss is logged and
// kit materialization is skipped.
func (t *Tracker) Poll(ctx context.Context, profileID string) (*model.Profile, error) {
	p, err := t.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	resp, err := t.engine.GetJob(ctx, p.ID, brandengine.FormatComprehensive)
	if err != nil {
		if resilience.IsServiceUnavailable(err) || resilience.IsTransient(err) {
			return nil, resilience.NewServiceUnavailable(err, 0)
		}
		return nil, eris.Wrapf(err, "tracker: poll job %s", p.ID)
	}

	switch resp.Status {
	case brandengine.StatusQueued:
		// Engine has not picked the job up yet.
		return p, nil

	case brandengine.StatusProcessing:
		return t.observeProcessing(ctx, p)

	case brandengine.StatusFailed:
		return t.observeFailed(ctx, p, resp)

	case brandengine.StatusComplete:
		return t.observeComplete(ctx, p, resp)

	default:
		return nil, eris.Errorf("tracker: job %s reported unknown status %q", p.ID, resp.Status)
	}
}

func (t *Tracker) observeProcessing(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	if p.Status.Terminal() {
		// Stale observation behind a terminal state; never regress.
		return p, nil
	}

	won, err := t.store.MarkProcessing(ctx, p.ID, t.now().UTC())
	if err != nil {
		return nil, err
	}
	if won {
		zap.L().Info("analysis started",
			zap.String("profile_id", p.ID))
	}
	return t.store.GetProfile(ctx, p.ID)
}

func (t *Tracker) observeFailed(ctx context.Context, p *model.Profile, resp *brandengine.JobResponse) (*model.Profile, error) {
	if p.Status.Terminal() {
		return p, nil
	}

	msg := resp.Error
	if msg == "" {
		msg = "analysis failed without a reported reason"
	}
	if err := t.store.FailJob(ctx, p.ID, t.now().UTC(), msg); err != nil {
		return nil, err
	}
	zap.L().Warn("analysis failed",
		zap.String("profile_id", p.ID),
		zap.String("reason", msg))
	return t.store.GetProfile(ctx, p.ID)
}

func (t *Tracker) observeComplete(ctx context.Context, p *model.Profile, resp *brandengine.JobResponse) (*model.Profile, error) {
	// Re-observed completion: the kit is already materialized, so only the
	// summary scalars get refreshed from it.
	if p.Status == model.JobStatusComplete {
		if err := t.mat.RefreshSummary(ctx, p.ID); err != nil && !resilience.IsNotFound(err) {
			zap.L().Warn("summary refresh failed",
				zap.String("profile_id", p.ID),
				zap.Error(err))
		}
		return t.store.GetProfile(ctx, p.ID)
	}
	if p.Status.Terminal() {
		return p, nil
	}

	completedAt := t.now().UTC()

	var raw json.RawMessage
	if resp.Result != nil {
		b, err := json.Marshal(resp.Result)
		if err != nil {
			return nil, eris.Wrapf(err, "tracker: marshal raw result %s", p.ID)
		}
		raw = b
	}

	// The terminal transition persists before any materialization so a
	// broken result can never make a finished analysis look unfinished.
	if err := t.store.CompleteJob(ctx, p.ID, completedAt, raw); err != nil {
		return nil, err
	}

	k, err := t.reconciler.Reconcile(p.ID, resp.Result)
	if err != nil {
		if resilience.IsDataUnavailable(err) {
			zap.L().Warn("completed job carried no kit data",
				zap.String("profile_id", p.ID),
				zap.Error(err))
			return t.store.GetProfile(ctx, p.ID)
		}
		return nil, eris.Wrapf(err, "tracker: reconcile result %s", p.ID)
	}
	k.GeneratedAt = completedAt

	if err := t.mat.Materialize(ctx, k); err != nil {
		// Completion stands; the kit is re-derivable from raw_result.
		zap.L().Error("kit materialization failed",
			zap.String("profile_id", p.ID),
			zap.Error(err))
	}

	zap.L().Info("analysis complete",
		zap.String("profile_id", p.ID),
		zap.String("format", k.FormatVersion),
		zap.String("source", string(k.Source)))

	return t.store.GetProfile(ctx, p.ID)
}
