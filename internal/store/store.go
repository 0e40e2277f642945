package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/brandintel/internal/model"
)

// ProfileFilter specifies criteria for listing profiles.
type ProfileFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
//
// Every write is safe under re-application: profile transitions are either
// conditional on prior state (MarkProcessing) or set timestamps at most once
// (CompleteJob/FailJob), kit and roadmap writes are upserts keyed by stable
// external ids, and social rows are replaced wholesale. Concurrent pollers
// therefore need no locking.
type Store interface {
	// Profiles / jobs
	CreateProfile(ctx context.Context, id, ownerID, url string) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.Profile, error)

	// MarkProcessing records startedAt exactly once, guarded by the current
	// status being queued. Returns false when another poller won the race or
	// the job had already advanced.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// CompleteJob / FailJob transition to a terminal status. startedAt is
	// backfilled to the completion time when a processing observation was
	// missed; both timestamps are set at most once.
	CompleteJob(ctx context.Context, id string, completedAt time.Time, rawResult json.RawMessage) error
	FailJob(ctx context.Context, id string, failedAt time.Time, errorMessage string) error

	// Summary scalars: recomputed in full on every completion.
	UpdateSummary(ctx context.Context, id string, summary model.ProfileSummary) error

	// Brand kit: one row per profile, upsert keyed by profile id.
	UpsertKit(ctx context.Context, k *model.BrandKit) error
	GetKit(ctx context.Context, profileID string) (*model.BrandKit, error)

	// Roadmap: upserts keyed by engine-supplied stable ids.
	UpsertRoadmap(ctx context.Context, rm model.Roadmap) error
	GetRoadmap(ctx context.Context, profileID string) (*model.Roadmap, error)

	// Social profiles: full delete-then-insert per profile.
	ReplaceSocialProfiles(ctx context.Context, profileID string, profiles []model.SocialProfile) error
	ListSocialProfiles(ctx context.Context, profileID string) ([]model.SocialProfile, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
