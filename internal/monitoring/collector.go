package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
	"github.com/sells-group/brandintel/internal/store"
)

// MetricsSnapshot holds a point-in-time view of analysis health.
type MetricsSnapshot struct {
	// Job metrics (within lookback window).
	JobsTotal      int     `json:"jobs_total"`
	JobsQueued     int     `json:"jobs_queued"`
	JobsProcessing int     `json:"jobs_processing"`
	JobsComplete   int     `json:"jobs_complete"`
	JobsFailed     int     `json:"jobs_failed"`
	JobFailRate    float64 `json:"job_fail_rate"`
	AvgAnalysisSec float64 `json:"avg_analysis_secs"`

	// Oldest job still sitting in processing, for stuck-job detection.
	OldestProcessingMins int `json:"oldest_processing_mins"`

	// Kit provenance breakdown for completed jobs in the window.
	KitsBySource map[string]int `json:"kits_by_source"`

	// Derived projection volume.
	SocialRows   int `json:"social_rows"`
	RoadmapTasks int `json:"roadmap_tasks"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of analysis metrics over the given lookback
// window. Profiles outside the window (by last update) are skipped.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		KitsBySource:  map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	profiles, err := c.store.ListProfiles(ctx, store.ProfileFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list profiles")
	}

	var totalDuration time.Duration
	var timedJobs int

	for _, p := range profiles {
		if p.UpdatedAt.Before(cutoff) {
			continue
		}
		snap.JobsTotal++

		switch p.Status {
		case model.JobStatusQueued:
			snap.JobsQueued++
		case model.JobStatusProcessing:
			snap.JobsProcessing++
			if p.StartedAt != nil {
				mins := int(snap.CollectedAt.Sub(*p.StartedAt).Minutes())
				if mins > snap.OldestProcessingMins {
					snap.OldestProcessingMins = mins
				}
			}
		case model.JobStatusComplete:
			snap.JobsComplete++
			c.countKit(ctx, p.ID, snap)
		case model.JobStatusFailed:
			snap.JobsFailed++
		}

		if p.StartedAt != nil && p.CompletedAt != nil {
			totalDuration += p.CompletedAt.Sub(*p.StartedAt)
			timedJobs++
		}
	}

	if finished := snap.JobsComplete + snap.JobsFailed; finished > 0 {
		snap.JobFailRate = float64(snap.JobsFailed) / float64(finished)
	}
	if timedJobs > 0 {
		snap.AvgAnalysisSec = totalDuration.Seconds() / float64(timedJobs)
	}

	return snap, nil
}

// countKit folds one completed profile's kit provenance and projection
// volume into the snapshot. A profile without a kit row is a legitimate
// state (DataUnavailable completion), not an error.
func (c *Collector) countKit(ctx context.Context, profileID string, snap *MetricsSnapshot) {
	k, err := c.store.GetKit(ctx, profileID)
	if err != nil {
		if !resilience.IsNotFound(err) {
			snap.KitsBySource["unreadable"]++
		}
		return
	}
	snap.KitsBySource[string(k.Source)]++

	if social, err := c.store.ListSocialProfiles(ctx, profileID); err == nil {
		snap.SocialRows += len(social)
	}
	if rm, err := c.store.GetRoadmap(ctx, profileID); err == nil {
		snap.RoadmapTasks += len(rm.Tasks)
	}
}
