package tracker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandintel/internal/kit"
	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
	"github.com/sells-group/brandintel/internal/store"
	"github.com/sells-group/brandintel/pkg/brandengine"
)

// fakeStore is an in-memory Store with the same write semantics as the real
// backends: conditional MarkProcessing, set-at-most-once terminal
// timestamps, upsert-keyed kit writes.
type fakeStore struct {
	profiles map[string]*model.Profile
	raw      map[string]json.RawMessage
	kits     map[string]*model.BrandKit
	roadmaps map[string]model.Roadmap
	social   map[string][]model.SocialProfile

	roadmapErr error
	socialErr  error
	summaryErr error
	kitErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*model.Profile{},
		raw:      map[string]json.RawMessage{},
		kits:     map[string]*model.BrandKit{},
		roadmaps: map[string]model.Roadmap{},
		social:   map[string][]model.SocialProfile{},
	}
}

func (f *fakeStore) CreateProfile(_ context.Context, id, ownerID, url string) (*model.Profile, error) {
	p := &model.Profile{ID: id, OwnerID: ownerID, URL: url, Status: model.JobStatusQueued}
	f.profiles[id] = p
	return p, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, &resilience.NotFoundError{Kind: "profile", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProfiles(_ context.Context, _ store.ProfileFilter) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) MarkProcessing(_ context.Context, id string, startedAt time.Time) (bool, error) {
	p, ok := f.profiles[id]
	if !ok || p.Status != model.JobStatusQueued {
		return false, nil
	}
	p.Status = model.JobStatusProcessing
	p.StartedAt = &startedAt
	return true, nil
}

func (f *fakeStore) terminal(id string, status model.JobStatus, at time.Time) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, &resilience.NotFoundError{Kind: "profile", ID: id}
	}
	p.Status = status
	if p.CompletedAt == nil {
		p.CompletedAt = &at
	}
	if p.StartedAt == nil {
		p.StartedAt = p.CompletedAt
	}
	return p, nil
}

func (f *fakeStore) CompleteJob(_ context.Context, id string, completedAt time.Time, rawResult json.RawMessage) error {
	if _, err := f.terminal(id, model.JobStatusComplete, completedAt); err != nil {
		return err
	}
	if len(rawResult) > 0 {
		f.raw[id] = rawResult
	}
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, id string, failedAt time.Time, errorMessage string) error {
	p, err := f.terminal(id, model.JobStatusFailed, failedAt)
	if err != nil {
		return err
	}
	p.ErrorMessage = errorMessage
	return nil
}

func (f *fakeStore) UpdateSummary(_ context.Context, id string, summary model.ProfileSummary) error {
	if f.summaryErr != nil {
		return f.summaryErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return &resilience.NotFoundError{Kind: "profile", ID: id}
	}
	p.Summary = summary
	return nil
}

func (f *fakeStore) UpsertKit(_ context.Context, k *model.BrandKit) error {
	if f.kitErr != nil {
		return f.kitErr
	}
	if prev, ok := f.kits[k.ProfileID]; ok {
		k.Version = prev.Version + 1
	} else {
		k.Version = 1
	}
	cp := *k
	f.kits[k.ProfileID] = &cp
	return nil
}

func (f *fakeStore) GetKit(_ context.Context, profileID string) (*model.BrandKit, error) {
	k, ok := f.kits[profileID]
	if !ok {
		return nil, &resilience.NotFoundError{Kind: "brand kit", ID: profileID}
	}
	cp := *k
	return &cp, nil
}

func (f *fakeStore) UpsertRoadmap(_ context.Context, rm model.Roadmap) error {
	if f.roadmapErr != nil {
		return f.roadmapErr
	}
	if len(rm.Campaigns) > 0 {
		f.roadmaps[rm.Campaigns[0].ProfileID] = rm
	}
	return nil
}

func (f *fakeStore) GetRoadmap(_ context.Context, profileID string) (*model.Roadmap, error) {
	rm := f.roadmaps[profileID]
	return &rm, nil
}

func (f *fakeStore) ReplaceSocialProfiles(_ context.Context, profileID string, profiles []model.SocialProfile) error {
	if f.socialErr != nil {
		return f.socialErr
	}
	f.social[profileID] = profiles
	return nil
}

func (f *fakeStore) ListSocialProfiles(_ context.Context, profileID string) ([]model.SocialProfile, error) {
	return f.social[profileID], nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

// fakeEngine serves scripted poll responses in order, sticking on the last.
type fakeEngine struct {
	responses []*brandengine.JobResponse
	err       error
	calls     int
}

func (f *fakeEngine) GetJob(context.Context, string, string) (*brandengine.JobResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	return f.responses[i], nil
}

func (f *fakeEngine) Analyze(context.Context, brandengine.AnalyzeRequest) (*brandengine.AnalyzeResponse, error) {
	return nil, eris.New("not scripted")
}

func (f *fakeEngine) AnalyzeModule(context.Context, brandengine.AnalyzeModuleRequest) (*brandengine.AnalyzeResponse, error) {
	return nil, eris.New("not scripted")
}

func (f *fakeEngine) GetModuleJob(context.Context, string) (*brandengine.ModuleJobResponse, error) {
	return nil, eris.New("not scripted")
}

func newTestTracker(st *fakeStore, eng brandengine.Client) *Tracker {
	return New(st, eng, kit.NewReconciler(kit.FallbackOptions{}), NewMaterializer(st, nil))
}

func acmeResult() map[string]any {
	return map[string]any{
		"comprehensive": map[string]any{
			"meta": map[string]any{
				"brand_name": map[string]any{
					"value": "Acme", "status": "found", "confidence": 0.9,
					"source": []any{"homepage"}, "description": "name",
				},
				"domain": map[string]any{"value": "acme.com", "status": "found"},
			},
		},
	}
}

func TestPoll_FullLifecycle(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusQueued},
		{JobID: "job-1", Status: brandengine.StatusProcessing},
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
	}}
	tr := newTestTracker(st, eng)
	ctx := context.Background()

	// Queued observation: nothing moves.
	p, err := tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, p.Status)
	assert.Nil(t, p.StartedAt)

	// Processing observation: startedAt set exactly once.
	p, err = tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, p.Status)
	require.NotNil(t, p.StartedAt)
	started := *p.StartedAt

	// Completion: terminal status, kit materialized, summary recomputed.
	p, err = tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, started, *p.StartedAt)
	assert.False(t, p.CompletedAt.Before(*p.StartedAt))
	assert.Equal(t, "Acme", p.Summary.BrandName)
	assert.Equal(t, "acme.com", p.Summary.Domain)

	k, err := st.GetKit(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", model.Value(model.Lookup(k.Comprehensive, "meta.brand_name")))
	assert.Equal(t, model.KitSourceAuto, k.Source)
	assert.Equal(t, int64(1), k.Version)
}

func TestPoll_RepolledComplete_IsIdempotent(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
	}}
	tr := newTestTracker(st, eng)
	ctx := context.Background()

	p, err := tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	firstCompleted := *p.CompletedAt
	firstSummary := p.Summary

	// Identical completion observed again: no new kit version, summary and
	// timestamps unchanged.
	p, err = tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)
	assert.Equal(t, firstCompleted, *p.CompletedAt)
	assert.Equal(t, firstSummary, p.Summary)

	k, err := st.GetKit(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), k.Version)
}

func TestPoll_CompleteBackfillsStartedAt(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	// Processing was never observed; completion backfills startedAt.
	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
	}}
	tr := newTestTracker(st, eng)

	p, err := tr.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, p.StartedAt)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, *p.CompletedAt, *p.StartedAt)
}

func TestPoll_Failed(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusFailed, Error: "crawler blocked"},
	}}
	tr := newTestTracker(st, eng)

	p, err := tr.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, p.Status)
	assert.Equal(t, "crawler blocked", p.ErrorMessage)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, *p.CompletedAt, *p.StartedAt)
}

func TestPoll_EngineDown_LeavesStatusUnchanged(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{err: resilience.NewServiceUnavailable(eris.New("connection refused"), 0)}
	tr := newTestTracker(st, eng)

	_, err = tr.Poll(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, resilience.IsServiceUnavailable(err))

	p, err := st.GetProfile(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, p.Status)
	assert.Nil(t, p.StartedAt)
}

func TestPoll_DataUnavailable_KeepsTerminalStatus(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	// Complete with a result that has neither comprehensive nor brand_kit.
	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: map[string]any{"debug": "nothing here"}},
	}}
	tr := newTestTracker(st, eng)

	p, err := tr.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)
	require.NotNil(t, p.CompletedAt)

	_, err = st.GetKit(context.Background(), "job-1")
	assert.True(t, resilience.IsNotFound(err))
}

func TestPoll_BuilderFailure_DoesNotRevertCompletion(t *testing.T) {
	st := newFakeStore()
	st.socialErr = eris.New("social table locked")
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
	}}
	tr := newTestTracker(st, eng)

	p, err := tr.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)

	// Kit landed and the summary still recomputed despite the social failure.
	_, err = st.GetKit(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Summary.BrandName)
}

func TestPoll_KitUpsertFailure_DoesNotRevertCompletion(t *testing.T) {
	st := newFakeStore()
	st.kitErr = eris.New("kit table locked")
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
	}}
	tr := newTestTracker(st, eng)

	p, err := tr.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)
	require.NotEmpty(t, st.raw["job-1"])
}

func TestPoll_StaleProcessingAfterTerminal(t *testing.T) {
	st := newFakeStore()
	_, err := st.CreateProfile(context.Background(), "job-1", "", "https://acme.com")
	require.NoError(t, err)

	eng := &fakeEngine{responses: []*brandengine.JobResponse{
		{JobID: "job-1", Status: brandengine.StatusComplete, Result: acmeResult()},
		{JobID: "job-1", Status: brandengine.StatusProcessing},
	}}
	tr := newTestTracker(st, eng)
	ctx := context.Background()

	p, err := tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)

	// A lagging processing observation must never regress the status.
	p, err = tr.Poll(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, p.Status)
}

func TestPoll_UnknownProfile(t *testing.T) {
	st := newFakeStore()
	eng := &fakeEngine{}
	tr := newTestTracker(st, eng)

	_, err := tr.Poll(context.Background(), "missing")
	assert.True(t, resilience.IsNotFound(err))
	assert.Zero(t, eng.calls)
}
