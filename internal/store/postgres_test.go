package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_MarkProcessing_Won(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Now().UTC()

	mock.ExpectExec(`UPDATE profiles SET status = \$1, started_at = \$2, updated_at = now\(\)\s+WHERE id = \$3 AND status = \$4`).
		WithArgs("processing", started, "job-1", "queued").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	won, err := s.MarkProcessing(context.Background(), "job-1", started)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkProcessing_AlreadyAdvanced(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Now().UTC()

	// Guard clause matched no row: another poller already moved the job on.
	mock.ExpectExec(`UPDATE profiles SET status = \$1, started_at = \$2`).
		WithArgs("processing", started, "job-1", "queued").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	won, err := s.MarkProcessing(context.Background(), "job-1", started)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	completed := time.Now().UTC()
	raw := json.RawMessage(`{"comprehensive":{}}`)

	mock.ExpectExec(`UPDATE profiles SET status = \$1,\s+completed_at = COALESCE\(completed_at, \$2\),\s+started_at\s+= COALESCE\(started_at, \$2\)`).
		WithArgs("complete", completed, string(raw), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteJob(context.Background(), "job-1", completed, raw)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE profiles SET status = \$1`).
		WithArgs("complete", pgxmock.AnyArg(), nil, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteJob(context.Background(), "missing", time.Now().UTC(), nil)
	assert.True(t, resilience.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	failedAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE profiles SET status = \$1,\s+completed_at\s+= COALESCE\(completed_at, \$2\)`).
		WithArgs("failed", failedAt, "engine exploded", "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailJob(context.Background(), "job-1", failedAt, "engine exploded")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertKit_ReturnsVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO brand_kits .+ON CONFLICT \(profile_id\) DO UPDATE SET.+version\s+= brand_kits\.version \+ 1.+RETURNING version`).
		WithArgs("job-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"comprehensive", "auto", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))

	k := &model.BrandKit{
		ProfileID:     "job-1",
		Comprehensive: map[string]any{"meta": map[string]any{}},
		FormatVersion: model.FormatComprehensive,
		Source:        model.KitSourceAuto,
		GeneratedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.UpsertKit(context.Background(), k))
	assert.Equal(t, int64(2), k.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetKit_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT profile_id, comprehensive::text`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetKit(context.Background(), "missing")
	assert.True(t, resilience.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM profiles WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProfile(context.Background(), "missing")
	assert.True(t, resilience.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSummary(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE profiles SET domain = \$1, brand_name = \$2`).
		WithArgs("acme.com", "Acme", "saas", "company", 72.5, 64.0, true, true, false, "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateSummary(context.Background(), "job-1", model.ProfileSummary{
		Domain:            "acme.com",
		BrandName:         "Acme",
		Persona:           "saas",
		EntityType:        "company",
		OverallScore:      72.5,
		CompletenessScore: 64,
		HasBlog:           true,
		HasSocialProfiles: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSocialProfiles_Tx(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM social_profiles WHERE profile_id = \$1`).
		WithArgs("job-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO social_profiles`).
		WithArgs("sp-1", "job-1", "twitter", "Twitter", "https://twitter.com/acme", "acme", "found", `["homepage"]`, 0.9).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.ReplaceSocialProfiles(context.Background(), "job-1", []model.SocialProfile{
		{ID: "sp-1", ProfileID: "job-1", Platform: "twitter", Label: "Twitter", URL: "https://twitter.com/acme", Username: "acme", Status: model.FieldStatusFound, Source: []string{"homepage"}, Confidence: 0.9},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
