package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brandintel/internal/db"
	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'queued',
	started_at          TIMESTAMPTZ,
	completed_at        TIMESTAMPTZ,
	error_message       TEXT NOT NULL DEFAULT '',
	raw_result          JSONB,
	domain              TEXT NOT NULL DEFAULT '',
	brand_name          TEXT NOT NULL DEFAULT '',
	persona             TEXT NOT NULL DEFAULT '',
	entity_type         TEXT NOT NULL DEFAULT '',
	overall_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	completeness_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	has_blog            BOOLEAN NOT NULL DEFAULT FALSE,
	has_social_profiles BOOLEAN NOT NULL DEFAULT FALSE,
	has_review_sites    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS brand_kits (
	profile_id       TEXT PRIMARY KEY REFERENCES profiles(id),
	comprehensive    JSONB NOT NULL,
	v2_raw           JSONB,
	brand_scores     JSONB,
	brand_roadmap    JSONB,
	analysis_context JSONB,
	format_version   TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT 'auto',
	version          BIGINT NOT NULL DEFAULT 1,
	generated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS roadmap_campaigns (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES profiles(id),
	name       TEXT NOT NULL DEFAULT '',
	objective  TEXT NOT NULL DEFAULT '',
	timeline   TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS roadmap_milestones (
	id          TEXT PRIMARY KEY,
	profile_id  TEXT NOT NULL REFERENCES profiles(id),
	campaign_id TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	target_date TEXT NOT NULL DEFAULT '',
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS roadmap_tasks (
	id                TEXT PRIMARY KEY,
	profile_id        TEXT NOT NULL REFERENCES profiles(id),
	campaign_id       TEXT NOT NULL,
	milestone_id      TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'pending',
	impact            TEXT NOT NULL DEFAULT '',
	effort            TEXT NOT NULL DEFAULT '',
	depends_on        JSONB,
	is_quick_win      BOOLEAN NOT NULL DEFAULT FALSE,
	recommended_order INTEGER NOT NULL DEFAULT 0,
	priority_score    DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS social_profiles (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES profiles(id),
	platform   TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	username   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'found',
	source     JSONB,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_profiles_status ON profiles(status);
CREATE INDEX IF NOT EXISTS idx_roadmap_campaigns_profile ON roadmap_campaigns(profile_id);
CREATE INDEX IF NOT EXISTS idx_roadmap_milestones_profile ON roadmap_milestones(profile_id);
CREATE INDEX IF NOT EXISTS idx_roadmap_tasks_profile ON roadmap_tasks(profile_id);
CREATE INDEX IF NOT EXISTS idx_social_profiles_profile ON social_profiles(profile_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, id, ownerID, url string) (*model.Profile, error) {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, owner_id, url, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, ownerID, url, string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert profile %s", id)
	}

	return &model.Profile{
		ID:        id,
		OwnerID:   ownerID,
		URL:       url,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id,
	)
	return scanProfilePgx(row, id)
}

func (s *PostgresStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfilePgx(rows, "")
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

func (s *PostgresStore) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET status = $1, started_at = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		string(model.JobStatusProcessing), startedAt.UTC(), id, string(model.JobStatusQueued),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark processing %s", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id string, completedAt time.Time, rawResult json.RawMessage) error {
	var raw any
	if len(rawResult) > 0 {
		raw = string(rawResult)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET status = $1,
			completed_at = COALESCE(completed_at, $2),
			started_at   = COALESCE(started_at, $2),
			raw_result   = COALESCE($3::jsonb, raw_result),
			updated_at   = now()
		 WHERE id = $4`,
		string(model.JobStatusComplete), completedAt.UTC(), raw, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(&resilience.NotFoundError{Kind: "profile", ID: id}, "postgres")
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id string, failedAt time.Time, errorMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET status = $1,
			completed_at  = COALESCE(completed_at, $2),
			started_at    = COALESCE(started_at, $2),
			error_message = $3,
			updated_at    = now()
		 WHERE id = $4`,
		string(model.JobStatusFailed), failedAt.UTC(), errorMessage, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(&resilience.NotFoundError{Kind: "profile", ID: id}, "postgres")
	}
	return nil
}

func (s *PostgresStore) UpdateSummary(ctx context.Context, id string, summary model.ProfileSummary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET domain = $1, brand_name = $2, persona = $3, entity_type = $4,
			overall_score = $5, completeness_score = $6,
			has_blog = $7, has_social_profiles = $8, has_review_sites = $9,
			updated_at = now()
		 WHERE id = $10`,
		summary.Domain, summary.BrandName, summary.Persona, summary.EntityType,
		summary.OverallScore, summary.CompletenessScore,
		summary.HasBlog, summary.HasSocialProfiles, summary.HasReviewSites,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update summary %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(&resilience.NotFoundError{Kind: "profile", ID: id}, "postgres")
	}
	return nil
}

func (s *PostgresStore) UpsertKit(ctx context.Context, k *model.BrandKit) error {
	comp, err := json.Marshal(k.Comprehensive)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comprehensive")
	}
	scores, roadmap, analysisCtx, err := marshalKitSections(k)
	if err != nil {
		return err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO brand_kits (profile_id, comprehensive, v2_raw, brand_scores, brand_roadmap, analysis_context, format_version, source, version, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		 ON CONFLICT (profile_id) DO UPDATE SET
			comprehensive    = EXCLUDED.comprehensive,
			v2_raw           = EXCLUDED.v2_raw,
			brand_scores     = EXCLUDED.brand_scores,
			brand_roadmap    = EXCLUDED.brand_roadmap,
			analysis_context = EXCLUDED.analysis_context,
			format_version   = EXCLUDED.format_version,
			source           = EXCLUDED.source,
			version          = brand_kits.version + 1,
			generated_at     = EXCLUDED.generated_at
		 RETURNING version`,
		k.ProfileID, string(comp), nullJSON(k.V2Raw), textOrNil(scores), textOrNil(roadmap), textOrNil(analysisCtx),
		k.FormatVersion, string(k.Source), k.GeneratedAt.UTC(),
	)
	if err := row.Scan(&k.Version); err != nil {
		return eris.Wrapf(err, "postgres: upsert kit %s", k.ProfileID)
	}
	return nil
}

func (s *PostgresStore) GetKit(ctx context.Context, profileID string) (*model.BrandKit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT profile_id, comprehensive::text, v2_raw::text, brand_scores::text, brand_roadmap::text, analysis_context::text, format_version, source, version, generated_at
		 FROM brand_kits WHERE profile_id = $1`,
		profileID,
	)

	var (
		k                                   model.BrandKit
		comp                                string
		v2Raw, scores, roadmap, analysisCtx sql.NullString
		source                              string
	)
	err := row.Scan(&k.ProfileID, &comp, &v2Raw, &scores, &roadmap, &analysisCtx, &k.FormatVersion, &source, &k.Version, &k.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(&resilience.NotFoundError{Kind: "brand kit", ID: profileID}, "postgres")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get kit %s", profileID)
	}
	k.Source = model.KitSource(source)

	if err := json.Unmarshal([]byte(comp), &k.Comprehensive); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal comprehensive")
	}
	if v2Raw.Valid {
		k.V2Raw = json.RawMessage(v2Raw.String)
	}
	if err := unmarshalKitSections(scores, roadmap, analysisCtx, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) UpsertRoadmap(ctx context.Context, rm model.Roadmap) error {
	for _, c := range rm.Campaigns {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO roadmap_campaigns (id, profile_id, name, objective, timeline, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				profile_id = EXCLUDED.profile_id, name = EXCLUDED.name,
				objective = EXCLUDED.objective, timeline = EXCLUDED.timeline,
				sort_order = EXCLUDED.sort_order`,
			c.ID, c.ProfileID, c.Name, c.Objective, c.Timeline, c.SortOrder,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert campaign %s", c.ID)
		}
	}

	for _, m := range rm.Milestones {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO roadmap_milestones (id, profile_id, campaign_id, name, target_date, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				profile_id = EXCLUDED.profile_id, campaign_id = EXCLUDED.campaign_id,
				name = EXCLUDED.name, target_date = EXCLUDED.target_date,
				sort_order = EXCLUDED.sort_order`,
			m.ID, m.ProfileID, m.CampaignID, m.Name, m.TargetDate, m.SortOrder,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert milestone %s", m.ID)
		}
	}

	// Task batches can be large; go through the bulk COPY upsert path.
	if len(rm.Tasks) > 0 {
		rows := make([][]any, 0, len(rm.Tasks))
		for _, task := range rm.Tasks {
			dependsOn, err := json.Marshal(task.DependsOn)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal depends_on")
			}
			rows = append(rows, []any{
				task.ID, task.ProfileID, task.CampaignID, task.MilestoneID,
				task.Title, task.Description, string(task.Status),
				string(task.Impact), string(task.Effort), string(dependsOn),
				task.IsQuickWin, task.RecommendedOrder, task.PriorityScore,
			})
		}
		_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table: "roadmap_tasks",
			Columns: []string{
				"id", "profile_id", "campaign_id", "milestone_id",
				"title", "description", "status", "impact", "effort",
				"depends_on", "is_quick_win", "recommended_order", "priority_score",
			},
			ConflictKeys: []string{"id"},
		}, rows)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *PostgresStore) GetRoadmap(ctx context.Context, profileID string) (*model.Roadmap, error) {
	var rm model.Roadmap

	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, name, objective, timeline, sort_order
		 FROM roadmap_campaigns WHERE profile_id = $1 ORDER BY sort_order`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()
	for rows.Next() {
		var c model.RoadmapCampaign
		if err := rows.Scan(&c.ID, &c.ProfileID, &c.Name, &c.Objective, &c.Timeline, &c.SortOrder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		rm.Campaigns = append(rm.Campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate campaigns")
	}

	mRows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, campaign_id, name, target_date, sort_order
		 FROM roadmap_milestones WHERE profile_id = $1 ORDER BY sort_order`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list milestones")
	}
	defer mRows.Close()
	for mRows.Next() {
		var m model.RoadmapMilestone
		if err := mRows.Scan(&m.ID, &m.ProfileID, &m.CampaignID, &m.Name, &m.TargetDate, &m.SortOrder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan milestone")
		}
		rm.Milestones = append(rm.Milestones, m)
	}
	if err := mRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate milestones")
	}

	tRows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, campaign_id, milestone_id, title, description, status, impact, effort, depends_on::text, is_quick_win, recommended_order, priority_score
		 FROM roadmap_tasks WHERE profile_id = $1 ORDER BY recommended_order, id`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer tRows.Close()
	for tRows.Next() {
		task, err := scanTask(tRows)
		if err != nil {
			return nil, err
		}
		rm.Tasks = append(rm.Tasks, *task)
	}
	if err := tRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate tasks")
	}

	return &rm, nil
}

func (s *PostgresStore) ReplaceSocialProfiles(ctx context.Context, profileID string, profiles []model.SocialProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin social tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM social_profiles WHERE profile_id = $1`, profileID); err != nil {
		return eris.Wrapf(err, "postgres: delete social profiles %s", profileID)
	}

	for _, p := range profiles {
		source, err := json.Marshal(p.Source)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal social source")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO social_profiles (id, profile_id, platform, label, url, username, status, source, confidence)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, profileID, p.Platform, p.Label, p.URL, p.Username, string(p.Status), string(source), p.Confidence,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert social profile %s", p.Platform)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit social tx")
}

func (s *PostgresStore) ListSocialProfiles(ctx context.Context, profileID string) ([]model.SocialProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, platform, label, url, username, status, source::text, confidence
		 FROM social_profiles WHERE profile_id = $1 ORDER BY platform`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list social profiles")
	}
	defer rows.Close()

	var profiles []model.SocialProfile
	for rows.Next() {
		var (
			p      model.SocialProfile
			status string
			source sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Platform, &p.Label, &p.URL, &p.Username, &status, &source, &p.Confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan social profile")
		}
		p.Status = model.FieldStatus(status)
		if source.Valid && source.String != "" && source.String != "null" {
			if err := json.Unmarshal([]byte(source.String), &p.Source); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal social source")
			}
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list social profiles iterate")
}

// helpers

func scanProfilePgx(row scannable, id string) (*model.Profile, error) {
	var (
		p                      model.Profile
		startedAt, completedAt sql.NullTime
		status                 string
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.URL, &status, &startedAt, &completedAt, &p.ErrorMessage,
		&p.Summary.Domain, &p.Summary.BrandName, &p.Summary.Persona, &p.Summary.EntityType,
		&p.Summary.OverallScore, &p.Summary.CompletenessScore,
		&p.Summary.HasBlog, &p.Summary.HasSocialProfiles, &p.Summary.HasReviewSites,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(&resilience.NotFoundError{Kind: "profile", ID: id}, "postgres")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan profile")
	}
	p.Status = model.JobStatus(status)
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		p.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		p.CompletedAt = &t
	}
	return &p, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func textOrNil(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
