package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'queued',
	started_at          DATETIME,
	completed_at        DATETIME,
	error_message       TEXT NOT NULL DEFAULT '',
	raw_result          TEXT,
	domain              TEXT NOT NULL DEFAULT '',
	brand_name          TEXT NOT NULL DEFAULT '',
	persona             TEXT NOT NULL DEFAULT '',
	entity_type         TEXT NOT NULL DEFAULT '',
	overall_score       REAL NOT NULL DEFAULT 0,
	completeness_score  REAL NOT NULL DEFAULT 0,
	has_blog            INTEGER NOT NULL DEFAULT 0,
	has_social_profiles INTEGER NOT NULL DEFAULT 0,
	has_review_sites    INTEGER NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS brand_kits (
	profile_id       TEXT PRIMARY KEY REFERENCES profiles(id),
	comprehensive    TEXT NOT NULL,
	v2_raw           TEXT,
	brand_scores     TEXT,
	brand_roadmap    TEXT,
	analysis_context TEXT,
	format_version   TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT 'auto',
	version          INTEGER NOT NULL DEFAULT 1,
	generated_at     DATETIME NOT NULL
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
	depends_on        TEXT,
	is_quick_win      INTEGER NOT NULL DEFAULT 0,
	recommended_order INTEGER NOT NULL DEFAULT 0,
	priority_score    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS social_profiles (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES profiles(id),
	platform   TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	username   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'found',
	source     TEXT,
	confidence REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_profiles_status ON profiles(status);
CREATE INDEX IF NOT EXISTS idx_roadmap_campaigns_profile ON roadmap_campaigns(profile_id);
CREATE INDEX IF NOT EXISTS idx_roadmap_milestones_profile ON roadmap_milestones(profile_id);
CREATE INDEX IF NOT EXISTS idx_roadmap_tasks_profile ON roadmap_tasks(profile_id);
CREATE INDEX IF NOT EXISTS idx_social_profiles_profile ON social_profiles(profile_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProfile(ctx context.Context, id, ownerID, url string) (*model.Profile, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, owner_id, url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, ownerID, url, string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert profile %s", id)
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

const profileColumns = `id, owner_id, url, status, started_at, completed_at, error_message,
	domain, brand_name, persona, entity_type, overall_score, completeness_score,
	has_blog, has_social_profiles, has_review_sites, created_at, updated_at`

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	)
	return scanProfile(row, id)
}

func (s *SQLiteStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows, "")
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?, started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.JobStatusProcessing), startedAt.UTC(), time.Now().UTC(),
		id, string(model.JobStatusQueued),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark processing %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, id string, completedAt time.Time, rawResult json.RawMessage) error {
	var raw sql.NullString
	if len(rawResult) > 0 {
		raw = sql.NullString{String: string(rawResult), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?,
			completed_at = COALESCE(completed_at, ?),
			started_at   = COALESCE(started_at, ?),
			raw_result   = COALESCE(?, raw_result),
			updated_at   = ?
		 WHERE id = ?`,
		string(model.JobStatusComplete), completedAt.UTC(), completedAt.UTC(),
		raw, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", id)
	}
	return checkRowsAffected(res, "profile", id)
}

func (s *SQLiteStore) FailJob(ctx context.Context, id string, failedAt time.Time, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?,
			completed_at  = COALESCE(completed_at, ?),
			started_at    = COALESCE(started_at, ?),
			error_message = ?,
			updated_at    = ?
		 WHERE id = ?`,
		string(model.JobStatusFailed), failedAt.UTC(), failedAt.UTC(),
		errorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", id)
	}
	return checkRowsAffected(res, "profile", id)
}

func (s *SQLiteStore) UpdateSummary(ctx context.Context, id string, summary model.ProfileSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET domain = ?, brand_name = ?, persona = ?, entity_type = ?,
			overall_score = ?, completeness_score = ?,
			has_blog = ?, has_social_profiles = ?, has_review_sites = ?,
			updated_at = ?
		 WHERE id = ?`,
		summary.Domain, summary.BrandName, summary.Persona, summary.EntityType,
		summary.OverallScore, summary.CompletenessScore,
		summary.HasBlog, summary.HasSocialProfiles, summary.HasReviewSites,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update summary %s", id)
	}
	return checkRowsAffected(res, "profile", id)
}

func (s *SQLiteStore) UpsertKit(ctx context.Context, k *model.BrandKit) error {
	comp, err := json.Marshal(k.Comprehensive)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comprehensive")
	}
	scores, roadmap, analysisCtx, err := marshalKitSections(k)
	if err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO brand_kits (profile_id, comprehensive, v2_raw, brand_scores, brand_roadmap, analysis_context, format_version, source, version, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
			comprehensive    = excluded.comprehensive,
			v2_raw           = excluded.v2_raw,
			brand_scores     = excluded.brand_scores,
			brand_roadmap    = excluded.brand_roadmap,
			analysis_context = excluded.analysis_context,
			format_version   = excluded.format_version,
			source           = excluded.source,
			version          = version + 1,
			generated_at     = excluded.generated_at
		 RETURNING version`,
		k.ProfileID, string(comp), nullString(k.V2Raw), scores, roadmap, analysisCtx,
		k.FormatVersion, string(k.Source), k.GeneratedAt.UTC(),
	)
	if err := row.Scan(&k.Version); err != nil {
		return eris.Wrapf(err, "sqlite: upsert kit %s", k.ProfileID)
	}
	return nil
}

func (s *SQLiteStore) GetKit(ctx context.Context, profileID string) (*model.BrandKit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile_id, comprehensive, v2_raw, brand_scores, brand_roadmap, analysis_context, format_version, source, version, generated_at
		 FROM brand_kits WHERE profile_id = ?`,
		profileID,
	)

	var (
		k                                   model.BrandKit
		comp                                string
		v2Raw, scores, roadmap, analysisCtx sql.NullString
		source                              string
	)
	err := row.Scan(&k.ProfileID, &comp, &v2Raw, &scores, &roadmap, &analysisCtx, &k.FormatVersion, &source, &k.Version, &k.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(&resilience.NotFoundError{Kind: "brand kit", ID: profileID}, "sqlite: get kit")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get kit %s", profileID)
	}
	k.Source = model.KitSource(source)

	if err := json.Unmarshal([]byte(comp), &k.Comprehensive); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal comprehensive")
	}
	if v2Raw.Valid {
		k.V2Raw = json.RawMessage(v2Raw.String)
	}
	if err := unmarshalKitSections(scores, roadmap, analysisCtx, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *SQLiteStore) UpsertRoadmap(ctx context.Context, rm model.Roadmap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin roadmap tx")
	}
	defer tx.Rollback()

	for _, c := range rm.Campaigns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO roadmap_campaigns (id, profile_id, name, objective, timeline, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				profile_id = excluded.profile_id, name = excluded.name,
				objective = excluded.objective, timeline = excluded.timeline,
				sort_order = excluded.sort_order`,
			c.ID, c.ProfileID, c.Name, c.Objective, c.Timeline, c.SortOrder,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert campaign %s", c.ID)
		}
	}

	for _, m := range rm.Milestones {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO roadmap_milestones (id, profile_id, campaign_id, name, target_date, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				profile_id = excluded.profile_id, campaign_id = excluded.campaign_id,
				name = excluded.name, target_date = excluded.target_date,
				sort_order = excluded.sort_order`,
			m.ID, m.ProfileID, m.CampaignID, m.Name, m.TargetDate, m.SortOrder,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert milestone %s", m.ID)
		}
	}

	for _, task := range rm.Tasks {
		dependsOn, err := json.Marshal(task.DependsOn)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal depends_on")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO roadmap_tasks (id, profile_id, campaign_id, milestone_id, title, description, status, impact, effort, depends_on, is_quick_win, recommended_order, priority_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				profile_id = excluded.profile_id, campaign_id = excluded.campaign_id,
				milestone_id = excluded.milestone_id, title = excluded.title,
				description = excluded.description, status = excluded.status,
				impact = excluded.impact, effort = excluded.effort,
				depends_on = excluded.depends_on, is_quick_win = excluded.is_quick_win,
				recommended_order = excluded.recommended_order, priority_score = excluded.priority_score`,
			task.ID, task.ProfileID, task.CampaignID, task.MilestoneID, task.Title,
			task.Description, string(task.Status), string(task.Impact), string(task.Effort),
			string(dependsOn), task.IsQuickWin, task.RecommendedOrder, task.PriorityScore,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert task %s", task.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit roadmap tx")
}

func (s *SQLiteStore) GetRoadmap(ctx context.Context, profileID string) (*model.Roadmap, error) {
	var rm model.Roadmap

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, name, objective, timeline, sort_order
		 FROM roadmap_campaigns WHERE profile_id = ? ORDER BY sort_order`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()
	for rows.Next() {
		var c model.RoadmapCampaign
		if err := rows.Scan(&c.ID, &c.ProfileID, &c.Name, &c.Objective, &c.Timeline, &c.SortOrder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		rm.Campaigns = append(rm.Campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate campaigns")
	}

	mRows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, campaign_id, name, target_date, sort_order
		 FROM roadmap_milestones WHERE profile_id = ? ORDER BY sort_order`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list milestones")
	}
	defer mRows.Close()
	for mRows.Next() {
		var m model.RoadmapMilestone
		if err := mRows.Scan(&m.ID, &m.ProfileID, &m.CampaignID, &m.Name, &m.TargetDate, &m.SortOrder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan milestone")
		}
		rm.Milestones = append(rm.Milestones, m)
	}
	if err := mRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate milestones")
	}

	tRows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, campaign_id, milestone_id, title, description, status, impact, effort, depends_on, is_quick_win, recommended_order, priority_score
		 FROM roadmap_tasks WHERE profile_id = ? ORDER BY recommended_order, id`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
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
		return nil, eris.Wrap(err, "sqlite: iterate tasks")
	}

	return &rm, nil
}

func (s *SQLiteStore) ReplaceSocialProfiles(ctx context.Context, profileID string, profiles []model.SocialProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin social tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM social_profiles WHERE profile_id = ?`, profileID); err != nil {
		return eris.Wrapf(err, "sqlite: delete social profiles %s", profileID)
	}

	for _, p := range profiles {
		source, err := json.Marshal(p.Source)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal social source")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO social_profiles (id, profile_id, platform, label, url, username, status, source, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, profileID, p.Platform, p.Label, p.URL, p.Username, string(p.Status), string(source), p.Confidence,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert social profile %s", p.Platform)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit social tx")
}

func (s *SQLiteStore) ListSocialProfiles(ctx context.Context, profileID string) ([]model.SocialProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, platform, label, url, username, status, source, confidence
		 FROM social_profiles WHERE profile_id = ? ORDER BY platform`,
		profileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list social profiles")
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
			return nil, eris.Wrap(err, "sqlite: scan social profile")
		}
		p.Status = model.FieldStatus(status)
		if source.Valid && source.String != "" && source.String != "null" {
			if err := json.Unmarshal([]byte(source.String), &p.Source); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal social source")
			}
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list social profiles iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrap(&resilience.NotFoundError{Kind: entity, ID: id}, "store")
	}
	return nil
}

func nullString(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func marshalKitSections(k *model.BrandKit) (scores, roadmap, analysisCtx sql.NullString, err error) {
	marshal := func(m map[string]any) (sql.NullString, error) {
		if m == nil {
			return sql.NullString{}, nil
		}
		b, err := json.Marshal(m)
		if err != nil {
			return sql.NullString{}, eris.Wrap(err, "store: marshal kit section")
		}
		return sql.NullString{String: string(b), Valid: true}, nil
	}
	if scores, err = marshal(k.BrandScores); err != nil {
		return
	}
	if roadmap, err = marshal(k.BrandRoadmap); err != nil {
		return
	}
	analysisCtx, err = marshal(k.AnalysisContext)
	return
}

func unmarshalKitSections(scores, roadmap, analysisCtx sql.NullString, k *model.BrandKit) error {
	unmarshal := func(ns sql.NullString, dst *map[string]any, what string) error {
		if !ns.Valid || ns.String == "" {
			return nil
		}
		return eris.Wrapf(json.Unmarshal([]byte(ns.String), dst), "store: unmarshal %s", what)
	}
	if err := unmarshal(scores, &k.BrandScores, "brand_scores"); err != nil {
		return err
	}
	if err := unmarshal(roadmap, &k.BrandRoadmap, "brand_roadmap"); err != nil {
		return err
	}
	return unmarshal(analysisCtx, &k.AnalysisContext, "analysis_context")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable, id string) (*model.Profile, error) {
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
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(&resilience.NotFoundError{Kind: "profile", ID: id}, "store")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan profile")
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

func scanTask(row scannable) (*model.RoadmapTask, error) {
	var (
		task                   model.RoadmapTask
		status, impact, effort string
		dependsOn              sql.NullString
	)
	err := row.Scan(
		&task.ID, &task.ProfileID, &task.CampaignID, &task.MilestoneID,
		&task.Title, &task.Description, &status, &impact, &effort,
		&dependsOn, &task.IsQuickWin, &task.RecommendedOrder, &task.PriorityScore,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan task")
	}
	task.Status = model.TaskStatus(status)
	task.Impact = model.Level(impact)
	task.Effort = model.Level(effort)
	if dependsOn.Valid && dependsOn.String != "" && dependsOn.String != "null" {
		if err := json.Unmarshal([]byte(dependsOn.String), &task.DependsOn); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal depends_on")
		}
	}
	return &task, nil
}
