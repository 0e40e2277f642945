package model

import "time"

// Profile is the subject of analysis: a brand/domain and the root identity
// owning a job, a kit, and the derived projections.
type Profile struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id,omitempty"`
	URL          string     `json:"url"`
	Status       JobStatus  `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	Summary ProfileSummary `json:"summary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileSummary holds the denormalized flat columns recomputed in full on
// every completion. Presence flags come from the field accessors, never from
// raw null-checks.
type ProfileSummary struct {
	Domain            string  `json:"domain,omitempty"`
	BrandName         string  `json:"brand_name,omitempty"`
	Persona           string  `json:"persona,omitempty"`
	EntityType        string  `json:"entity_type,omitempty"`
	OverallScore      float64 `json:"overall_score"`
	CompletenessScore float64 `json:"completeness_score"`
	HasBlog           bool    `json:"has_blog"`
	HasSocialProfiles bool    `json:"has_social_profiles"`
	HasReviewSites    bool    `json:"has_review_sites"`
}

// SocialProfile is one per-platform entry extracted from the canonical
// external_presence section. Rows are fully replaced per profile on each
// extraction.
type SocialProfile struct {
	ID         string      `json:"id"`
	ProfileID  string      `json:"profile_id"`
	Platform   string      `json:"platform"`
	Label      string      `json:"label,omitempty"`
	URL        string      `json:"url,omitempty"`
	Username   string      `json:"username,omitempty"`
	Status     FieldStatus `json:"status"`
	Source     []string    `json:"source,omitempty"`
	Confidence float64     `json:"confidence"`
}
