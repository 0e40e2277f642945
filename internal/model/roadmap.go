package model

// TaskStatus represents the execution state of a roadmap task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// Level is the engine's coarse impact/effort grade.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// RoadmapCampaign is one campaign in the normalized roadmap decomposition.
// The id is supplied by the engine and stable across re-analyses, so
// extraction upserts on it.
type RoadmapCampaign struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	Objective string `json:"objective,omitempty"`
	Timeline  string `json:"timeline,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// RoadmapMilestone groups tasks within a campaign.
type RoadmapMilestone struct {
	ID         string `json:"id"`
	ProfileID  string `json:"profile_id"`
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	TargetDate string `json:"target_date,omitempty"`
	SortOrder  int    `json:"sort_order"`
}

// RoadmapTask belongs to exactly one campaign and optionally one milestone.
// DependsOn holds engine task ids as soft references; they are not enforced
// referentially. RecommendedOrder and PriorityScore are preserved verbatim
// from the engine, never re-sorted locally.
type RoadmapTask struct {
	ID               string     `json:"id"`
	ProfileID        string     `json:"profile_id"`
	CampaignID       string     `json:"campaign_id"`
	MilestoneID      string     `json:"milestone_id,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           TaskStatus `json:"status"`
	Impact           Level      `json:"impact,omitempty"`
	Effort           Level      `json:"effort,omitempty"`
	DependsOn        []string   `json:"depends_on,omitempty"`
	IsQuickWin       bool       `json:"is_quick_win"`
	RecommendedOrder int        `json:"recommended_order"`
	PriorityScore    float64    `json:"priority_score"`
}

// Roadmap is the flat upsert batch emitted by the roadmap normalizer.
type Roadmap struct {
	Campaigns  []RoadmapCampaign  `json:"campaigns"`
	Milestones []RoadmapMilestone `json:"milestones"`
	Tasks      []RoadmapTask      `json:"tasks"`
}
