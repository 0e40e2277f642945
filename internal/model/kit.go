package model

import (
	"encoding/json"
	"time"
)

// KitSource tags how a brand kit row came to be.
type KitSource string

const (
	KitSourceAuto         KitSource = "auto"
	KitSourceAutoFallback KitSource = "auto_fallback"
	KitSourceReanalyzed   KitSource = "reanalyzed"
	KitSourceManual       KitSource = "manual"
)

// Kit format versions observed from the engine.
const (
	FormatComprehensive = "comprehensive"
	FormatV2Raw         = "v2_raw"
	FormatLegacyFlat    = "legacy_flat"
)

// BrandKit is the materialized analysis result, one-to-one with a profile.
// Comprehensive is the canonical structure and the sole source of truth for
// derived projections; V2Raw keeps the untouched engine payload for
// fallback and debugging.
type BrandKit struct {
	ProfileID       string          `json:"profile_id"`
	Comprehensive   map[string]any  `json:"comprehensive"`
	V2Raw           json.RawMessage `json:"v2_raw,omitempty"`
	BrandScores     map[string]any  `json:"brand_scores,omitempty"`
	BrandRoadmap    map[string]any  `json:"brand_roadmap,omitempty"`
	AnalysisContext map[string]any  `json:"analysis_context,omitempty"`
	FormatVersion   string          `json:"format_version"`
	Source          KitSource       `json:"source"`
	Version         int64           `json:"version"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
