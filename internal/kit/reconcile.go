package kit

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/model"
	"github.com/sells-group/brandintel/internal/resilience"
)

// Reconciler normalizes the engine's historical result shapes into one
// canonical comprehensive structure. Three shapes coexist in the wild:
//
//  1. comprehensive — result carries an explicit "comprehensive" section,
//     used verbatim.
//  2. v2-raw — result carries a "brand_kit" whose nested fields are already
//     wrapper-shaped ({value, status, ...}); same shape, different container
//     name.
//  3. legacy flat — result carries a flat "brand_kit"; fields are lifted
//     into the canonical shape by the fallback transform.
//
// The decision order is fixed and first-match-wins. Every path is
// deterministic: reconciling the same raw payload twice yields a
// structurally identical canonical output.
type Reconciler struct {
	fallback FallbackOptions
}

// NewReconciler creates a Reconciler with the given fallback tunables.
func NewReconciler(opts FallbackOptions) *Reconciler {
	return &Reconciler{fallback: opts.withDefaults()}
}

// Reconcile shapes a completed job's raw result into a BrandKit. The raw
// payload is retained on the kit for audit. Returns a DataUnavailableError
// when the result carries neither a comprehensive nor a brand_kit section.
func (r *Reconciler) Reconcile(jobID string, raw map[string]any) (*model.BrandKit, error) {
	if raw == nil {
		return nil, eris.Wrap(&resilience.DataUnavailableError{JobID: jobID}, "kit: reconcile")
	}

	k := &model.BrandKit{
		ProfileID:       jobID,
		BrandScores:     mapSection(raw, "brand_scores"),
		BrandRoadmap:    mapSection(raw, "brand_roadmap"),
		AnalysisContext: mapSection(raw, "analysis_context"),
		Source:          model.KitSourceAuto,
		GeneratedAt:     time.Now().UTC(),
	}

	if rawJSON, err := json.Marshal(raw); err == nil {
		k.V2Raw = rawJSON
	}

	if comp := mapSection(raw, "comprehensive"); comp != nil {
		k.Comprehensive = comp
		k.FormatVersion = model.FormatComprehensive
		return k, nil
	}

	bk := mapSection(raw, "brand_kit")
	if bk == nil {
		return nil, eris.Wrap(&resilience.DataUnavailableError{JobID: jobID}, "kit: reconcile")
	}

	if hasWrappedFields(bk) {
		k.Comprehensive = bk
		k.FormatVersion = model.FormatV2Raw
		return k, nil
	}

	zap.L().Info("kit: lifting legacy flat brand_kit into canonical shape",
		zap.String("job_id", jobID),
	)
	k.Comprehensive = liftLegacyKit(bk, r.fallback)
	k.FormatVersion = model.FormatLegacyFlat
	k.Source = model.KitSourceAutoFallback
	return k, nil
}

// hasWrappedFields reports whether at least one nested field of the kit is
// wrapper-shaped, i.e. a map carrying a "value" sub-key one level inside a
// section. This is the heuristic that separates v2-raw from legacy flat.
func hasWrappedFields(bk map[string]any) bool {
	for _, sec := range bk {
		section, ok := sec.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range section {
			if fm, ok := field.(map[string]any); ok {
				if _, has := fm["value"]; has {
					return true
				}
			}
		}
	}
	return false
}

func mapSection(raw map[string]any, name string) map[string]any {
	m, _ := raw[name].(map[string]any)
	return m
}
