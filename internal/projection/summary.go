package projection

import (
	"github.com/sells-group/brandintel/internal/model"
)

// BuildSummary pulls the fixed set of denormalized scalar columns out of a
// kit. Every read goes through the field accessors so wrapped/unwrapped
// format drift cannot silently flip a boolean; presence flags come from
// IsPresent, not from raw null-checks. The summary is recomputed in full on
// every completion — never patched.
func BuildSummary(k *model.BrandKit) model.ProfileSummary {
	comp := k.Comprehensive

	s := model.ProfileSummary{
		Domain:            strValue(comp, "meta.domain"),
		BrandName:         strValue(comp, "meta.brand_name"),
		Persona:           strValue(comp, "meta.persona"),
		EntityType:        strValue(comp, "meta.entity_type"),
		HasBlog:           model.IsPresent(model.Lookup(comp, "external_presence.blog")),
		HasSocialProfiles: model.IsPresent(model.Lookup(comp, "external_presence.social_profiles")),
		HasReviewSites:    model.IsPresent(model.Lookup(comp, "external_presence.review_sites")),
	}

	// Persona may live in the analysis context rather than the kit.
	if s.Persona == "" && k.AnalysisContext != nil {
		s.Persona = str(k.AnalysisContext["persona"])
	}

	s.OverallScore = score(k, "overall", "overall_score")
	s.CompletenessScore = score(k, "completeness", "completeness_score")

	return s
}

func strValue(comp map[string]any, path string) string {
	s, _ := model.Value(model.Lookup(comp, path)).(string)
	return s
}

// score reads a named score from brand_scores, tolerating both the short and
// the suffixed key, then falls back to a wrapped scores section in the
// canonical structure.
func score(k *model.BrandKit, short, suffixed string) float64 {
	if k.BrandScores != nil {
		if v, ok := k.BrandScores[short]; ok {
			return number(v)
		}
		if v, ok := k.BrandScores[suffixed]; ok {
			return number(v)
		}
	}
	if v := model.Value(model.Lookup(k.Comprehensive, "scores."+short)); v != nil {
		return number(v)
	}
	return 0
}
