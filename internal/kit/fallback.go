package kit

import (
	"sort"

	"github.com/sells-group/brandintel/internal/model"
)

// fallbackSource is the provenance tag stamped on every lifted legacy field.
const fallbackSource = "fallback_transform"

// FallbackOptions tunes the confidence assigned to lifted legacy fields.
// Legacy payloads carry no confidence of their own, so these are heuristics,
// not a contract.
type FallbackOptions struct {
	ScalarConfidence float64
	ListConfidence   float64
}

func (o FallbackOptions) withDefaults() FallbackOptions {
	if o.ScalarConfidence <= 0 {
		o.ScalarConfidence = 0.6
	}
	if o.ListConfidence <= 0 {
		o.ListConfidence = 0.5
	}
	return o
}

// legacyFieldMap routes known legacy flat keys into canonical sections.
// Order matters only for readability; the lift walks this table, not the
// payload, so output shape is deterministic.
var legacyFieldMap = []struct {
	legacyKey   string
	section     string
	field       string
	description string
}{
	{"brand_name", "meta", "brand_name", "brand name"},
	{"company_name", "meta", "brand_name", "brand name"},
	{"domain", "meta", "domain", "primary domain"},
	{"website", "meta", "domain", "primary domain"},
	{"entity_type", "meta", "entity_type", "entity type"},
	{"persona", "meta", "persona", "detected persona"},
	{"industry", "meta", "industry", "industry"},
	{"tagline", "verbal_identity", "tagline", "tagline"},
	{"mission", "verbal_identity", "mission", "mission statement"},
	{"description", "verbal_identity", "description", "brand description"},
	{"tone", "verbal_identity", "tone_of_voice", "tone of voice"},
	{"keywords", "verbal_identity", "keywords", "brand keywords"},
	{"logo_url", "visual_identity", "logo", "logo URL"},
	{"colors", "visual_identity", "colors", "brand colors"},
	{"fonts", "visual_identity", "fonts", "brand fonts"},
	{"blog_url", "external_presence", "blog", "blog URL"},
	{"review_sites", "external_presence", "review_sites", "review sites"},
}

// liftLegacyKit transforms a legacy flat brand_kit into the canonical
// wrapped shape. Each present legacy field becomes a FieldValue with
// status=found and the fallback provenance tag; the social_links map becomes
// an external_presence.social_profiles items container.
func liftLegacyKit(flat map[string]any, opts FallbackOptions) map[string]any {
	comp := make(map[string]any)

	section := func(name string) map[string]any {
		sec, ok := comp[name].(map[string]any)
		if !ok {
			sec = make(map[string]any)
			comp[name] = sec
		}
		return sec
	}

	for _, fm := range legacyFieldMap {
		v, ok := flat[fm.legacyKey]
		if !ok || v == nil {
			continue
		}
		sec := section(fm.section)
		if _, taken := sec[fm.field]; taken {
			// First legacy alias wins (brand_name over company_name).
			continue
		}
		conf := opts.ScalarConfidence
		if _, isList := v.([]any); isList {
			conf = opts.ListConfidence
		}
		sec[fm.field] = model.Wrap(v, model.FieldStatusFound, conf, []string{fallbackSource}, fm.description)
	}

	if links, ok := flat["social_links"].(map[string]any); ok && len(links) > 0 {
		platforms := make([]string, 0, len(links))
		for p := range links {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)

		items := make([]any, 0, len(platforms))
		for _, p := range platforms {
			url, _ := links[p].(string)
			items = append(items, map[string]any{
				"platform": p,
				"url":      url,
				"status":   string(model.FieldStatusFound),
			})
		}
		section("external_presence")["social_profiles"] = model.Wrap(
			map[string]any{"items": items},
			model.FieldStatusFound,
			opts.ListConfidence,
			[]string{fallbackSource},
			"social profiles",
		)
	}

	return comp
}
