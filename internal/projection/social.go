package projection

import (
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/brandintel/internal/model"
)

var titleCaser = cases.Title(language.English)

// ExtractSocialProfiles scans the canonical external_presence section and
// emits one row per found/inferred platform entry. Missing-status entries
// are skipped; unknown platforms pass through with their given label. The
// returned set fully replaces the profile's social rows on persistence —
// the canonical structure is the single source of truth for this table.
func ExtractSocialProfiles(profileID string, comp map[string]any, catalog *PlatformCatalog) []model.SocialProfile {
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	items := model.Items(model.Lookup(comp, "external_presence.social_profiles"))
	var profiles []model.SocialProfile
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		label := str(entry["platform"])
		if label == "" {
			label = str(entry["name"])
		}
		if label == "" {
			continue
		}

		status := entryStatus(entry)
		if status != model.FieldStatusFound && status != model.FieldStatusInferred {
			continue
		}

		platform, recognized := catalog.Canonical(label)
		display := label
		if recognized {
			display = titleCaser.String(platform)
		}

		sp := model.SocialProfile{
			ID:         uuid.New().String(),
			ProfileID:  profileID,
			Platform:   platform,
			Label:      display,
			URL:        str(entry["url"]),
			Username:   str(entry["username"]),
			Status:     status,
			Confidence: number(entry["confidence"]),
		}
		if sp.Username == "" {
			sp.Username = str(entry["handle"])
		}
		if src, ok := entry["source"].([]any); ok {
			for _, s := range src {
				if v := str(s); v != "" {
					sp.Source = append(sp.Source, v)
				}
			}
		}
		profiles = append(profiles, sp)
	}
	return profiles
}

// entryStatus reads an item's own status; entries without one inherit found,
// since the containing field already passed through the wrapper accessors.
func entryStatus(entry map[string]any) model.FieldStatus {
	if s := str(entry["status"]); s != "" {
		return model.FieldStatus(s)
	}
	return model.FieldStatusFound
}
