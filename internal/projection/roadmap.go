package projection

import (
	"github.com/sells-group/brandintel/internal/model"
)

// BuildRoadmap walks the engine's campaign→milestone→task tree and emits
// flat upsert batches for each level. Campaign, milestone, and task ids are
// engine-supplied and stable across re-analyses; rows without an id are
// dropped rather than minted locally, since local ids would break upsert
// stability. Task ordering fields (recommended_order, priority_score) are
// preserved verbatim, never re-sorted.
func BuildRoadmap(profileID string, roadmap map[string]any) model.Roadmap {
	var out model.Roadmap
	if roadmap == nil {
		return out
	}

	campaigns, _ := roadmap["campaigns"].([]any)
	for ci, c := range campaigns {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		campaignID := str(cm["id"])
		if campaignID == "" {
			continue
		}

		out.Campaigns = append(out.Campaigns, model.RoadmapCampaign{
			ID:        campaignID,
			ProfileID: profileID,
			Name:      str(cm["name"]),
			Objective: str(cm["objective"]),
			Timeline:  str(cm["timeline"]),
			SortOrder: ci,
		})

		out.Tasks = append(out.Tasks, buildTasks(profileID, campaignID, "", cm["tasks"])...)

		milestones, _ := cm["milestones"].([]any)
		for mi, m := range milestones {
			mm, ok := m.(map[string]any)
			if !ok {
				continue
			}
			milestoneID := str(mm["id"])
			if milestoneID == "" {
				continue
			}
			out.Milestones = append(out.Milestones, model.RoadmapMilestone{
				ID:         milestoneID,
				ProfileID:  profileID,
				CampaignID: campaignID,
				Name:       str(mm["name"]),
				TargetDate: str(mm["target_date"]),
				SortOrder:  mi,
			})
			out.Tasks = append(out.Tasks, buildTasks(profileID, campaignID, milestoneID, mm["tasks"])...)
		}
	}

	return out
}

func buildTasks(profileID, campaignID, milestoneID string, raw any) []model.RoadmapTask {
	list, _ := raw.([]any)
	var tasks []model.RoadmapTask
	for _, tRaw := range list {
		tm, ok := tRaw.(map[string]any)
		if !ok {
			continue
		}
		taskID := str(tm["id"])
		if taskID == "" {
			continue
		}

		status := model.TaskStatus(str(tm["status"]))
		switch status {
		case model.TaskStatusPending, model.TaskStatusInProgress, model.TaskStatusCompleted, model.TaskStatusSkipped:
		default:
			status = model.TaskStatusPending
		}

		var dependsOn []string
		if deps, ok := tm["depends_on"].([]any); ok {
			for _, d := range deps {
				if s := str(d); s != "" {
					dependsOn = append(dependsOn, s)
				}
			}
		}

		tasks = append(tasks, model.RoadmapTask{
			ID:               taskID,
			ProfileID:        profileID,
			CampaignID:       campaignID,
			MilestoneID:      milestoneID,
			Title:            str(tm["title"]),
			Description:      str(tm["description"]),
			Status:           status,
			Impact:           level(tm["impact"]),
			Effort:           level(tm["effort"]),
			DependsOn:        dependsOn,
			IsQuickWin:       boolean(tm["is_quick_win"]),
			RecommendedOrder: integer(tm["recommended_order"]),
			PriorityScore:    number(tm["priority_score"]),
		})
	}
	return tasks
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func integer(v any) int {
	return int(number(v))
}

func level(v any) model.Level {
	switch l := model.Level(str(v)); l {
	case model.LevelLow, model.LevelMedium, model.LevelHigh:
		return l
	default:
		return ""
	}
}
