package derive

import (
	"strconv"

	"github.com/chrolicious/hoolgg-roster/internal/season"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// View is the read-side projection of the document returned by "get full document".
type View struct {
	*types.RosterDocument
	WeeklyTarget   int                        `json:"weekly_target"`
	WeeklyCrestCap int                        `json:"weekly_crest_cap"`
	WeeklyTasks    season.WeekPlan            `json:"weekly_tasks"`
	TaskStatus     map[string]season.WeekPlan `json:"task_status"`
}

// Snapshot refreshes derived fields on doc and builds the read-side view.
// TaskStatus holds the current week's plan per character id with done flags filled in.
func Snapshot(doc *types.RosterDocument, cal *season.Calendar) View {
	RefreshDocument(doc)

	week := doc.Meta.CurrentWeek
	view := View{
		RosterDocument: doc,
		WeeklyTarget:   cal.WeeklyTarget(week),
		WeeklyCrestCap: cal.WeeklyCrestCap(week),
		WeeklyTasks:    cal.Plan(week),
		TaskStatus:     make(map[string]season.WeekPlan, len(doc.Characters)),
	}
	for _, c := range doc.Characters {
		view.TaskStatus[strconv.Itoa(c.ID)] = CharacterPlan(c, cal, week)
	}
	return view
}

// CharacterPlan returns week's plan with c's completion state applied.
func CharacterPlan(c *types.Character, cal *season.Calendar, week int) season.WeekPlan {
	plan := cal.Plan(week)
	done := c.WeeklyTasks[types.WeekKey(week)]
	for i := range plan.Weekly {
		plan.Weekly[i].Done = done[plan.Weekly[i].ID]
	}
	for i := range plan.Daily {
		plan.Daily[i].Done = c.DailyTasks[plan.Daily[i].ID]
	}
	return plan
}
