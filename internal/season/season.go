// Package season provides the fixed season calendar: weekly item level targets,
// the crest accrual cap, and the task plan for each week.
package season

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed season.yaml
var calendarYAML []byte

// Task is one checklist entry in a week's plan.
type Task struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Done  bool   `yaml:"-" json:"done"`
}

// WeekPlan is the weekly and daily checklist for one week.
type WeekPlan struct {
	Name   string `yaml:"name" json:"name"`
	Weekly []Task `yaml:"weekly" json:"weekly"`
	Daily  []Task `yaml:"daily" json:"daily"`
}

// Calendar is the parsed season definition.
type Calendar struct {
	DefaultTarget    int              `yaml:"default_target"`
	CrestCapPerWeek  int              `yaml:"crest_cap_per_week"`
	Targets          map[int]int      `yaml:"targets"`
	Weeks            map[int]WeekPlan `yaml:"weeks"`
	CarryForwardFrom int              `yaml:"carry_forward_from"`
}

// unknownWeek is returned when the calendar has no plan at all to fall back on.
var unknownWeek = WeekPlan{Name: "Unknown Week", Weekly: []Task{}, Daily: []Task{}}

var defaultCalendar = mustParse(calendarYAML)

// Parse decodes a calendar definition.
func Parse(data []byte) (*Calendar, error) {
	var cal Calendar
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("failed to parse season calendar: %w", err)
	}
	if cal.DefaultTarget <= 0 {
		return nil, fmt.Errorf("season calendar: default_target must be positive")
	}
	if cal.CrestCapPerWeek <= 0 {
		return nil, fmt.Errorf("season calendar: crest_cap_per_week must be positive")
	}
	return &cal, nil
}

func mustParse(data []byte) *Calendar {
	cal, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return cal
}

// Default returns the embedded season calendar.
func Default() *Calendar {
	return defaultCalendar
}

// WeeklyTarget returns the item level target for week, or the default ceiling
// for weeks outside the table.
func (c *Calendar) WeeklyTarget(week int) int {
	if target, ok := c.Targets[week]; ok {
		return target
	}
	return c.DefaultTarget
}

// WeeklyCrestCap returns the cumulative crest cap for week. Display only.
func (c *Calendar) WeeklyCrestCap(week int) int {
	return c.CrestCapPerWeek * week
}

// Plan returns a copy of the task plan for week.
func (c *Calendar) Plan(week int) WeekPlan {
	plan, ok := c.Weeks[week]
	if !ok && week > c.CarryForwardFrom {
		plan, ok = c.Weeks[c.CarryForwardFrom]
	}
	if !ok {
		plan, ok = c.Weeks[0]
	}
	if !ok {
		plan = unknownWeek
	}
	return WeekPlan{
		Name:   plan.Name,
		Weekly: cloneTasks(plan.Weekly),
		Daily:  cloneTasks(plan.Daily),
	}
}

// HasTask reports whether id is part of week's plan for the given kind ("weekly" or "daily").
func (c *Calendar) HasTask(week int, kind, id string) bool {
	plan := c.Plan(week)
	tasks := plan.Weekly
	if kind == "daily" {
		tasks = plan.Daily
	}
	return slices.ContainsFunc(tasks, func(t Task) bool { return t.ID == id })
}

func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	return slices.Clone(tasks)
}

// WeeklyTarget returns the default calendar's item level target for week.
func WeeklyTarget(week int) int { return defaultCalendar.WeeklyTarget(week) }

// WeeklyCrestCap returns the default calendar's crest cap for week.
func WeeklyCrestCap(week int) int { return defaultCalendar.WeeklyCrestCap(week) }

// Plan returns the default calendar's task plan for week.
func Plan(week int) WeekPlan { return defaultCalendar.Plan(week) }
