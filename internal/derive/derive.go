// Package derive computes the values that are derived from the roster document:
// average item level, crest views, week changes and the read-side snapshot.
package derive

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// ErrWeekOutOfRange is returned when a week number falls outside the season calendar.
var ErrWeekOutOfRange = errors.New("week out of range")

// AverageItemLevel returns the mean item level over the 16 gear slots, rounded to
// one decimal. Empty slots count as zero.
func AverageItemLevel(gear map[string]types.GearSlot) float64 {
	total := 0
	for _, slot := range types.SlotKeys {
		total += gear[slot].ItemLevel
	}
	avg := float64(total) / types.SlotCount
	return math.RoundToEven(avg*10) / 10
}

// RecordCrestAmount stores amount as the crest income for week and rebuilds the
// track's views. Negative amounts are clamped to zero; there is no upper cap.
func RecordCrestAmount(track *types.CrestTrack, week, amount, currentWeek int) {
	if track.WeeklyHistory == nil {
		track.WeeklyHistory = map[string]int{}
	}
	track.WeeklyHistory[types.WeekKey(week)] = max(0, amount)
	track.Recompute(currentWeek)
}

// RefreshCharacter recomputes every derived field on c for currentWeek.
func RefreshCharacter(c *types.Character, currentWeek int) {
	c.AvgItemLevel = AverageItemLevel(c.Gear)
	for _, track := range c.Crests {
		track.Recompute(currentWeek)
	}
}

// RefreshDocument recomputes derived fields for every character.
func RefreshDocument(doc *types.RosterDocument) {
	for _, c := range doc.Characters {
		RefreshCharacter(c, doc.Meta.CurrentWeek)
	}
}

// SeedWeek materializes the per-week entries for week if they are missing.
func SeedWeek(c *types.Character, week int) {
	key := types.WeekKey(week)
	if c.WeeklyProgress == nil {
		c.WeeklyProgress = map[string]*types.WeeklyProgress{}
	}
	if _, ok := c.WeeklyProgress[key]; !ok {
		c.WeeklyProgress[key] = types.NewWeeklyProgress()
	}
	if c.WeeklyTasks == nil {
		c.WeeklyTasks = map[string]map[string]bool{}
	}
	if _, ok := c.WeeklyTasks[key]; !ok {
		c.WeeklyTasks[key] = map[string]bool{}
	}
}

// AdvanceWeek moves the document to newWeek. When the week changes, crest views
// are refreshed from history, daily tasks are cleared and the new week's entries
// are seeded. Weekly task history is kept. It reports whether the week changed.
func AdvanceWeek(doc *types.RosterDocument, newWeek int) (bool, error) {
	if !types.ValidWeek(newWeek) {
		return false, fmt.Errorf("%w: %d (must be %d-%d)", ErrWeekOutOfRange, newWeek, types.MinWeek, types.MaxWeek)
	}
	if newWeek == doc.Meta.CurrentWeek {
		return false, nil
	}

	doc.Meta.CurrentWeek = newWeek
	for _, c := range doc.Characters {
		for _, track := range c.Crests {
			track.Recompute(newWeek)
		}
		c.DailyTasks = map[string]bool{}
		SeedWeek(c, newWeek)
	}
	return true, nil
}

// ResetDaily clears every character's daily tasks.
func ResetDaily(doc *types.RosterDocument) {
	for _, c := range doc.Characters {
		c.DailyTasks = map[string]bool{}
	}
}
