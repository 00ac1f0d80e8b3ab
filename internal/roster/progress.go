package roster

import (
	"context"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// UpdateGear edits a gear slot by hand. Unknown slots are ignored.
func (s *Service) UpdateGear(ctx context.Context, id int, req types.GearUpdate) (*types.Character, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	return s.character(ctx, id, func(_ *types.RosterDocument, c *types.Character) error {
		slot, ok := c.Gear[req.Slot]
		if !ok {
			return nil
		}
		if req.ItemLevel != nil {
			slot.ItemLevel = max(0, *req.ItemLevel)
		}
		if req.UpgradeTrack != nil {
			slot.UpgradeTrack = *req.UpgradeTrack
		}
		if req.ItemName != nil {
			slot.ItemName = *req.ItemName
		}
		c.Gear[req.Slot] = slot
		return nil
	})
}

// RecordCrests stores a crest amount for a week, the current week by default.
// Unknown crest types are ignored.
func (s *Service) RecordCrests(ctx context.Context, id int, req types.CrestUpdate) (*types.Character, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	return s.character(ctx, id, func(doc *types.RosterDocument, c *types.Character) error {
		track, ok := c.Crests[req.CrestType]
		if !ok {
			return nil
		}
		week := doc.Meta.CurrentWeek
		if req.Week != nil {
			week = *req.Week
		}
		derive.RecordCrestAmount(track, week, *req.Amount, doc.Meta.CurrentWeek)
		return nil
	})
}

// UpdateProfession edits one profession's weekly state. Professions the
// character does not have are ignored.
func (s *Service) UpdateProfession(ctx context.Context, id int, req types.ProfessionUpdate) (*types.Character, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	return s.character(ctx, id, func(_ *types.RosterDocument, c *types.Character) error {
		prof, ok := c.ProfessionProgress[req.Profession]
		if !ok {
			return nil
		}
		if req.WeeklyQuestDone != nil {
			prof.WeeklyQuestDone = *req.WeeklyQuestDone
		}
		if req.PatronOrdersDone != nil {
			prof.PatronOrdersDone = *req.PatronOrdersDone
		}
		if req.TreatiseDone != nil {
			prof.TreatiseDone = *req.TreatiseDone
		}
		if req.KnowledgePoints != nil {
			prof.KnowledgePoints = max(0, *req.KnowledgePoints)
		}
		if req.Concentration != nil {
			prof.Concentration = min(max(0, *req.Concentration), types.MaxConcentration)
		}
		return nil
	})
}

// SetTask marks a task done or undone. Weekly tasks are recorded against the
// current week; task ids are not checked against the calendar.
func (s *Service) SetTask(ctx context.Context, id int, req types.TaskUpdate) (*types.Character, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	return s.character(ctx, id, func(doc *types.RosterDocument, c *types.Character) error {
		switch req.TaskType {
		case types.TaskWeekly:
			derive.SeedWeek(c, doc.Meta.CurrentWeek)
			c.WeeklyTasks[types.WeekKey(doc.Meta.CurrentWeek)][req.TaskID] = req.Done
		case types.TaskDaily:
			if c.DailyTasks == nil {
				c.DailyTasks = map[string]bool{}
			}
			c.DailyTasks[req.TaskID] = req.Done
		}
		return nil
	})
}

// UpdateWeeklyProgress edits the current week's raid, keystone, delve and
// vault summary.
func (s *Service) UpdateWeeklyProgress(ctx context.Context, id int, req types.WeeklyProgressUpdate) (*types.Character, error) {
	return s.character(ctx, id, func(doc *types.RosterDocument, c *types.Character) error {
		derive.SeedWeek(c, doc.Meta.CurrentWeek)
		wp := c.WeeklyProgress[types.WeekKey(doc.Meta.CurrentWeek)]

		if rb := req.RaidBosses; rb != nil {
			setNonNegative(&wp.RaidBosses.LFR, rb.LFR)
			setNonNegative(&wp.RaidBosses.Normal, rb.Normal)
			setNonNegative(&wp.RaidBosses.Heroic, rb.Heroic)
			setNonNegative(&wp.RaidBosses.Mythic, rb.Mythic)
		}
		if req.MythicPlusRuns != nil {
			runs := req.MythicPlusRuns[:min(len(req.MythicPlusRuns), types.MaxMythicPlusRuns)]
			wp.MythicPlusRuns = append([]types.MythicPlusRun{}, runs...)
		}
		setNonNegative(&wp.HighestDelveTier, req.HighestDelveTier)
		if req.VaultChoices != nil {
			var choices [types.VaultChoiceCount]*types.VaultChoice
			copy(choices[:], req.VaultChoices)
			wp.VaultChoices = choices
		}
		return nil
	})
}

func setNonNegative(dst *int, v *int) {
	if v != nil {
		*dst = max(0, *v)
	}
}
