//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCharacter_FullyPopulated(t *testing.T) {
	c := NewCharacter(3, CreateCharacterRequest{Professions: []string{"Alchemy", "", "Herbalism"}})

	assert.Equal(t, "Character 3", c.Name)
	assert.Equal(t, 3, c.Order)
	assert.Len(t, c.Gear, SlotCount)
	for _, slot := range SlotKeys {
		assert.Equal(t, DefaultGearSlot(), c.Gear[slot], slot)
	}
	require.Len(t, c.Crests, 4)
	for _, crest := range CrestTypes {
		require.NotNil(t, c.Crests[crest])
		assert.NotNil(t, c.Crests[crest].WeeklyHistory)
	}
	assert.Len(t, c.ProfessionProgress, 2)
	assert.Equal(t, MaxConcentration, c.ProfessionProgress["Alchemy"].Concentration)
	assert.NotNil(t, c.WeeklyTasks)
	assert.NotNil(t, c.DailyTasks)
	assert.NotNil(t, c.WeeklyProgress)
	assert.NotNil(t, c.BisList)
	assert.NotNil(t, c.TalentBuilds)
	assert.NotNil(t, c.Stats)
	assert.Nil(t, c.AvatarURL)
}

func TestCrestTrack_Recompute(t *testing.T) {
	track := &CrestTrack{
		CurrentWeekAmount: 999,
		Total:             -4,
		WeeklyHistory:     map[string]int{"1": 45, "2": 30, "5": 10},
	}

	track.Recompute(2)
	assert.Equal(t, 85, track.Total)
	assert.Equal(t, 30, track.CurrentWeekAmount)

	track.Recompute(3)
	assert.Equal(t, 85, track.Total)
	assert.Equal(t, 0, track.CurrentWeekAmount)
}

func TestCrestTrack_RecomputeNilHistory(t *testing.T) {
	track := &CrestTrack{Total: 12}
	track.Recompute(0)
	assert.NotNil(t, track.WeeklyHistory)
	assert.Equal(t, 0, track.Total)
}

func TestBisItem_ObtainedClearsSynced(t *testing.T) {
	b := &BisItem{}
	b.MarkSynced()
	assert.True(t, b.Obtained)
	assert.True(t, b.Synced)

	b.SetObtained(true)
	assert.True(t, b.Synced, "re-setting obtained keeps synced")

	b.SetObtained(false)
	assert.False(t, b.Obtained)
	assert.False(t, b.Synced)
}

func TestRosterDocument_IDsAndOrder(t *testing.T) {
	doc := NewDocument(time.Now())
	assert.Equal(t, 1, doc.NextCharacterID())

	doc.Characters = append(doc.Characters,
		&Character{ID: 4, Order: 1},
		&Character{ID: 2, Order: 0},
		&Character{ID: 7, Order: 1},
	)
	assert.Equal(t, 8, doc.NextCharacterID())

	doc.SortCharacters()
	assert.Equal(t, []int{2, 4, 7}, characterIDs(doc))

	assert.True(t, doc.RemoveCharacter(7))
	assert.False(t, doc.RemoveCharacter(7))
	assert.Nil(t, doc.Character(7))
	assert.Equal(t, 5, doc.NextCharacterID())
}

func TestAPIConfig_TokenValid(t *testing.T) {
	now := time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	cfg := APIConfig{CachedToken: "abc", TokenExpiry: &later}

	assert.True(t, cfg.TokenValid(now))
	assert.False(t, cfg.TokenValid(later))

	cfg.InvalidateToken()
	assert.False(t, cfg.TokenValid(now))
	assert.Nil(t, cfg.TokenExpiry)
}

func TestNullableInt_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		want    *int
	}{
		{name: "absent", body: `{}`, wantSet: false},
		{name: "null", body: `{"item_id": null}`, wantSet: true},
		{name: "zero means none", body: `{"item_id": 0}`, wantSet: true},
		{name: "value", body: `{"item_id": 212401}`, wantSet: true, want: intPtr(212401)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var upd BisUpdate
			require.NoError(t, json.Unmarshal([]byte(tt.body), &upd))
			assert.Equal(t, tt.wantSet, upd.ItemID.Set)
			assert.Equal(t, tt.want, upd.ItemID.Value)
		})
	}
}

func TestValidate_Requests(t *testing.T) {
	week := 13
	assert.Error(t, Validate(WeekRequest{CurrentWeek: &week}))
	assert.Error(t, Validate(WeekRequest{}))
	week = 12
	assert.NoError(t, Validate(WeekRequest{CurrentWeek: &week}))

	assert.Error(t, Validate(CreateBisRequest{Slot: "head"}))
	assert.NoError(t, Validate(CreateBisRequest{Slot: "head", ItemName: "Crown"}))

	assert.Error(t, Validate(CreateTalentBuildRequest{Name: "Raid"}))
	assert.Error(t, Validate(TaskUpdate{TaskType: "monthly", TaskID: "x"}))
	assert.NoError(t, Validate(TaskUpdate{TaskType: TaskDaily, TaskID: "prey"}))

	mode := CredentialMode("other")
	assert.Error(t, Validate(CredentialsUpdate{CredentialMode: &mode}))
	assert.NoError(t, Validate(CredentialsUpdate{}))
}

func characterIDs(doc *RosterDocument) []int {
	ids := make([]int, 0, len(doc.Characters))
	for _, c := range doc.Characters {
		ids = append(ids, c.ID)
	}
	return ids
}

func intPtr(v int) *int { return &v }
