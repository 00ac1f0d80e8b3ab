//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// NewDocument returns the document written on first run.
func NewDocument(now time.Time) *RosterDocument {
	return &RosterDocument{
		Meta: Meta{
			CurrentWeek:   MinWeek,
			LastUpdated:   now.UTC(),
			SchemaVersion: CurrentSchemaVersion,
		},
		APIConfig: APIConfig{
			CredentialMode: CredentialsShared,
			Region:         DefaultRegion,
		},
		Characters: []*Character{},
	}
}

// NewCharacter returns a character with every sub-structure populated.
func NewCharacter(id int, req CreateCharacterRequest) *Character {
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s %d", DefaultCharacterName, id)
	}
	professions := req.Professions
	if professions == nil {
		professions = []string{}
	}
	return &Character{
		ID:                 id,
		Name:               name,
		Realm:              req.Realm,
		CharacterName:      req.CharacterName,
		Order:              id,
		Professions:        professions,
		Gear:               NewGear(),
		Crests:             NewCrestTracks(),
		ProfessionProgress: NewProfessionProgress(professions),
		WeeklyTasks:        map[string]map[string]bool{},
		DailyTasks:         map[string]bool{},
		WeeklyProgress:     map[string]*WeeklyProgress{},
		BisList:            []*BisItem{},
		TalentBuilds:       []*TalentBuild{},
		Stats:              map[string]float64{},
	}
}

// DefaultGearSlot returns an empty slot.
func DefaultGearSlot() GearSlot {
	return GearSlot{
		UpgradeTrack: DefaultUpgradeTrack,
		Quality:      DefaultQuality,
	}
}

// NewGear returns all 16 slots empty.
func NewGear() map[string]GearSlot {
	gear := make(map[string]GearSlot, SlotCount)
	for _, slot := range SlotKeys {
		gear[slot] = DefaultGearSlot()
	}
	return gear
}

// NewCrestTracks returns all four crest tracks with empty history.
func NewCrestTracks() map[string]*CrestTrack {
	crests := make(map[string]*CrestTrack, len(CrestTypes))
	for _, crest := range CrestTypes {
		crests[crest] = &CrestTrack{WeeklyHistory: map[string]int{}}
	}
	return crests
}

// NewProfessionState returns untouched weekly profession state.
func NewProfessionState() *ProfessionState {
	return &ProfessionState{Concentration: MaxConcentration}
}

// NewProfessionProgress builds progress entries for each non-empty profession.
func NewProfessionProgress(professions []string) map[string]*ProfessionState {
	progress := make(map[string]*ProfessionState)
	for _, p := range professions {
		if p == "" {
			continue
		}
		progress[p] = NewProfessionState()
	}
	return progress
}

// NewWeeklyProgress returns an empty week summary.
func NewWeeklyProgress() *WeeklyProgress {
	return &WeeklyProgress{MythicPlusRuns: []MythicPlusRun{}}
}
