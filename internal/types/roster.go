// Package types provides type definitions for the persisted roster document and the
// requests that mutate it.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"strconv"
	"time"
)

// CurrentSchemaVersion is stamped into meta.schema_version by the migration pass.
const CurrentSchemaVersion = 2

// Season calendar bounds for meta.current_week.
const (
	MinWeek = 0
	MaxWeek = 12
)

// SlotCount is the fixed number of gear slots; averages always divide by it.
const SlotCount = 16

// Defaults applied to new or backfilled records.
const (
	DefaultQuality       = "COMMON"
	DefaultUpgradeTrack  = "Adventurer"
	DefaultRegion        = "us"
	MaxConcentration     = 1000
	MaxMythicPlusRuns    = 8
	VaultChoiceCount     = 3
	TwoHandedNamePrefix  = "(2H: "
	TwoHandedNameSuffix  = ")"
	DefaultCharacterName = "Character"
)

// Gear slot keys in canonical display order.
const (
	SlotHead     = "head"
	SlotNeck     = "neck"
	SlotShoulder = "shoulder"
	SlotBack     = "back"
	SlotChest    = "chest"
	SlotWrist    = "wrist"
	SlotHands    = "hands"
	SlotWaist    = "waist"
	SlotLegs     = "legs"
	SlotFeet     = "feet"
	SlotRing1    = "ring1"
	SlotRing2    = "ring2"
	SlotTrinket1 = "trinket1"
	SlotTrinket2 = "trinket2"
	SlotMainHand = "main_hand"
	SlotOffHand  = "off_hand"
)

// SlotKeys lists the 16 gear slots. The set is exhaustive; slots are never added or removed.
var SlotKeys = []string{
	SlotHead, SlotNeck, SlotShoulder, SlotBack, SlotChest, SlotWrist, SlotHands, SlotWaist,
	SlotLegs, SlotFeet, SlotRing1, SlotRing2, SlotTrinket1, SlotTrinket2, SlotMainHand, SlotOffHand,
}

// CrestTypes lists the four crest tiers, lowest first.
var CrestTypes = []string{"weathered", "carved", "runed", "gilded"}

// CredentialMode selects which provider credentials are used for token requests.
type CredentialMode string

// Credential modes
const (
	CredentialsShared CredentialMode = "shared"
	CredentialsCustom CredentialMode = "custom"
)

// RosterDocument is the single persisted root.
type RosterDocument struct {
	Meta       Meta         `json:"meta"`
	APIConfig  APIConfig    `json:"api_config"`
	Characters []*Character `json:"characters"`
}

// Meta holds document-wide state.
type Meta struct {
	CurrentWeek   int       `json:"current_week"`
	LastUpdated   time.Time `json:"last_updated"`
	SchemaVersion int       `json:"schema_version"`
}

// APIConfig holds provider credentials plus a cached access token.
// CachedToken and TokenExpiry are a cache, never the source of truth.
type APIConfig struct {
	CredentialMode CredentialMode `json:"credential_mode"`
	ClientID       string         `json:"client_id"`
	ClientSecret   string         `json:"client_secret"`
	Region         string         `json:"region"`
	CachedToken    string         `json:"cached_token"`
	TokenExpiry    *time.Time     `json:"token_expiry"`
}

// InvalidateToken drops the cached token.
func (c *APIConfig) InvalidateToken() {
	c.CachedToken = ""
	c.TokenExpiry = nil
}

// TokenValid reports whether the cached token can still be used at now.
func (c *APIConfig) TokenValid(now time.Time) bool {
	return c.CachedToken != "" && c.TokenExpiry != nil && now.Before(*c.TokenExpiry)
}

// Character is one tracked roster member.
type Character struct {
	ID                 int                         `json:"id"`
	Name               string                      `json:"name"`
	Realm              string                      `json:"realm"`
	CharacterName      string                      `json:"character_name"`
	Class              string                      `json:"class"`
	Level              int                         `json:"level"`
	Order              int                         `json:"order"`
	Professions        []string                    `json:"professions"`
	AvgItemLevel       float64                     `json:"avg_ilvl"`
	Gear               map[string]GearSlot         `json:"gear"`
	Crests             map[string]*CrestTrack      `json:"crests"`
	ProfessionProgress map[string]*ProfessionState `json:"profession_progress"`
	WeeklyTasks        map[string]map[string]bool  `json:"weekly_tasks"`
	DailyTasks         map[string]bool             `json:"daily_tasks"`
	WeeklyProgress     map[string]*WeeklyProgress  `json:"weekly_progress"`
	BisList            []*BisItem                  `json:"bis_list"`
	TalentBuilds       []*TalentBuild              `json:"talent_builds"`
	AvatarURL          *string                     `json:"avatar_url"`
	Stats              map[string]float64          `json:"stats"`
	LastSyncTimestamp  *time.Time                  `json:"last_sync_timestamp"`
}

// GearSlot is the state of a single equipment slot.
// UpgradeTrack is a local annotation; provider sync never writes it.
type GearSlot struct {
	ItemLevel    int    `json:"item_level"`
	UpgradeTrack string `json:"upgrade_track"`
	ItemName     string `json:"item_name"`
	ItemID       int    `json:"item_id"`
	Quality      string `json:"quality"`
	SocketCount  int    `json:"socket_count"`
	IsEnchanted  bool   `json:"is_enchanted"`
	IconID       int    `json:"icon_id"`
}

// CrestTrack records crest income per week. Total and CurrentWeekAmount are views
// over WeeklyHistory and are rebuilt by Recompute.
type CrestTrack struct {
	CurrentWeekAmount int            `json:"current_week_amount"`
	Total             int            `json:"total"`
	WeeklyHistory     map[string]int `json:"weekly_history"`
}

// Recompute rebuilds Total and CurrentWeekAmount from WeeklyHistory.
func (t *CrestTrack) Recompute(currentWeek int) {
	if t.WeeklyHistory == nil {
		t.WeeklyHistory = map[string]int{}
	}
	total := 0
	for _, amount := range t.WeeklyHistory {
		total += amount
	}
	t.Total = total
	t.CurrentWeekAmount = t.WeeklyHistory[WeekKey(currentWeek)]
}

// ProfessionState tracks weekly profession chores.
type ProfessionState struct {
	WeeklyQuestDone  bool `json:"weekly_quest_done"`
	PatronOrdersDone bool `json:"patron_orders_done"`
	TreatiseDone     bool `json:"treatise_done"`
	KnowledgePoints  int  `json:"knowledge_points"`
	Concentration    int  `json:"concentration"`
}

// WeeklyProgress summarizes one week's activity feeding the great vault.
type WeeklyProgress struct {
	RaidBosses       RaidBosses                    `json:"raid_bosses"`
	MythicPlusRuns   []MythicPlusRun               `json:"mythic_plus_runs"`
	HighestDelveTier int                           `json:"highest_delve_tier"`
	VaultChoices     [VaultChoiceCount]*VaultChoice `json:"vault_choices"`
}

// RaidBosses counts bosses killed per difficulty.
type RaidBosses struct {
	LFR    int `json:"lfr"`
	Normal int `json:"normal"`
	Heroic int `json:"heroic"`
	Mythic int `json:"mythic"`
}

// MythicPlusRun is one completed keystone run.
type MythicPlusRun struct {
	Dungeon  string `json:"dungeon"`
	KeyLevel int    `json:"key_level"`
	Timed    bool   `json:"timed"`
}

// VaultChoice is one vault reward slot.
type VaultChoice struct {
	Category  string `json:"category"`
	ItemName  string `json:"item_name"`
	ItemLevel int    `json:"item_level"`
}

// BisItem is a best-in-slot wishlist entry.
// Synced implies Obtained; clearing Obtained always clears Synced.
type BisItem struct {
	ID              int    `json:"id"`
	Slot            string `json:"slot"`
	ItemName        string `json:"item_name"`
	ItemID          *int   `json:"item_id"`
	TargetItemLevel *int   `json:"target_item_level"`
	Obtained        bool   `json:"obtained"`
	Synced          bool   `json:"synced"`
}

// SetObtained sets the obtained flag, clearing synced when unset.
func (b *BisItem) SetObtained(obtained bool) {
	b.Obtained = obtained
	if !obtained {
		b.Synced = false
	}
}

// MarkSynced records that the item was found equipped during a provider sync.
func (b *BisItem) MarkSynced() {
	b.Obtained = true
	b.Synced = true
}

// TalentBuild is a saved talent loadout string.
type TalentBuild struct {
	ID           int    `json:"id"`
	Category     string `json:"category"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TalentString string `json:"talent_string"`
}

// WeekKey returns the canonical map key for a week number.
func WeekKey(week int) string {
	return strconv.Itoa(week)
}

// ValidWeek reports whether week lies inside the season calendar.
func ValidWeek(week int) bool {
	return week >= MinWeek && week <= MaxWeek
}

// IsSlot reports whether key is one of the 16 gear slots.
func IsSlot(key string) bool {
	for _, s := range SlotKeys {
		if s == key {
			return true
		}
	}
	return false
}

// Character returns the character with the given id, or nil.
func (d *RosterDocument) Character(id int) *Character {
	for _, c := range d.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// NextCharacterID returns max(existing ids)+1.
func (d *RosterDocument) NextCharacterID() int {
	maxID := 0
	for _, c := range d.Characters {
		maxID = max(maxID, c.ID)
	}
	return maxID + 1
}

// RemoveCharacter deletes the character with the given id and reports whether it existed.
func (d *RosterDocument) RemoveCharacter(id int) bool {
	for i, c := range d.Characters {
		if c.ID == id {
			d.Characters = append(d.Characters[:i], d.Characters[i+1:]...)
			return true
		}
	}
	return false
}

// SortCharacters orders characters by display order, breaking ties by id.
func (d *RosterDocument) SortCharacters() {
	sort.SliceStable(d.Characters, func(i, j int) bool {
		a, b := d.Characters[i], d.Characters[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
}

// Bis returns the wishlist entry with the given id, or nil.
func (c *Character) Bis(id int) *BisItem {
	for _, b := range c.BisList {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// NextBisID returns max(existing wishlist ids)+1.
func (c *Character) NextBisID() int {
	maxID := 0
	for _, b := range c.BisList {
		maxID = max(maxID, b.ID)
	}
	return maxID + 1
}

// RemoveBis deletes a wishlist entry and reports whether it existed.
func (c *Character) RemoveBis(id int) bool {
	for i, b := range c.BisList {
		if b.ID == id {
			c.BisList = append(c.BisList[:i], c.BisList[i+1:]...)
			return true
		}
	}
	return false
}

// TalentBuild returns the build with the given id, or nil.
func (c *Character) TalentBuild(id int) *TalentBuild {
	for _, b := range c.TalentBuilds {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// NextTalentBuildID returns max(existing build ids)+1.
func (c *Character) NextTalentBuildID() int {
	maxID := 0
	for _, b := range c.TalentBuilds {
		maxID = max(maxID, b.ID)
	}
	return maxID + 1
}

// RemoveTalentBuild deletes a build and reports whether it existed.
func (c *Character) RemoveTalentBuild(id int) bool {
	for i, b := range c.TalentBuilds {
		if b.ID == id {
			c.TalentBuilds = append(c.TalentBuilds[:i], c.TalentBuilds[i+1:]...)
			return true
		}
	}
	return false
}

// Configured reports whether the character can be looked up at the provider.
func (c *Character) Configured() bool {
	return c.Realm != "" && c.CharacterName != ""
}
