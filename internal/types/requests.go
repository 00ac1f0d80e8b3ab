//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request struct against its validate tags.
func Validate(req any) error {
	return validate.Struct(req)
}

// NullableInt distinguishes an absent JSON field (Set=false) from an explicit null (Set=true, Value=nil).
// Zero is treated as null, matching how the wishlist stores "no item id".
type NullableInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableInt) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v != 0 {
		n.Value = &v
	}
	return nil
}

// CreateCharacterRequest adds a character to the roster.
type CreateCharacterRequest struct {
	Name          string   `json:"name"`
	Realm         string   `json:"realm"`
	CharacterName string   `json:"character_name"`
	Professions   []string `json:"professions"`
}

// WeekRequest changes meta.current_week.
type WeekRequest struct {
	CurrentWeek *int `json:"current_week" validate:"required,min=0,max=12"`
}

// GearUpdate edits a gear slot by hand.
type GearUpdate struct {
	Slot         string  `json:"slot" validate:"required"`
	ItemLevel    *int    `json:"item_level"`
	UpgradeTrack *string `json:"upgrade_track"`
	ItemName     *string `json:"item_name"`
}

// CrestUpdate records a crest amount. Week defaults to the current week.
type CrestUpdate struct {
	CrestType string `json:"crest_type" validate:"required"`
	Amount    *int   `json:"amount" validate:"required"`
	Week      *int   `json:"week" validate:"omitempty,min=0,max=12"`
}

// ProfessionUpdate edits one profession's weekly state. Numeric fields are clamped, not rejected.
type ProfessionUpdate struct {
	Profession       string `json:"profession" validate:"required"`
	WeeklyQuestDone  *bool  `json:"weekly_quest_done"`
	PatronOrdersDone *bool  `json:"patron_orders_done"`
	TreatiseDone     *bool  `json:"treatise_done"`
	KnowledgePoints  *int   `json:"knowledge_points"`
	Concentration    *int   `json:"concentration"`
}

// SetProfessionsRequest replaces a character's profession list.
type SetProfessionsRequest struct {
	Professions []string `json:"professions"`
}

// Task kinds
const (
	TaskWeekly = "weekly"
	TaskDaily  = "daily"
)

// TaskUpdate marks a weekly or daily task done or undone.
type TaskUpdate struct {
	TaskType string `json:"task_type" validate:"required,oneof=weekly daily"`
	TaskID   string `json:"task_id" validate:"required"`
	Done     bool   `json:"done"`
}

// CharacterConfigUpdate edits identity fields.
type CharacterConfigUpdate struct {
	Name          *string `json:"name"`
	Realm         *string `json:"realm"`
	CharacterName *string `json:"character_name"`
}

// ReorderRequest lists character ids in their new display order.
type ReorderRequest struct {
	Order []int `json:"order"`
}

// CredentialsUpdate edits provider credentials. Any update invalidates the cached token.
type CredentialsUpdate struct {
	CredentialMode *CredentialMode `json:"credential_mode" validate:"omitempty,oneof=shared custom"`
	ClientID       *string         `json:"client_id"`
	ClientSecret   *string         `json:"client_secret"`
	Region         *string         `json:"region" validate:"omitempty,oneof=us eu kr tw"`
}

// RaidBossesUpdate edits boss counts per difficulty.
type RaidBossesUpdate struct {
	LFR    *int `json:"lfr"`
	Normal *int `json:"normal"`
	Heroic *int `json:"heroic"`
	Mythic *int `json:"mythic"`
}

// WeeklyProgressUpdate edits the current week's progress. Nil slices are absent.
type WeeklyProgressUpdate struct {
	RaidBosses       *RaidBossesUpdate `json:"raid_bosses"`
	MythicPlusRuns   []MythicPlusRun   `json:"mythic_plus_runs"`
	HighestDelveTier *int              `json:"highest_delve_tier"`
	VaultChoices     []*VaultChoice    `json:"vault_choices"`
}

// CreateBisRequest adds a wishlist entry.
type CreateBisRequest struct {
	Slot            string      `json:"slot" validate:"required"`
	ItemName        string      `json:"item_name" validate:"required"`
	ItemID          NullableInt `json:"item_id"`
	TargetItemLevel NullableInt `json:"target_item_level"`
}

// BisUpdate edits a wishlist entry.
type BisUpdate struct {
	Obtained        *bool       `json:"obtained"`
	ItemName        *string     `json:"item_name"`
	ItemID          NullableInt `json:"item_id"`
	TargetItemLevel NullableInt `json:"target_item_level"`
}

// CreateTalentBuildRequest adds a talent build.
type CreateTalentBuildRequest struct {
	Category     string `json:"category" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	TalentString string `json:"talent_string"`
}

// TalentBuildUpdate edits a talent build.
type TalentBuildUpdate struct {
	Category     *string `json:"category"`
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	TalentString *string `json:"talent_string"`
}
