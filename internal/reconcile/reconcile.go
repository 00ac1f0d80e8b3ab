// Package reconcile merges provider snapshots into a character.
//
// Only provider-sourced fields are written. Local annotations such as a slot's
// upgrade track and wishlist state set by the user are left alone, and a
// snapshot without an item list leaves gear untouched.
package reconcile

import (
	"maps"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// slotMap translates provider slot identifiers to gear slot keys. Identifiers
// missing from the table are ignored.
var slotMap = map[string]string{
	"HEAD":      types.SlotHead,
	"NECK":      types.SlotNeck,
	"SHOULDER":  types.SlotShoulder,
	"BACK":      types.SlotBack,
	"CHEST":     types.SlotChest,
	"WRIST":     types.SlotWrist,
	"HANDS":     types.SlotHands,
	"WAIST":     types.SlotWaist,
	"LEGS":      types.SlotLegs,
	"FEET":      types.SlotFeet,
	"FINGER_1":  types.SlotRing1,
	"FINGER_2":  types.SlotRing2,
	"TRINKET_1": types.SlotTrinket1,
	"TRINKET_2": types.SlotTrinket2,
	"MAIN_HAND": types.SlotMainHand,
	"OFF_HAND":  types.SlotOffHand,
}

// SlotFor returns the gear slot for a provider slot identifier.
func SlotFor(providerSlot string) (string, bool) {
	slot, ok := slotMap[providerSlot]
	return slot, ok
}

// Result describes what ReconcileEquipment did.
type Result struct {
	Applied   bool     `json:"applied"`
	Slots     int      `json:"slots"`
	TwoHanded bool     `json:"two_handed"`
	Ignored   []string `json:"ignored,omitempty"`
}

// ReconcileEquipment returns gear updated from snap. The input map is not
// modified. When snap has no item list the result is an unchanged copy.
func ReconcileEquipment(gear map[string]types.GearSlot, snap *EquipmentSnapshot) (map[string]types.GearSlot, Result) {
	out := make(map[string]types.GearSlot, types.SlotCount)
	maps.Copy(out, gear)
	for _, slot := range types.SlotKeys {
		if _, ok := out[slot]; !ok {
			out[slot] = types.DefaultGearSlot()
		}
	}

	var res Result
	if snap == nil || snap.EquippedItems == nil {
		return out, res
	}
	res.Applied = true

	out[types.SlotOffHand] = clearProviderFields(out[types.SlotOffHand])

	var twoHander *EquippedItem
	offHandSeen := false
	for i := range snap.EquippedItems {
		item := &snap.EquippedItems[i]
		slot, ok := SlotFor(item.Slot.Type)
		if !ok {
			res.Ignored = append(res.Ignored, item.Slot.Type)
			continue
		}
		out[slot] = applyItem(out[slot], item)
		res.Slots++

		switch slot {
		case types.SlotMainHand:
			if item.InventoryType.TwoHanded() {
				twoHander = item
			}
		case types.SlotOffHand:
			offHandSeen = true
		}
	}

	// A real off-hand item always wins over the two-handed duplicate.
	if twoHander != nil && !offHandSeen {
		oh := out[types.SlotOffHand]
		oh.ItemLevel = int(twoHander.Level)
		oh.ItemName = types.TwoHandedNamePrefix + twoHander.Name + types.TwoHandedNameSuffix
		oh.ItemID = twoHander.Item.ID
		oh.Quality = quality(twoHander)
		out[types.SlotOffHand] = oh
		res.TwoHanded = true
	}
	return out, res
}

func applyItem(slot types.GearSlot, item *EquippedItem) types.GearSlot {
	slot.ItemLevel = int(item.Level)
	slot.ItemName = item.Name
	slot.ItemID = item.Item.ID
	slot.Quality = quality(item)
	slot.SocketCount = len(item.Sockets)
	slot.IsEnchanted = len(item.Enchantments) > 0
	slot.IconID = item.Media.ID
	return slot
}

func quality(item *EquippedItem) string {
	if item.Quality.Type == "" {
		return types.DefaultQuality
	}
	return item.Quality.Type
}

// clearProviderFields resets everything sync writes, keeping local annotations.
func clearProviderFields(slot types.GearSlot) types.GearSlot {
	empty := types.DefaultGearSlot()
	empty.UpgradeTrack = slot.UpgradeTrack
	if empty.UpgradeTrack == "" {
		empty.UpgradeTrack = types.DefaultUpgradeTrack
	}
	return empty
}

// EquippedItemIDs returns the set of non-zero item ids in gear.
func EquippedItemIDs(gear map[string]types.GearSlot) map[int]struct{} {
	ids := make(map[int]struct{}, len(gear))
	for _, slot := range gear {
		if slot.ItemID != 0 {
			ids[slot.ItemID] = struct{}{}
		}
	}
	return ids
}

// MatchBis marks wishlist entries whose item is equipped as obtained and
// synced. It never clears either flag. It returns the number of entries that
// changed.
func MatchBis(bis []*types.BisItem, gear map[string]types.GearSlot) int {
	equipped := EquippedItemIDs(gear)
	changed := 0
	for _, b := range bis {
		if b == nil || b.ItemID == nil {
			continue
		}
		if _, ok := equipped[*b.ItemID]; !ok {
			continue
		}
		if !b.Obtained || !b.Synced {
			changed++
		}
		b.MarkSynced()
	}
	return changed
}

// ApplyProfile copies class and level onto c.
func ApplyProfile(c *types.Character, p *Profile) {
	if p == nil {
		return
	}
	c.Class = p.CharacterClass.Name
	c.Level = p.Level
}

// ApplyAvatar sets the avatar URL when media carries one and reports whether it did.
func ApplyAvatar(c *types.Character, m *Media) bool {
	url, ok := m.Asset(AssetAvatar)
	if !ok {
		return false
	}
	c.AvatarURL = &url
	return true
}
