package reconcile

import (
	"encoding/json"
	"strings"
)

// EquipmentSnapshot is the provider's equipment response. A nil EquippedItems
// means the response did not carry the item list and must not be applied.
type EquipmentSnapshot struct {
	EquippedItems []EquippedItem `json:"equipped_items"`
}

// EquippedItem is one item in an equipment snapshot.
type EquippedItem struct {
	Slot          TypeRef           `json:"slot"`
	Name          string            `json:"name"`
	Level         ItemLevel         `json:"level"`
	Item          IDRef             `json:"item"`
	Quality       TypeRef           `json:"quality"`
	Sockets       []json.RawMessage `json:"sockets"`
	Enchantments  []json.RawMessage `json:"enchantments"`
	Media         IDRef             `json:"media"`
	InventoryType InventoryType     `json:"inventory_type"`
}

// TypeRef is the provider's {"type": "..."} wrapper.
type TypeRef struct {
	Type string `json:"type"`
}

// IDRef is the provider's {"id": n} wrapper.
type IDRef struct {
	ID int `json:"id"`
}

// ItemLevel accepts either a bare number or a {"value": n} object.
type ItemLevel int

// UnmarshalJSON implements json.Unmarshaler. Unrecognized shapes decode as 0.
func (l *ItemLevel) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*l = ItemLevel(n)
		return nil
	}
	var obj struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*l = ItemLevel(obj.Value)
		return nil
	}
	*l = 0
	return nil
}

// InventoryType accepts either a bare string or a {"type": "..."} object.
type InventoryType string

// UnmarshalJSON implements json.Unmarshaler. Unrecognized shapes decode as "".
func (t *InventoryType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = InventoryType(s)
		return nil
	}
	var ref TypeRef
	if err := json.Unmarshal(data, &ref); err == nil {
		*t = InventoryType(ref.Type)
		return nil
	}
	*t = ""
	return nil
}

var twoHandedMarkers = []string{"TWOHWEAPON", "TWO_HAND", "TWOHAND", "RANGED"}

// TwoHanded reports whether the inventory type occupies both weapon slots.
func (t InventoryType) TwoHanded() bool {
	for _, marker := range twoHandedMarkers {
		if strings.Contains(string(t), marker) {
			return true
		}
	}
	return false
}

// Profile is the provider's character summary.
type Profile struct {
	CharacterClass TypeName `json:"character_class"`
	Level          int      `json:"level"`
}

// TypeName is the provider's {"name": "..."} wrapper.
type TypeName struct {
	Name string `json:"name"`
}

// Media is a provider media response: character renders or item icons.
type Media struct {
	Assets []Asset `json:"assets"`
}

// Asset is one keyed media URL.
type Asset struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Asset media keys.
const (
	AssetAvatar = "avatar"
	AssetIcon   = "icon"
)

// Asset returns the URL of the first asset with key.
func (m *Media) Asset(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, a := range m.Assets {
		if a.Key == key && a.Value != "" {
			return a.Value, true
		}
	}
	return "", false
}
