package reconcile

// Stat keys written by ParseStats.
const (
	StatStrength         = "strength"
	StatAgility          = "agility"
	StatIntellect        = "intellect"
	StatStamina          = "stamina"
	StatCritRating       = "crit_rating"
	StatCritPct          = "crit_rating_pct"
	StatHasteRating      = "haste_rating"
	StatHastePct         = "haste_rating_pct"
	StatMasteryRating    = "mastery_rating"
	StatMasteryPct       = "mastery_rating_pct"
	StatVersatility      = "versatility"
	StatVersatilityPct   = "versatility_pct"
	StatArmor            = "armor"
	versatilityBonusKey  = "versatility_damage_done_bonus"
	effectiveKey         = "effective"
	ratingKey            = "rating"
	valueKey             = "value"
)

var primaryStats = []string{StatStrength, StatAgility, StatIntellect, StatStamina}

// ParseStats flattens a provider statistics response. Every key is always
// present; anything missing or malformed reads as 0. Crit and haste use the
// first of the melee, spell and ranged variants present in the response.
func ParseStats(raw map[string]any) map[string]float64 {
	stats := map[string]float64{}
	if len(raw) == 0 {
		return stats
	}

	for _, name := range primaryStats {
		stats[name] = field(raw[name], effectiveKey)
	}

	crit := firstPresent(raw, "melee_crit", "spell_crit", "ranged_crit")
	stats[StatCritRating] = field(crit, ratingKey)
	stats[StatCritPct] = field(crit, valueKey)

	haste := firstPresent(raw, "melee_haste", "spell_haste", "ranged_haste")
	stats[StatHasteRating] = field(haste, ratingKey)
	stats[StatHastePct] = field(haste, valueKey)

	stats[StatMasteryRating] = field(raw["mastery"], ratingKey)
	stats[StatMasteryPct] = field(raw["mastery"], valueKey)

	stats[StatVersatility] = number(raw[StatVersatility])
	stats[StatVersatilityPct] = number(raw[versatilityBonusKey])

	stats[StatArmor] = field(raw[StatArmor], effectiveKey)
	return stats
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v
		}
	}
	return nil
}

func field(v any, key string) float64 {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	return number(obj[key])
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
