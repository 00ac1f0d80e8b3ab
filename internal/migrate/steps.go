package migrate

import (
	"fmt"
	"slices"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

func (m *migrator) document(raw map[string]any) error {
	m.rename(raw, "blizzard_config", "api_config")
	m.meta(m.ensureObject(raw, "meta"))
	m.apiConfig(m.ensureObject(raw, "api_config"))

	v, present := raw["characters"]
	if !present || v == nil {
		raw["characters"] = []any{}
		m.report.Backfilled++
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return &MigrationError{Path: "characters", Message: fmt.Sprintf("expected an array, got %T", v)}
	}

	seen := make(map[int]bool, len(list))
	for i, entry := range list {
		path := fmt.Sprintf("characters[%d]", i)
		c, ok := object(entry)
		if !ok {
			return &MigrationError{Path: path, Message: "expected an object"}
		}
		id, ok := intValue(c["id"])
		if !ok || !wholeNumber(c["id"]) {
			return &MigrationError{Path: path + ".id", Message: "missing numeric id"}
		}
		if seen[id] {
			return &MigrationError{Path: path + ".id", Message: fmt.Sprintf("duplicate character id %d", id)}
		}
		seen[id] = true
		c["id"] = id
		m.character(c, id)
	}
	m.report.Characters = len(list)
	return nil
}

func (m *migrator) meta(meta map[string]any) {
	week := m.ensureInt(meta, "current_week", types.MinWeek)
	if clamped := min(max(week, types.MinWeek), types.MaxWeek); clamped != week {
		meta["current_week"] = clamped
		m.report.Repaired++
		week = clamped
	}
	m.currentWeek = week

	if v, ok := meta["last_updated"]; ok && v != nil {
		m.ensureTimestamp(meta, "last_updated")
	}
	m.setInt(meta, "schema_version", types.CurrentSchemaVersion)
}

func (m *migrator) apiConfig(cfg map[string]any) {
	if v, ok := cfg["use_shared_credentials"]; ok {
		delete(cfg, "use_shared_credentials")
		if _, exists := cfg["credential_mode"]; !exists {
			mode := types.CredentialsCustom
			if v == nil || truthy(v) {
				mode = types.CredentialsShared
			}
			cfg["credential_mode"] = string(mode)
		}
		m.report.RenamedKeys++
	}
	switch mode := m.ensureString(cfg, "credential_mode", string(types.CredentialsShared)); types.CredentialMode(mode) {
	case types.CredentialsShared, types.CredentialsCustom:
	default:
		cfg["credential_mode"] = string(types.CredentialsShared)
		m.report.Repaired++
	}

	m.rename(cfg, "access_token", "cached_token")
	m.rename(cfg, "token_expires", "token_expiry")
	m.ensureString(cfg, "client_id", "")
	m.ensureString(cfg, "client_secret", "")
	m.ensureString(cfg, "region", types.DefaultRegion)
	m.ensureString(cfg, "cached_token", "")
	m.ensureTimestamp(cfg, "token_expiry")
}

func (m *migrator) character(c map[string]any, id int) {
	m.rename(c, "last_gear_sync", "last_sync_timestamp")

	m.crests(c)
	m.professions(c)
	m.gear(c)
	m.tasks(c)
	m.backfillFields(c, id)
	m.weeklyProgress(c)
	m.bisList(c)
	m.talentBuilds(c)
}

// crests ensures the four tracks exist and rebuilds their views from the
// normalized history.
func (m *migrator) crests(c map[string]any) {
	crests := m.ensureObject(c, "crests")
	for _, key := range sortedKeys(crests) {
		if !slices.Contains(types.CrestTypes, key) {
			m.drop(c, crests, "crests", key)
		}
	}
	for _, crest := range types.CrestTypes {
		track := m.ensureObject(crests, crest)
		m.rename(track, "collected_this_week", "current_week_amount")
		m.rename(track, "total_collected", "total")

		history := m.weekHistory(track)
		total := 0
		for _, amount := range history {
			total += amount
		}
		m.setInt(track, "total", total)
		m.setInt(track, "current_week_amount", history[types.WeekKey(m.currentWeek)])
	}
}

// weekHistory normalizes weekly_history keys and values, returning the result.
func (m *migrator) weekHistory(track map[string]any) map[string]int {
	raw := m.ensureObject(track, "weekly_history")
	out := make(map[string]any, len(raw))
	history := make(map[string]int, len(raw))
	for _, key := range sortedKeys(raw) {
		canon, _ := canonicalWeekKey(key)
		if canon != key {
			m.report.NormalizedKeys++
		}
		if _, taken := out[canon]; taken {
			continue
		}
		amount, ok := intValue(raw[key])
		if !ok || amount < 0 || !wholeNumber(raw[key]) {
			m.report.Repaired++
			amount = max(0, amount)
		}
		out[canon] = amount
		history[canon] = amount
	}
	track["weekly_history"] = out
	return history
}

// setInt stores n under key unless an equal integer is already there.
func (m *migrator) setInt(obj map[string]any, key string, n int) {
	v, present := obj[key]
	if present {
		if cur, ok := intValue(v); ok && wholeNumber(v) && cur == n {
			return
		}
		m.report.Repaired++
	} else {
		m.report.Backfilled++
	}
	obj[key] = n
}

func (m *migrator) professions(c map[string]any) {
	list := m.ensureList(c, "professions")
	var known []string
	for i, p := range list {
		s, ok := p.(string)
		if !ok {
			// Slots are positional; a bad entry becomes an empty slot.
			list[i] = ""
			m.report.Repaired++
			continue
		}
		if s != "" && !slices.Contains(known, s) {
			known = append(known, s)
		}
	}
	c["professions"] = list

	progress := m.ensureObject(c, "profession_progress")
	for _, name := range known {
		state, ok := object(progress[name])
		if !ok {
			state = map[string]any{}
			progress[name] = state
		}
		m.professionState(state)
	}
	for name, v := range progress {
		if slices.Contains(known, name) {
			continue
		}
		state, ok := object(v)
		if !ok {
			delete(progress, name)
			m.report.Repaired++
			continue
		}
		m.professionState(state)
	}
}

func (m *migrator) professionState(state map[string]any) {
	m.rename(state, "weekly_quest", "weekly_quest_done")
	m.rename(state, "patron_orders", "patron_orders_done")
	m.rename(state, "treatise", "treatise_done")
	m.ensureBool(state, "weekly_quest_done", false)
	m.ensureBool(state, "patron_orders_done", false)
	m.ensureBool(state, "treatise_done", false)
	m.ensureNonNegative(state, "knowledge_points")
	conc := m.ensureInt(state, "concentration", types.MaxConcentration)
	if clamped := min(max(conc, 0), types.MaxConcentration); clamped != conc {
		state["concentration"] = clamped
		m.report.Repaired++
	}
}

// gear backfills every slot field and guarantees exactly the 16 canonical slots.
func (m *migrator) gear(c map[string]any) {
	gear := m.ensureObject(c, "gear")
	for _, key := range sortedKeys(gear) {
		if !types.IsSlot(key) {
			m.drop(c, gear, "gear", key)
		}
	}
	for _, slot := range types.SlotKeys {
		g := m.ensureObject(gear, slot)
		m.rename(g, "ilvl", "item_level")
		m.rename(g, "track", "upgrade_track")
		m.rename(g, "sockets", "socket_count")
		m.rename(g, "enchanted", "is_enchanted")

		m.ensureNonNegative(g, "item_level")
		m.ensureString(g, "upgrade_track", types.DefaultUpgradeTrack)
		m.ensureString(g, "item_name", "")
		m.ensureNonNegative(g, "item_id")
		m.ensureString(g, "quality", types.DefaultQuality)
		m.ensureNonNegative(g, "socket_count")
		m.ensureBool(g, "is_enchanted", false)
		m.ensureNonNegative(g, "icon_id")
	}
}

// tasks normalizes week keys of weekly_tasks and coerces completion flags.
// Colliding weeks are merged; a task done under any spelling stays done.
func (m *migrator) tasks(c map[string]any) {
	weekly := m.ensureObject(c, "weekly_tasks")
	out := make(map[string]any, len(weekly))
	for _, key := range sortedKeys(weekly) {
		canon, _ := canonicalWeekKey(key)
		if canon != key {
			m.report.NormalizedKeys++
		}
		src, ok := object(weekly[key])
		if !ok {
			m.report.Repaired++
			src = map[string]any{}
		}
		dst, ok := object(out[canon])
		if !ok {
			dst = make(map[string]any, len(src))
			out[canon] = dst
		}
		for id, v := range src {
			if _, isBool := v.(bool); !isBool {
				m.report.Repaired++
			}
			dst[id] = truthy(v) || truthy(dst[id])
		}
	}
	c["weekly_tasks"] = out

	daily := m.ensureObject(c, "daily_tasks")
	for id, v := range daily {
		if _, isBool := v.(bool); !isBool {
			daily[id] = truthy(v)
			m.report.Repaired++
		}
	}
}

func (m *migrator) backfillFields(c map[string]any, id int) {
	m.ensureString(c, "name", fmt.Sprintf("%s %d", types.DefaultCharacterName, id))
	m.ensureString(c, "realm", "")
	m.ensureString(c, "character_name", "")
	m.ensureString(c, "class", "")

	if lvl, ok := object(c["level"]); ok {
		c["level"] = lvl["value"]
		m.report.Repaired++
	}
	m.ensureNonNegative(c, "level")
	m.ensureInt(c, "order", id)

	switch v, present := c["avg_ilvl"]; {
	case !present:
		c["avg_ilvl"] = 0.0
		m.report.Backfilled++
	case !isJSONNumber(v):
		f, _ := floatValue(v)
		c["avg_ilvl"] = f
		m.report.Repaired++
	}

	switch v, present := c["avatar_url"]; {
	case !present:
		c["avatar_url"] = nil
		m.report.Backfilled++
	case v == nil:
	default:
		if s, ok := v.(string); !ok || s == "" {
			c["avatar_url"] = nil
			m.report.Repaired++
		}
	}

	stats := m.ensureObject(c, "stats")
	for name, v := range stats {
		f, ok := floatValue(v)
		switch {
		case !ok:
			delete(stats, name)
			m.report.Repaired++
		case !isJSONNumber(v):
			stats[name] = f
			m.report.Repaired++
		}
	}

	m.ensureTimestamp(c, "last_sync_timestamp")
}

func isJSONNumber(v any) bool {
	switch v.(type) {
	case float64, int, int64:
		return true
	}
	return false
}

func (m *migrator) weeklyProgress(c map[string]any) {
	raw := m.ensureObject(c, "weekly_progress")
	out := make(map[string]any, len(raw))
	for _, key := range sortedKeys(raw) {
		canon, _ := canonicalWeekKey(key)
		if canon != key {
			m.report.NormalizedKeys++
		}
		if _, taken := out[canon]; taken {
			continue
		}
		wp, ok := object(raw[key])
		if !ok {
			wp = map[string]any{}
			m.report.Repaired++
		}
		m.weekProgress(wp)
		out[canon] = wp
	}
	c["weekly_progress"] = out
}

func (m *migrator) weekProgress(wp map[string]any) {
	m.rename(wp, "m_plus_dungeons", "mythic_plus_runs")
	m.rename(wp, "highest_delve", "highest_delve_tier")
	m.rename(wp, "world_vault", "vault_choices")

	bosses := m.ensureObject(wp, "raid_bosses")
	for _, diff := range []string{"lfr", "normal", "heroic", "mythic"} {
		m.ensureNonNegative(bosses, diff)
	}
	m.ensureNonNegative(wp, "highest_delve_tier")

	runs := m.ensureList(wp, "mythic_plus_runs")
	kept := make([]any, 0, len(runs))
	for _, r := range runs {
		if run, ok := m.mythicPlusRun(r); ok {
			kept = append(kept, run)
		}
	}
	if len(kept) > types.MaxMythicPlusRuns {
		kept = kept[:types.MaxMythicPlusRuns]
	}
	if len(kept) != len(runs) {
		m.report.Repaired++
	}
	wp["mythic_plus_runs"] = kept

	choices := m.ensureList(wp, "vault_choices")
	vault := make([]any, types.VaultChoiceCount)
	for i := range vault {
		if i < len(choices) {
			vault[i] = m.vaultChoice(choices[i])
		}
	}
	if len(choices) != types.VaultChoiceCount {
		m.report.Repaired++
	}
	wp["vault_choices"] = vault
}

func (m *migrator) mythicPlusRun(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		m.rename(t, "name", "dungeon")
		m.rename(t, "level", "key_level")
		m.rename(t, "key", "key_level")
		m.ensureString(t, "dungeon", "")
		m.ensureNonNegative(t, "key_level")
		m.ensureBool(t, "timed", false)
		return t, true
	case string:
		m.report.Repaired++
		return map[string]any{"dungeon": t, "key_level": 0, "timed": false}, true
	}
	if n, ok := intValue(v); ok {
		m.report.Repaired++
		return map[string]any{"dungeon": "", "key_level": max(0, n), "timed": false}, true
	}
	return nil, false
}

func (m *migrator) vaultChoice(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		m.rename(t, "ilvl", "item_level")
		m.rename(t, "name", "item_name")
		m.rename(t, "type", "category")
		m.ensureString(t, "category", "")
		m.ensureString(t, "item_name", "")
		m.ensureNonNegative(t, "item_level")
		return t
	case string:
		m.report.Repaired++
		return map[string]any{"category": "", "item_name": t, "item_level": 0}
	}
	if n, ok := intValue(v); ok {
		m.report.Repaired++
		return map[string]any{"category": "", "item_name": "", "item_level": max(0, n)}
	}
	m.report.Repaired++
	return nil
}

func (m *migrator) bisList(c map[string]any) {
	entries := m.entries(c, "bis_list")
	for _, b := range entries {
		m.rename(b, "target_ilvl", "target_item_level")
		m.ensureString(b, "slot", "")
		m.ensureString(b, "item_name", "")
		m.ensureOptionalID(b, "item_id")
		m.ensureOptionalID(b, "target_item_level")
		obtained := m.ensureBool(b, "obtained", false)
		if synced := m.ensureBool(b, "synced", false); synced && !obtained {
			b["synced"] = false
			m.report.Repaired++
		}
	}
}

func (m *migrator) talentBuilds(c map[string]any) {
	for _, b := range m.entries(c, "talent_builds") {
		m.ensureString(b, "category", "")
		m.ensureString(b, "name", "")
		m.ensureString(b, "description", "")
		m.ensureString(b, "talent_string", "")
	}
}

// entries returns the objects of the list at key, dropping anything else and
// giving entries without a unique numeric id the next free one.
func (m *migrator) entries(c map[string]any, key string) []map[string]any {
	list := m.ensureList(c, key)
	objs := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if obj, ok := object(v); ok {
			objs = append(objs, obj)
		}
	}

	maxID := 0
	for _, obj := range objs {
		if id, ok := intValue(obj["id"]); ok && wholeNumber(obj["id"]) {
			maxID = max(maxID, id)
		}
	}
	seen := make(map[int]bool, len(objs))
	kept := make([]any, len(objs))
	for i, obj := range objs {
		id, ok := intValue(obj["id"])
		if !ok || !wholeNumber(obj["id"]) || id <= 0 || seen[id] {
			maxID++
			id = maxID
			obj["id"] = id
			m.report.Repaired++
		}
		seen[id] = true
		kept[i] = obj
	}
	if len(kept) != len(list) {
		m.report.Repaired++
	}
	c[key] = kept
	return objs
}

// ensureOptionalID keeps a positive integer or null; zero and garbage become null.
func (m *migrator) ensureOptionalID(obj map[string]any, key string) {
	v, present := obj[key]
	if !present {
		obj[key] = nil
		m.report.Backfilled++
		return
	}
	if v == nil {
		return
	}
	n, ok := intValue(v)
	if ok && n > 0 {
		if !wholeNumber(v) {
			obj[key] = n
			m.report.Repaired++
		}
		return
	}
	obj[key] = nil
	m.report.Repaired++
}
