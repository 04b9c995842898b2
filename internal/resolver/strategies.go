package resolver

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

func (r *Resolver) clientWins(c model.Conflict) model.Resolution {
	return model.Resolution{
		Strategy:     model.StrategyClientWins,
		ResolvedData: cloneRecord(c.ClientData),
		Confidence:   1.0,
		Explanation:  "Kept the local copy as-is.",
		AppliedRules: []string{"client-wins"},
	}
}

func (r *Resolver) serverWins(c model.Conflict) model.Resolution {
	return model.Resolution{
		Strategy:     model.StrategyServerWins,
		ResolvedData: cloneRecord(c.ServerData),
		Confidence:   1.0,
		Explanation:  "Kept the server copy as-is.",
		AppliedRules: []string{"server-wins"},
	}
}

// lastWriteWins picks the strictly later write. Equal timestamps go to the
// server, so two clients resolving the same tie converge.
func (r *Resolver) lastWriteWins(c model.Conflict) model.Resolution {
	data, side := lastWritePick(c)
	return model.Resolution{
		Strategy:     model.StrategyLastWriteWins,
		ResolvedData: data,
		Confidence:   0.9,
		Explanation:  fmt.Sprintf("Kept the %s copy, which was written later.", side),
		AppliedRules: []string{"last-write-wins:" + side},
	}
}

func lastWritePick(c model.Conflict) (model.Record, string) {
	if c.ClientTimestamp.After(c.ServerTimestamp) {
		return cloneRecord(c.ClientData), "client"
	}
	return cloneRecord(c.ServerData), "server"
}

// mergeAutomatic starts from the server copy and folds client fields in.
// Arrays union, objects shallow-merge client-over-server, counter fields
// take the max. Every field that cannot be reconciled stays server-side and
// multiplies the running confidence by 0.7 from a base of 0.8.
func (r *Resolver) mergeAutomatic(c model.Conflict) model.Resolution {
	merged := cloneRecord(c.ServerData)
	if merged == nil {
		merged = model.Record{}
	}
	confidence := 0.8
	var rules []string
	unresolved := 0

	for _, k := range sortedKeys(c.ClientData) {
		cv := c.ClientData[k]
		sv, exists := merged[k]
		if !exists {
			merged[k] = cloneValue(cv)
			rules = append(rules, "auto:adopt:"+k)
			continue
		}
		if reflect.DeepEqual(cv, sv) {
			continue
		}

		cs, cIsSlice := asSlice(cv)
		ss, sIsSlice := asSlice(sv)
		cm, cIsMap := asMap(cv)
		sm, sIsMap := asMap(sv)
		cn, cIsNum := asFloat(cv)
		sn, sIsNum := asFloat(sv)

		switch {
		case cIsSlice && sIsSlice:
			merged[k] = unionSlices(ss, cs)
			rules = append(rules, "auto:union:"+k)
		case cIsMap && sIsMap:
			merged[k] = shallowMerge(sm, cm)
			rules = append(rules, "auto:merge:"+k)
		case cIsNum && sIsNum && isCountField(k):
			merged[k] = maxFloat(cn, sn)
			rules = append(rules, "auto:max:"+k)
		default:
			confidence *= 0.7
			unresolved++
			rules = append(rules, "auto:unresolved:"+k)
		}
	}

	explanation := "Merged client changes into the server copy."
	if unresolved > 0 {
		explanation = fmt.Sprintf("Merged client changes into the server copy; %d field(s) kept the server value.", unresolved)
	}
	return model.Resolution{
		Strategy:          model.StrategyMergeAutomatic,
		ResolvedData:      merged,
		RequiresUserInput: confidence < r.autoMergeThreshold,
		Confidence:        confidence,
		Explanation:       explanation,
		AppliedRules:      rules,
	}
}

// fieldLevelMerge applies explicit per-field rules: tags union, streak max,
// completion OR, and a timestamp-based pick for everything else that
// differs.
func (r *Resolver) fieldLevelMerge(c model.Conflict) model.Resolution {
	merged := cloneRecord(c.ServerData)
	if merged == nil {
		merged = model.Record{}
	}
	var rules []string

	for _, k := range sortedKeys(c.ClientData) {
		cv := c.ClientData[k]
		sv, exists := merged[k]
		if !exists {
			merged[k] = cloneValue(cv)
			rules = append(rules, "field:adopt:"+k)
			continue
		}
		if reflect.DeepEqual(cv, sv) {
			continue
		}

		switch k {
		case "tags":
			cs, cok := asSlice(cv)
			ss, sok := asSlice(sv)
			if cok && sok {
				merged[k] = unionSlices(ss, cs)
				rules = append(rules, "field:union:tags")
				continue
			}
		case "streakCount":
			cn, cok := asFloat(cv)
			sn, sok := asFloat(sv)
			if cok && sok {
				merged[k] = maxFloat(cn, sn)
				rules = append(rules, "field:max:streakCount")
				continue
			}
		case "completedToday":
			cb, cok := asBool(cv)
			sb, sok := asBool(sv)
			if cok && sok {
				merged[k] = cb || sb
				rules = append(rules, "field:or:completedToday")
				continue
			}
		}

		if c.ClientTimestamp.After(c.ServerTimestamp) {
			merged[k] = cloneValue(cv)
			rules = append(rules, "field:timestamp:client:"+k)
		} else {
			rules = append(rules, "field:timestamp:server:"+k)
		}
	}

	return model.Resolution{
		Strategy:     model.StrategyFieldLevel,
		ResolvedData: merged,
		Confidence:   0.85,
		Explanation:  "Merged per field: tags unioned, streaks kept at their max, completion preserved.",
		AppliedRules: rules,
	}
}

// semanticMerge applies entity-domain rules: habit completion never
// regresses, check-in personal fields belong to the user. Entities without
// semantic rules fall back to the last-write pick.
func (r *Resolver) semanticMerge(c model.Conflict) model.Resolution {
	switch c.Entity {
	case model.EntityHabit:
		return r.semanticHabit(c)
	case model.EntityCheckin:
		return r.semanticCheckin(c)
	default:
		data, side := lastWritePick(c)
		return model.Resolution{
			Strategy:     model.StrategySemantic,
			ResolvedData: data,
			Confidence:   0.9,
			Explanation:  fmt.Sprintf("No semantic rules for %q; kept the %s copy, which was written later.", c.Entity, side),
			AppliedRules: []string{"semantic:fallback:last-write-wins:" + side},
		}
	}
}

func (r *Resolver) semanticHabit(c model.Conflict) model.Resolution {
	merged := cloneRecord(c.ServerData)
	if merged == nil {
		merged = model.Record{}
	}
	rules := adoptClientOnly(merged, c.ClientData, "semantic:adopt:")

	if cb, cok := asBool(c.ClientData["completedToday"]); cok {
		sb, _ := asBool(merged["completedToday"])
		if or := cb || sb; !reflect.DeepEqual(merged["completedToday"], or) {
			merged["completedToday"] = or
			rules = append(rules, "semantic:habit:completed-or")
		}
	}
	if cn, cok := asFloat(c.ClientData["streakCount"]); cok {
		sn, sok := asFloat(merged["streakCount"])
		if !sok || cn > sn {
			merged["streakCount"] = cn
			rules = append(rules, "semantic:habit:streak-max")
		}
	}
	if cv, cok := c.ClientData["lastCompletedOn"]; cok {
		if later, changed := laterDateValue(merged["lastCompletedOn"], cv); changed {
			merged["lastCompletedOn"] = later
			rules = append(rules, "semantic:habit:last-completed-later")
		}
	}

	return model.Resolution{
		Strategy:     model.StrategySemantic,
		ResolvedData: merged,
		Confidence:   0.9,
		Explanation:  "Merged habit copies: completion status never regresses, streaks keep their max.",
		AppliedRules: rules,
	}
}

func (r *Resolver) semanticCheckin(c model.Conflict) model.Resolution {
	merged := cloneRecord(c.ServerData)
	if merged == nil {
		merged = model.Record{}
	}
	rules := adoptClientOnly(merged, c.ClientData, "semantic:adopt:")

	// Mood and reflection are the user's private state; a stale server copy
	// must not silently overwrite them.
	for _, k := range []string{"mood", "reflection"} {
		cv, cok := c.ClientData[k]
		if !cok || reflect.DeepEqual(merged[k], cv) {
			continue
		}
		if r.preserveUserData || c.ClientTimestamp.After(c.ServerTimestamp) {
			merged[k] = cloneValue(cv)
			rules = append(rules, "semantic:checkin:client-"+k)
		} else {
			rules = append(rules, "semantic:checkin:server-"+k)
		}
	}

	cs, cok := asSlice(c.ClientData["goals"])
	ss, sok := asSlice(merged["goals"])
	if cok && sok && !reflect.DeepEqual(c.ClientData["goals"], merged["goals"]) {
		merged["goals"] = unionSlices(ss, cs)
		rules = append(rules, "semantic:checkin:goals-union")
	}

	return model.Resolution{
		Strategy:     model.StrategySemantic,
		ResolvedData: merged,
		Confidence:   0.9,
		Explanation:  "Merged check-in copies: personal fields kept from the local copy, goals unioned.",
		AppliedRules: rules,
	}
}

// mergeManual returns the server copy as a provisional placeholder. The
// result must not be persisted without explicit user confirmation.
func (r *Resolver) mergeManual(c model.Conflict) model.Resolution {
	return model.Resolution{
		Strategy:          model.StrategyMergeManual,
		ResolvedData:      cloneRecord(c.ServerData),
		RequiresUserInput: true,
		Confidence:        0,
		Explanation:       "Too complex to auto-merge; review and confirm manually.",
		AppliedRules:      []string{"manual:server-placeholder"},
	}
}

// userPreference is an extension point for interactive choice; until the UI
// supports it, it delegates to the last-write pick.
func (r *Resolver) userPreference(c model.Conflict) model.Resolution {
	data, side := lastWritePick(c)
	return model.Resolution{
		Strategy:     model.StrategyUserPreference,
		ResolvedData: data,
		Confidence:   0.9,
		Explanation:  fmt.Sprintf("Kept the %s copy pending an interactive choice.", side),
		AppliedRules: []string{"user-preference:delegate:last-write-wins:" + side},
	}
}

// adoptClientOnly copies client fields absent from merged, appending one
// rule per adopted field.
func adoptClientOnly(merged model.Record, client model.Record, rulePrefix string) []string {
	var rules []string
	for _, k := range sortedKeys(client) {
		if _, exists := merged[k]; !exists {
			merged[k] = cloneValue(client[k])
			rules = append(rules, rulePrefix+k)
		}
	}
	return rules
}

func cloneRecord(r model.Record) model.Record {
	if r == nil {
		return nil
	}
	out := make(model.Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(r model.Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// unionSlices keeps server order and appends client elements not already
// present.
func unionSlices(server, client []any) []any {
	out := make([]any, 0, len(server)+len(client))
	for _, v := range server {
		out = append(out, cloneValue(v))
	}
	for _, v := range client {
		if !containsValue(out, v) {
			out = append(out, cloneValue(v))
		}
	}
	return out
}

func containsValue(s []any, v any) bool {
	for _, e := range s {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func shallowMerge(server, client map[string]any) map[string]any {
	out := make(map[string]any, len(server)+len(client))
	for k, v := range server {
		out[k] = cloneValue(v)
	}
	for k, v := range client {
		out[k] = cloneValue(v)
	}
	return out
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func isCountField(k string) bool {
	return strings.Contains(strings.ToLower(k), "count")
}

// laterDateValue compares two date-ish values (time.Time or ISO 8601 /
// RFC 3339 strings, which order lexicographically) and reports whether the
// candidate is strictly later than the current value.
func laterDateValue(current, candidate any) (any, bool) {
	if nt, nok := asTime(candidate); nok {
		ct, cok := asTime(current)
		if !cok || nt.After(ct) {
			return candidate, true
		}
		return current, false
	}
	cs, csok := current.(string)
	ns, nsok := candidate.(string)
	if nsok && (!csok || ns > cs) {
		return candidate, true
	}
	return current, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
