package model

import (
	"time"
)

// Entity is the record kind under conflict, used to select resolution policy.
type Entity string

const (
	EntityHabit   Entity = "habit"
	EntityJournal Entity = "journal"
	EntityCheckin Entity = "checkin"
	EntityPlan    Entity = "plan"
)

// ConflictType describes how the divergence was detected.
type ConflictType string

const (
	ConflictTimestamp      ConflictType = "timestamp"
	ConflictVersion        ConflictType = "version"
	ConflictData           ConflictType = "data"
	ConflictConcurrentEdit ConflictType = "concurrent_edit"
)

// Strategy is the closed set of resolution strategies. Adding one is a
// compile-time exercise: the resolver matches the set exhaustively.
type Strategy string

const (
	StrategyClientWins     Strategy = "client_wins"
	StrategyServerWins     Strategy = "server_wins"
	StrategyLastWriteWins  Strategy = "last_write_wins"
	StrategyMergeAutomatic Strategy = "merge_automatic"
	StrategyMergeManual    Strategy = "merge_manual"
	StrategyFieldLevel     Strategy = "field_level_merge"
	StrategySemantic       Strategy = "semantic_merge"
	StrategyUserPreference Strategy = "user_preference"
)

// Record is a structured entity payload as supplied by the sync engine.
type Record map[string]any

// Conflict is the immutable input to a resolution: a client copy and a
// server copy of the same record plus the timestamps they were written at.
// Field, when set, names the single field the rejected write touched.
type Conflict struct {
	ID              string         `json:"id"`
	Entity          Entity         `json:"entity"`
	Type            ConflictType   `json:"conflict_type"`
	ClientData      Record         `json:"client_data"`
	ServerData      Record         `json:"server_data"`
	ClientTimestamp time.Time      `json:"client_timestamp"`
	ServerTimestamp time.Time      `json:"server_timestamp"`
	Field           string         `json:"field,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Resolution is the immutable output of a resolution. AppliedRules is an
// audit trail: every transformation applied to produce ResolvedData appends
// a rule identifier.
type Resolution struct {
	Strategy          Strategy `json:"strategy"`
	ResolvedData      Record   `json:"resolved_data"`
	RequiresUserInput bool     `json:"requires_user_input"`
	Confidence        float64  `json:"confidence"`
	Explanation       string   `json:"explanation"`
	AppliedRules      []string `json:"applied_rules"`
}
