package resolver

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/metric"
	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

// Resolver picks a resolution strategy per conflict and applies it. It holds
// no per-conflict state: every call is independent and reentrant.
type Resolver struct {
	logger *zap.Logger

	mu    sync.RWMutex
	prefs map[model.Entity]model.Strategy

	defaultStrategy    model.Strategy
	autoMergeThreshold float64
	preserveUserData   bool
	respectEntityRules bool
}

// New creates a resolver. A nil cfg uses the documented defaults.
func New(cfg *config.ResolverConfig, logger *zap.Logger) *Resolver {
	if cfg == nil {
		cfg = config.DefaultResolverConfig()
	}
	cfg.Normalize()

	prefs := make(map[model.Entity]model.Strategy, len(cfg.UserPreferences))
	for entity, strategy := range cfg.UserPreferences {
		prefs[model.Entity(entity)] = model.Strategy(strategy)
	}

	return &Resolver{
		logger:             logger,
		prefs:              prefs,
		defaultStrategy:    model.Strategy(cfg.DefaultStrategy),
		autoMergeThreshold: cfg.AutoMergeThreshold,
		preserveUserData:   cfg.PreserveUserData,
		respectEntityRules: cfg.RespectEntityRules,
	}
}

// Resolve selects a strategy for the conflict and applies it. The conflict
// is never mutated. The only error path is a strategy missing from the
// closed strategy set, which is a programmer error.
func (r *Resolver) Resolve(c model.Conflict) (model.Resolution, error) {
	strategy := r.selectStrategy(c)
	res, err := r.apply(strategy, c)
	if err != nil {
		return model.Resolution{}, err
	}

	metric.ConflictResolutions.WithLabelValues(string(res.Strategy)).Inc()
	if res.RequiresUserInput {
		metric.ManualReviews.Inc()
	}
	r.logger.Debug("conflict resolved",
		zap.String("conflict_id", c.ID),
		zap.String("entity", string(c.Entity)),
		zap.String("strategy", string(res.Strategy)),
		zap.Float64("confidence", res.Confidence))
	return res, nil
}

// ResolveBatch resolves each conflict independently. A failing resolution is
// replaced with a deterministic server-wins fallback flagged for review, so
// one bad conflict never aborts the batch. The output is order-preserving
// and always the same length as the input.
func (r *Resolver) ResolveBatch(conflicts []model.Conflict) []model.Resolution {
	out := make([]model.Resolution, len(conflicts))
	for i, c := range conflicts {
		res, err := r.Resolve(c)
		if err != nil {
			r.logger.Error("conflict resolution failed",
				zap.String("conflict_id", c.ID),
				zap.Error(err))
			res = model.Resolution{
				Strategy:          model.StrategyServerWins,
				ResolvedData:      cloneRecord(c.ServerData),
				RequiresUserInput: true,
				Confidence:        0,
				Explanation:       fmt.Sprintf("Resolution failed: %v", err),
				AppliedRules:      []string{"fallback:server-wins"},
			}
			metric.ConflictResolutions.WithLabelValues(string(model.StrategyServerWins)).Inc()
			metric.ManualReviews.Inc()
		}
		out[i] = res
	}
	return out
}

// SetUserPreference pins a strategy for an entity; it takes precedence over
// every entity rule.
func (r *Resolver) SetUserPreference(entity model.Entity, strategy model.Strategy) {
	r.mu.Lock()
	r.prefs[entity] = strategy
	r.mu.Unlock()
}

// AvailableStrategies lists the base strategy set plus entity-specific
// additions.
func (r *Resolver) AvailableStrategies(entity model.Entity) []model.Strategy {
	base := []model.Strategy{
		model.StrategyClientWins,
		model.StrategyServerWins,
		model.StrategyLastWriteWins,
		model.StrategyMergeAutomatic,
		model.StrategyMergeManual,
	}
	switch entity {
	case model.EntityHabit:
		return append(base, model.StrategySemantic, model.StrategyFieldLevel)
	case model.EntityCheckin:
		return append(base, model.StrategySemantic)
	default:
		return base
	}
}

// selectStrategy applies the deterministic precedence: user preference first,
// then per-entity field rules, then the configured default.
func (r *Resolver) selectStrategy(c model.Conflict) model.Strategy {
	r.mu.RLock()
	pref, ok := r.prefs[c.Entity]
	r.mu.RUnlock()
	if ok {
		return pref
	}
	if !r.respectEntityRules {
		return r.defaultStrategy
	}

	switch c.Entity {
	case model.EntityHabit:
		switch c.Field {
		case "completedToday", "streakCount":
			return model.StrategySemantic
		case "title", "schedule":
			return model.StrategyClientWins
		default:
			return model.StrategyLastWriteWins
		}
	case model.EntityJournal:
		if c.Field == "content" {
			return model.StrategyClientWins
		}
		return model.StrategyMergeAutomatic
	case model.EntityCheckin:
		return model.StrategySemantic
	case model.EntityPlan:
		// Plans are structurally complex and never auto-resolved.
		return model.StrategyMergeManual
	default:
		return r.defaultStrategy
	}
}

// apply dispatches over the closed strategy set. Adding a strategy means
// adding a case here; an unmatched value is the resolver's one error.
func (r *Resolver) apply(s model.Strategy, c model.Conflict) (model.Resolution, error) {
	switch s {
	case model.StrategyClientWins:
		return r.clientWins(c), nil
	case model.StrategyServerWins:
		return r.serverWins(c), nil
	case model.StrategyLastWriteWins:
		return r.lastWriteWins(c), nil
	case model.StrategyMergeAutomatic:
		return r.mergeAutomatic(c), nil
	case model.StrategyFieldLevel:
		return r.fieldLevelMerge(c), nil
	case model.StrategySemantic:
		return r.semanticMerge(c), nil
	case model.StrategyMergeManual:
		return r.mergeManual(c), nil
	case model.StrategyUserPreference:
		return r.userPreference(c), nil
	default:
		return model.Resolution{}, fmt.Errorf("unknown resolution strategy %q", s)
	}
}
