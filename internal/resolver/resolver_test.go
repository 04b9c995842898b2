package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

func newTestResolver(t *testing.T, cfg *config.ResolverConfig) *Resolver {
	t.Helper()
	return New(cfg, zap.NewNop())
}

func conflictOf(entity model.Entity, field string) model.Conflict {
	return model.Conflict{
		ID:              "c-1",
		Entity:          entity,
		Type:            model.ConflictData,
		ClientData:      model.Record{"title": "client"},
		ServerData:      model.Record{"title": "server"},
		ClientTimestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		ServerTimestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Field:           field,
	}
}

func TestStrategySelection(t *testing.T) {
	r := newTestResolver(t, nil)

	cases := []struct {
		name   string
		entity model.Entity
		field  string
		want   model.Strategy
	}{
		{"habit completion is semantic", model.EntityHabit, "completedToday", model.StrategySemantic},
		{"habit streak is semantic", model.EntityHabit, "streakCount", model.StrategySemantic},
		{"habit title keeps client", model.EntityHabit, "title", model.StrategyClientWins},
		{"habit schedule keeps client", model.EntityHabit, "schedule", model.StrategyClientWins},
		{"habit other is last-write", model.EntityHabit, "color", model.StrategyLastWriteWins},
		{"journal content keeps client", model.EntityJournal, "content", model.StrategyClientWins},
		{"journal other auto-merges", model.EntityJournal, "title", model.StrategyMergeAutomatic},
		{"checkin is semantic", model.EntityCheckin, "", model.StrategySemantic},
		{"plan is manual", model.EntityPlan, "", model.StrategyMergeManual},
		{"unknown entity falls back", model.Entity("note"), "", model.StrategyLastWriteWins},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Resolve(conflictOf(tc.entity, tc.field))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Strategy)
		})
	}
}

func TestUserPreferenceTakesPrecedence(t *testing.T) {
	r := newTestResolver(t, nil)
	r.SetUserPreference(model.EntityHabit, model.StrategyServerWins)

	res, err := r.Resolve(conflictOf(model.EntityHabit, "completedToday"))
	require.NoError(t, err)
	assert.Equal(t, model.StrategyServerWins, res.Strategy)
	assert.Equal(t, "server", res.ResolvedData["title"])
}

func TestConfiguredPreferences(t *testing.T) {
	r := newTestResolver(t, &config.ResolverConfig{
		UserPreferences: map[string]string{"journal": string(model.StrategyClientWins)},
	})

	res, err := r.Resolve(conflictOf(model.EntityJournal, "title"))
	require.NoError(t, err)
	assert.Equal(t, model.StrategyClientWins, res.Strategy)
}

func TestEntityRulesCanBeDisabled(t *testing.T) {
	r := newTestResolver(t, &config.ResolverConfig{
		DefaultStrategy:    string(model.StrategyServerWins),
		RespectEntityRules: false,
	})

	res, err := r.Resolve(conflictOf(model.EntityPlan, ""))
	require.NoError(t, err)
	assert.Equal(t, model.StrategyServerWins, res.Strategy)
}

func TestPlanAlwaysRequiresManualReview(t *testing.T) {
	r := newTestResolver(t, nil)

	for _, field := range []string{"", "title", "steps", "anything"} {
		res, err := r.Resolve(conflictOf(model.EntityPlan, field))
		require.NoError(t, err)
		assert.Equal(t, model.StrategyMergeManual, res.Strategy)
		assert.True(t, res.RequiresUserInput)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, "server", res.ResolvedData["title"], "placeholder must be the server copy")
	}
}

func TestUnknownStrategyIsAnError(t *testing.T) {
	r := newTestResolver(t, nil)
	r.SetUserPreference(model.EntityJournal, model.Strategy("explode"))

	_, err := r.Resolve(conflictOf(model.EntityJournal, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resolution strategy")
}

func TestResolveBatchShieldsFailures(t *testing.T) {
	r := newTestResolver(t, nil)
	r.SetUserPreference(model.EntityJournal, model.Strategy("explode"))

	conflicts := []model.Conflict{
		conflictOf(model.EntityHabit, "title"),
		conflictOf(model.EntityJournal, ""),
		conflictOf(model.EntityCheckin, ""),
	}
	out := r.ResolveBatch(conflicts)
	require.Len(t, out, len(conflicts))

	assert.Equal(t, model.StrategyClientWins, out[0].Strategy)

	failed := out[1]
	assert.Equal(t, model.StrategyServerWins, failed.Strategy)
	assert.True(t, failed.RequiresUserInput)
	assert.Zero(t, failed.Confidence)
	assert.Contains(t, failed.Explanation, "Resolution failed:")
	assert.Equal(t, "server", failed.ResolvedData["title"])

	assert.Equal(t, model.StrategySemantic, out[2].Strategy)
}

func TestResolveDoesNotMutateConflict(t *testing.T) {
	r := newTestResolver(t, nil)
	c := model.Conflict{
		Entity:     model.EntityHabit,
		ClientData: model.Record{"completedToday": true, "streakCount": 5},
		ServerData: model.Record{"completedToday": false, "streakCount": 4},
		Field:      "completedToday",
	}

	res, err := r.Resolve(c)
	require.NoError(t, err)
	res.ResolvedData["completedToday"] = "tampered"

	assert.Equal(t, true, c.ClientData["completedToday"])
	assert.Equal(t, false, c.ServerData["completedToday"])
}

func TestClientWinsIsIdempotent(t *testing.T) {
	r := newTestResolver(t, nil)
	c := conflictOf(model.EntityHabit, "title")

	first, err := r.Resolve(c)
	require.NoError(t, err)
	second, err := r.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAvailableStrategies(t *testing.T) {
	r := newTestResolver(t, nil)

	habit := r.AvailableStrategies(model.EntityHabit)
	assert.Contains(t, habit, model.StrategySemantic)
	assert.Contains(t, habit, model.StrategyFieldLevel)

	journal := r.AvailableStrategies(model.EntityJournal)
	assert.NotContains(t, journal, model.StrategySemantic)
	assert.Contains(t, journal, model.StrategyClientWins)
	assert.Contains(t, journal, model.StrategyMergeManual)

	checkin := r.AvailableStrategies(model.EntityCheckin)
	assert.Contains(t, checkin, model.StrategySemantic)
	assert.NotContains(t, checkin, model.StrategyFieldLevel)
}
