package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/model"
	"github.com/elgendymo/Sakinah-sub005/internal/runtime"
)

func TestOfflineCore(t *testing.T) {
	cfg := config.NewConfig("testing")
	require.NoError(t, cfg.Load("test-config.yaml", "./"))
	cfg.Logger = zap.NewNop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	cfg.Monitor.HeartbeatURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core := runtime.New(cfg)
	require.NoError(t, core.Start(ctx))
	defer func(tst *testing.T) {
		require.NoError(tst, core.Stop())
	}(t)

	mon := core.Monitor()

	var mu sync.Mutex
	var events []model.NetworkEvent
	id := mon.AddListener(func(ev model.NetworkEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer mon.RemoveListener(id)

	st := mon.TestConnection(ctx)
	require.True(t, st.IsOnline)
	require.Greater(t, st.RTT, time.Duration(0))

	mon.ForceOffline()
	st = mon.Status()
	require.False(t, st.IsOnline)
	require.Equal(t, model.QualityOffline, st.Quality)

	mon.ForceOnline()
	require.True(t, mon.Status().IsOnline)

	mu.Lock()
	require.GreaterOrEqual(t, len(events), 2)
	var sawOffline, sawOnline bool
	for _, ev := range events {
		if ev.Type == model.EventOffline && ev.Metadata.TriggeredBy == model.TriggerManual {
			sawOffline = true
		}
		if ev.Type == model.EventOnline && ev.Metadata.TriggeredBy == model.TriggerManual {
			sawOnline = true
		}
	}
	mu.Unlock()
	assert.True(t, sawOffline)
	assert.True(t, sawOnline)

	metrics := mon.StabilityMetrics()
	assert.Equal(t, 1, metrics.DisconnectionCount)

	res := core.Resolver()
	out, err := res.Resolve(model.Conflict{
		ID:         "habit-1",
		Entity:     model.EntityHabit,
		Type:       model.ConflictConcurrentEdit,
		Field:      "completedToday",
		ClientData: model.Record{"completedToday": true, "streakCount": 5},
		ServerData: model.Record{"completedToday": false, "streakCount": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StrategySemantic, out.Strategy)
	assert.Equal(t, true, out.ResolvedData["completedToday"])
	assert.False(t, out.RequiresUserInput)

	batch := res.ResolveBatch([]model.Conflict{
		{
			ID:         "plan-1",
			Entity:     model.EntityPlan,
			Type:       model.ConflictVersion,
			ClientData: model.Record{"title": "client plan"},
			ServerData: model.Record{"title": "server plan"},
		},
	})
	require.Len(t, batch, 1)
	assert.Equal(t, model.StrategyMergeManual, batch[0].Strategy)
	assert.True(t, batch[0].RequiresUserInput)
	assert.Zero(t, batch[0].Confidence)
}
