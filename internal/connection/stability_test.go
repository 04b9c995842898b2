package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

func sample(at time.Time, online bool) model.StabilitySample {
	return model.StabilitySample{Timestamp: at, Online: online}
}

func TestComputeStabilityEmptyHistory(t *testing.T) {
	now := time.Now()
	window := 120 * time.Second

	sm := computeStability(nil, model.ConnectionStatus{IsOnline: true}, window, now)
	assert.True(t, sm.IsStable)
	assert.Equal(t, 100.0, sm.UptimePercent)
	assert.Zero(t, sm.DisconnectionCount)

	sm = computeStability(nil, model.ConnectionStatus{IsOnline: false}, window, now)
	assert.False(t, sm.IsStable)
	assert.Equal(t, 0.0, sm.UptimePercent)
}

func TestComputeStabilityNoDisconnections(t *testing.T) {
	now := time.Now()
	history := []model.StabilitySample{
		sample(now.Add(-90*time.Second), true),
		sample(now.Add(-60*time.Second), true),
		sample(now.Add(-30*time.Second), true),
	}

	sm := computeStability(history, model.ConnectionStatus{IsOnline: true}, 120*time.Second, now)
	assert.True(t, sm.IsStable)
	assert.Equal(t, 100.0, sm.UptimePercent)
	assert.Zero(t, sm.DisconnectionCount)
	assert.Zero(t, sm.AverageReconnect)
}

func TestComputeStabilityThreeDisconnections(t *testing.T) {
	now := time.Now()
	history := []model.StabilitySample{
		sample(now.Add(-110*time.Second), true),
		sample(now.Add(-100*time.Second), false),
		sample(now.Add(-99*time.Second), true),
		sample(now.Add(-60*time.Second), false),
		sample(now.Add(-59*time.Second), true),
		sample(now.Add(-20*time.Second), false),
		sample(now.Add(-19*time.Second), true),
	}

	sm := computeStability(history, model.ConnectionStatus{IsOnline: true}, 120*time.Second, now)
	assert.Equal(t, 3, sm.DisconnectionCount)
	assert.False(t, sm.IsStable)
}

func TestComputeStabilityReconnectTimes(t *testing.T) {
	now := time.Now()
	history := []model.StabilitySample{
		sample(now.Add(-100*time.Second), true),
		sample(now.Add(-80*time.Second), false), // 2s outage
		sample(now.Add(-78*time.Second), true),
		sample(now.Add(-40*time.Second), false), // 1s outage
		sample(now.Add(-39*time.Second), true),
	}

	sm := computeStability(history, model.ConnectionStatus{IsOnline: true}, 120*time.Second, now)
	assert.Equal(t, 2, sm.DisconnectionCount)
	assert.Equal(t, 1500*time.Millisecond, sm.AverageReconnect)
	assert.InDelta(t, 97.5, sm.UptimePercent, 0.01)
	assert.True(t, sm.IsStable)
}

func TestComputeStabilityOngoingOutage(t *testing.T) {
	now := time.Now()
	history := []model.StabilitySample{
		sample(now.Add(-9*time.Second), true),
		sample(now.Add(-8*time.Second), false),
	}

	sm := computeStability(history, model.ConnectionStatus{IsOnline: false}, 10*time.Second, now)
	assert.Equal(t, 1, sm.DisconnectionCount)
	assert.InDelta(t, 20.0, sm.UptimePercent, 0.01)
	assert.False(t, sm.IsStable)
	assert.Zero(t, sm.AverageReconnect, "an open outage has no reconnect time")
}

func TestComputeStabilityWindowOpensOffline(t *testing.T) {
	now := time.Now()
	history := []model.StabilitySample{
		sample(now.Add(-100*time.Second), false),
		sample(now.Add(-95*time.Second), true),
	}

	sm := computeStability(history, model.ConnectionStatus{IsOnline: true}, 120*time.Second, now)
	assert.Equal(t, 1, sm.DisconnectionCount, "a window starting offline counts as a disconnection")
	assert.Equal(t, 5*time.Second, sm.AverageReconnect)
}

func TestAppendSamplePrunes(t *testing.T) {
	now := time.Now()
	window := 120 * time.Second

	history := []model.StabilitySample{
		sample(now.Add(-300*time.Second), true),
		sample(now.Add(-200*time.Second), false),
		sample(now.Add(-60*time.Second), true),
	}

	history = appendSample(history, sample(now, true), window, now)
	assert.Len(t, history, 2)
	assert.Equal(t, now.Add(-60*time.Second), history[0].Timestamp)
	assert.Equal(t, now, history[1].Timestamp)
}
