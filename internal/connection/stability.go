package connection

import (
	"time"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

// appendSample adds one observation and prunes everything older than the
// rolling window. The history slice is owned exclusively by the monitor.
func appendSample(history []model.StabilitySample, s model.StabilitySample, window time.Duration, now time.Time) []model.StabilitySample {
	history = append(history, s)
	cutoff := now.Add(-window)
	i := 0
	for i < len(history) && history[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		history = append(history[:0], history[i:]...)
	}
	return history
}

// computeStability derives the window metrics. A disconnection is a sample
// whose predecessor was online (or an offline sample opening the window).
// An outage still open at "now" counts toward offline time but not toward
// the average reconnect time.
func computeStability(history []model.StabilitySample, current model.ConnectionStatus, window time.Duration, now time.Time) model.StabilityMetrics {
	if len(history) == 0 {
		up := 0.0
		if current.IsOnline {
			up = 100
		}
		return model.StabilityMetrics{IsStable: current.IsOnline, UptimePercent: up}
	}

	var (
		totalOffline   time.Duration
		reconnectSum   time.Duration
		reconnectCount int
		disconnections int
		offlineSince   time.Time
		inOutage       bool
	)

	for i, s := range history {
		if !s.Online && (i == 0 || history[i-1].Online) {
			disconnections++
			inOutage = true
			offlineSince = s.Timestamp
		}
		if s.Online && inOutage {
			d := s.Timestamp.Sub(offlineSince)
			reconnectSum += d
			reconnectCount++
			totalOffline += d
			inOutage = false
		}
	}
	if inOutage {
		totalOffline += now.Sub(offlineSince)
	}

	uptime := 100 - (totalOffline.Seconds()/window.Seconds())*100
	if uptime < 0 {
		uptime = 0
	}

	var avgReconnect time.Duration
	if reconnectCount > 0 {
		avgReconnect = reconnectSum / time.Duration(reconnectCount)
	}

	return model.StabilityMetrics{
		IsStable:           disconnections <= 2 && uptime >= 90,
		UptimePercent:      uptime,
		DisconnectionCount: disconnections,
		AverageReconnect:   avgReconnect,
	}
}
