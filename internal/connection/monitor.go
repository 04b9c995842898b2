package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/metric"
	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

const Name = "connection"

// Signal is a passive platform observation pushed into the monitor, the
// counterpart of the browser online/offline and network-information events.
// Nil/zero fields leave the corresponding status field untouched.
type Signal struct {
	Online         *bool
	ConnectionType model.ConnectionType
	EffectiveType  model.EffectiveType
	Downlink       float64
	RTT            time.Duration
	SaveData       *bool
}

// Monitor maintains a continuously updated belief about network reachability
// and quality. Status snapshots are replaced wholesale; listeners observe
// every transition synchronously and in order.
type Monitor struct {
	cfg    *config.MonitorConfig
	logger *zap.Logger

	mu                  sync.Mutex
	running             bool
	status              model.ConnectionStatus
	history             []model.StabilitySample
	hidden              bool
	lastSuccess         time.Time
	consecutiveFailures int

	// emitMu serializes status replacement plus emission so listeners never
	// observe transitions out of order.
	emitMu sync.Mutex

	probeMu     sync.Mutex
	probeSeq    uint64
	probeCancel context.CancelFunc

	listeners  listenerRegistry
	httpClient *http.Client

	wg     sync.WaitGroup
	cancel context.CancelFunc

	now func() time.Time
}

// NewMonitor creates a connection monitor. A nil cfg uses the documented
// defaults. Start must be called before the heartbeat runs; the monitor is
// usable for passive signals and active tests without Start.
func NewMonitor(cfg *config.MonitorConfig, logger *zap.Logger) *Monitor {
	if cfg == nil {
		cfg = config.DefaultMonitorConfig()
	}
	cfg.Normalize()

	m := &Monitor{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{},
		now:        time.Now,
	}
	// Optimistic initial belief, corrected by the first probe or signal.
	m.status = model.ConnectionStatus{
		IsOnline:       true,
		ConnectionType: model.ConnectionUnknown,
		EffectiveType:  model.EffectiveUnknown,
		IsStable:       true,
	}
	m.status.Quality = deriveQuality(m.status, cfg.Thresholds)
	return m
}

func (m *Monitor) Name() string {
	return Name
}

// Start launches the periodic heartbeat loop. Idempotent.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.cfg.EnableHeartbeat {
		m.wg.Add(1)
		go m.heartbeatLoop(ctx)
	}

	m.running = true
	m.logger.Info("Connection monitoring started...",
		zap.Duration("interval", m.cfg.HeartbeatInterval),
		zap.String("probe", m.cfg.ProbeKind))
	return nil
}

// Stop cancels the heartbeat loop and aborts any in-flight probe. Idempotent;
// no probe result is acted on after Stop returns.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.cancelInflightProbe()
	m.wg.Wait()
	m.logger.Info("Connection monitor stopped")
	return nil
}

// Status returns the current snapshot.
func (m *Monitor) Status() model.ConnectionStatus {
	m.mu.Lock()
	s := m.status
	m.mu.Unlock()
	return s
}

// TestConnection performs one active probe and returns the updated snapshot.
// Probe timeouts and network errors are indistinguishable: both resolve to
// offline, nothing is ever propagated as an error.
func (m *Monitor) TestConnection(ctx context.Context) model.ConnectionStatus {
	res := m.probe(ctx)
	m.applyProbeResult(res, model.TriggerActiveTest)
	return m.Status()
}

// ForceOnline overrides the current belief without probing. Always emits an
// online event tagged as manual, even when the state is unchanged.
func (m *Monitor) ForceOnline() {
	m.applyUpdate(model.TriggerManual, true, "forced online", func(s *model.ConnectionStatus) {
		s.IsOnline = true
	})
}

// ForceOffline is the manual "I know I'm offline" acknowledgement. Always
// emits an offline event tagged as manual.
func (m *Monitor) ForceOffline() {
	m.applyUpdate(model.TriggerManual, true, "forced offline", func(s *model.ConnectionStatus) {
		s.IsOnline = false
	})
}

// ApplySignal folds a passive platform observation into the status.
func (m *Monitor) ApplySignal(sig Signal) {
	m.applyUpdate(model.TriggerPlatform, false, "", func(s *model.ConnectionStatus) {
		if sig.Online != nil {
			s.IsOnline = *sig.Online
		}
		if sig.ConnectionType != "" {
			s.ConnectionType = sig.ConnectionType
		}
		if sig.EffectiveType != "" {
			s.EffectiveType = sig.EffectiveType
		}
		if sig.Downlink > 0 {
			s.Downlink = sig.Downlink
		}
		if sig.RTT > 0 {
			s.RTT = sig.RTT
		}
		if sig.SaveData != nil {
			s.SaveData = *sig.SaveData
		}
	})
}

// SetHidden records page visibility; while hidden, heartbeats with a recent
// success are suppressed.
func (m *Monitor) SetHidden(hidden bool) {
	m.mu.Lock()
	m.hidden = hidden
	m.mu.Unlock()
}

// AddListener registers fn and returns a token for removal. Listeners run
// synchronously in registration order; a panicking listener is recovered and
// logged, never blocking the rest. Listeners must not trigger further status
// updates from within the callback.
func (m *Monitor) AddListener(fn Listener) int {
	return m.listeners.add(fn)
}

// RemoveListener unregisters the listener registered under id.
func (m *Monitor) RemoveListener(id int) {
	m.listeners.remove(id)
}

// StabilityMetrics derives uptime and disconnection counts from the rolling
// window.
func (m *Monitor) StabilityMetrics() model.StabilityMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return computeStability(m.history, m.status, m.cfg.StabilityWindow, m.now())
}

func (m *Monitor) heartbeatLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	m.heartbeatTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.heartbeatTick(ctx)
		}
	}
}

func (m *Monitor) heartbeatTick(ctx context.Context) {
	if m.shouldSkipHeartbeat() {
		m.logger.Debug("heartbeat skipped while hidden, last success is recent")
		return
	}
	res := m.probe(ctx)
	if ctx.Err() != nil {
		// Stopped while the probe was in flight; the aborted result must not
		// flip the status after Stop.
		return
	}
	m.applyProbeResult(res, model.TriggerHeartbeat)
}

// shouldSkipHeartbeat implements the stale-while-hidden policy: while the
// page is hidden a heartbeat is skipped as long as one succeeded within the
// last three intervals.
func (m *Monitor) shouldSkipHeartbeat() bool {
	if !m.cfg.EnableVisibilityTracking {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden && !m.lastSuccess.IsZero() &&
		m.now().Sub(m.lastSuccess) < 3*m.cfg.HeartbeatInterval
}

func (m *Monitor) applyProbeResult(res probeResult, trigger model.TriggerSource) {
	if res.OK {
		m.mu.Lock()
		m.lastSuccess = m.now()
		m.consecutiveFailures = 0
		m.mu.Unlock()
		metric.HeartbeatRTT.Set(res.RTT.Seconds())
		m.applyUpdate(trigger, false, "", func(s *model.ConnectionStatus) {
			s.IsOnline = true
			s.RTT = res.RTT
		})
		return
	}

	m.mu.Lock()
	m.consecutiveFailures++
	failures := m.consecutiveFailures
	m.mu.Unlock()
	metric.HeartbeatFailures.Inc()
	m.logger.Debug("heartbeat probe failed", zap.Int("consecutive_failures", failures))
	m.applyUpdate(trigger, false, "", func(s *model.ConnectionStatus) {
		s.IsOnline = false
	})
}

// applyUpdate replaces the status snapshot and emits events for the
// resulting transitions. forceEmit emits an online/offline event even when
// IsOnline did not change (manual overrides re-announce their state).
func (m *Monitor) applyUpdate(trigger model.TriggerSource, forceEmit bool, details string, mutate func(*model.ConnectionStatus)) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	now := m.now()

	m.mu.Lock()
	prev := m.status
	next := prev
	mutate(&next)
	if next.IsOnline != prev.IsOnline {
		t := now
		if next.IsOnline {
			next.LastOnline = &t
		} else {
			next.LastOffline = &t
		}
	}
	next.Quality = deriveQuality(next, m.cfg.Thresholds)
	m.history = appendSample(m.history, model.StabilitySample{Timestamp: now, Online: next.IsOnline}, m.cfg.StabilityWindow, now)
	next.IsStable = computeStability(m.history, next, m.cfg.StabilityWindow, now).IsStable
	m.status = next
	m.mu.Unlock()

	metric.ConnectionOnline.Set(boolToFloat(next.IsOnline))
	metric.ConnectionQuality.Set(model.QualityToFloat(next.Quality))
	if prev.IsOnline && !next.IsOnline {
		metric.Disconnections.Inc()
	}

	var events []model.NetworkEvent
	switch {
	case next.IsOnline != prev.IsOnline || forceEmit:
		typ := model.EventOffline
		if next.IsOnline {
			typ = model.EventOnline
		}
		events = append(events, m.newEvent(typ, now, prev, next, trigger, details))
	case next.Quality != prev.Quality:
		events = append(events, m.newEvent(model.EventQualityChange, now, prev, next, trigger, details))
	}
	if prev.IsStable && !next.IsStable {
		events = append(events, m.newEvent(model.EventInstability, now, prev, next, trigger, details))
	}
	m.listeners.emit(m.logger, events...)
}

func (m *Monitor) newEvent(typ model.EventType, at time.Time, prev, cur model.ConnectionStatus, trigger model.TriggerSource, details string) model.NetworkEvent {
	meta := model.EventMetadata{TriggeredBy: trigger, Details: details}
	if trigger == model.TriggerManual {
		meta.Confidence = 1.0
	}
	p := prev
	return model.NetworkEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: at,
		Previous:  &p,
		Current:   cur,
		Metadata:  meta,
	}
}

// deriveQuality maps a snapshot onto the configured tiers in strict priority
// order. Offline always wins regardless of stale RTT/downlink values. An
// unknown downlink (zero) gates each tier on RTT alone.
func deriveQuality(s model.ConnectionStatus, th config.QualityThresholds) model.ConnectionQuality {
	if !s.IsOnline {
		return model.QualityOffline
	}
	for _, band := range []struct {
		b config.QualityBand
		q model.ConnectionQuality
	}{
		{th.Excellent, model.QualityExcellent},
		{th.Good, model.QualityGood},
		{th.Fair, model.QualityFair},
	} {
		if s.RTT <= band.b.MaxRTT && (s.Downlink == 0 || s.Downlink >= band.b.MinDownlink) {
			return band.q
		}
	}
	return model.QualityPoor
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
