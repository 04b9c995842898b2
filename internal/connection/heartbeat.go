package connection

import (
	"context"
	"net/http"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
)

type probeResult struct {
	OK  bool
	RTT time.Duration
}

// probe runs one reachability check, bounded by the heartbeat timeout. Only
// one probe may be in flight: starting a new one aborts any prior probe via
// its cancellation handle.
func (m *Monitor) probe(ctx context.Context) probeResult {
	pctx, cancel := context.WithTimeout(ctx, m.cfg.HeartbeatTimeout)

	m.probeMu.Lock()
	m.probeSeq++
	seq := m.probeSeq
	if m.probeCancel != nil {
		m.probeCancel()
	}
	m.probeCancel = cancel
	m.probeMu.Unlock()

	defer func() {
		cancel()
		m.probeMu.Lock()
		if m.probeSeq == seq {
			m.probeCancel = nil
		}
		m.probeMu.Unlock()
	}()

	switch m.cfg.ProbeKind {
	case config.ProbeICMP:
		return m.icmpProbe(pctx)
	default:
		return m.httpProbe(pctx)
	}
}

func (m *Monitor) cancelInflightProbe() {
	m.probeMu.Lock()
	if m.probeCancel != nil {
		m.probeCancel()
		m.probeCancel = nil
	}
	m.probeMu.Unlock()
}

// httpProbe issues a HEAD request against the heartbeat URL. Any 2xx counts
// as reachable; timeouts, transport errors and other status codes all
// collapse to offline.
func (m *Monitor) httpProbe(ctx context.Context) probeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.cfg.HeartbeatURL, nil)
	if err != nil {
		m.logger.Error("invalid heartbeat url", zap.String("url", m.cfg.HeartbeatURL), zap.Error(err))
		return probeResult{}
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return probeResult{}
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return probeResult{}
	}
	return probeResult{OK: true, RTT: rtt}
}

// icmpProbe sends a single echo request to the ping target (falling back to
// the heartbeat URL's host). Needs CAP_NET_RAW.
func (m *Monitor) icmpProbe(ctx context.Context) probeResult {
	target := m.cfg.PingTarget
	if target == "" {
		u, err := url.Parse(m.cfg.HeartbeatURL)
		if err != nil {
			m.logger.Error("no usable ping target", zap.Error(err))
			return probeResult{}
		}
		target = u.Hostname()
	}

	pinger, err := probing.NewPinger(target)
	if err != nil {
		m.logger.Error("failed to create pinger", zap.String("target", target), zap.Error(err))
		return probeResult{}
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = m.cfg.HeartbeatTimeout

	go func() {
		<-ctx.Done()
		pinger.Stop()
	}()

	start := time.Now()
	if err = pinger.Run(); err != nil {
		m.logger.Debug("pinger run failed", zap.String("target", target), zap.Error(err))
		return probeResult{}
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return probeResult{}
	}
	rtt := stats.AvgRtt
	if rtt <= 0 {
		rtt = time.Since(start)
	}
	return probeResult{OK: true, RTT: rtt}
}
