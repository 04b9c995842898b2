package metric

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
)

var namespace = "offline_core"

var (
	ConnectionOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_online",
		Help:      "Whether the monitor currently believes the network is reachable (0/1).",
	})

	ConnectionQuality = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_quality",
		Help:      "Derived connection quality (0=offline, 1=poor, 2=fair, 3=good, 4=excellent).",
	})

	HeartbeatRTT = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "heartbeat_rtt_seconds",
		Help:      "Round-trip time of the last successful heartbeat probe.",
	})

	HeartbeatFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeat_failures_total",
		Help:      "Heartbeat probes that timed out or errored.",
	})

	Disconnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "disconnections_total",
		Help:      "Observed online-to-offline transitions.",
	})

	ConflictResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflict_resolutions_total",
		Help:      "Conflict resolutions produced, labelled by strategy.",
	},
		[]string{"strategy"},
	)

	ManualReviews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflict_manual_reviews_total",
		Help:      "Resolutions that required human review before persisting.",
	})
)

type Exporter struct {
	logger *zap.Logger
	srv    *http.Server
	cancel context.CancelFunc
	cfg    *config.PrometheusServerConfig
}

func NewExporter(cfg *config.PrometheusServerConfig, logger *zap.Logger) *Exporter {
	namespace = cfg.Namespace
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Exporter{cfg: cfg, srv: srv, logger: logger}
}

func (e *Exporter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("Prometheus exporter listening", zap.String("addr", e.srv.Addr))
		if err := e.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		e.logger.Info("stopping prometheus server")
		// graceful shutdown
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.srv.Shutdown(shCtx)
	case err := <-errCh:
		e.logger.Error("prometheus server failed", zap.Error(err))
		return err
	}
}

func (e *Exporter) Stop() error {
	e.cancel()
	return nil
}
