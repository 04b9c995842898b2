package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/connection"
	"github.com/elgendymo/Sakinah-sub005/internal/metric"
	"github.com/elgendymo/Sakinah-sub005/internal/model"
	"github.com/elgendymo/Sakinah-sub005/internal/resolver"
)

// Core owns the offline-resilience components and their lifecycle. Callers
// construct one explicitly and thread it through application state; there is
// no ambient singleton.
type Core struct {
	logger     *zap.Logger
	monitor    *connection.Monitor
	resolver   *resolver.Resolver
	linkSource *connection.LinkSource
	exporter   *metric.Exporter

	wg              sync.WaitGroup
	statusInterval  time.Duration
	version         string
	exporterStarted bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg *config.Config) *Core {
	if cfg.Monitor == nil {
		cfg.Monitor = config.DefaultMonitorConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Core{
		logger:         cfg.Logger,
		monitor:        connection.NewMonitor(cfg.Monitor, cfg.Logger),
		resolver:       resolver.New(cfg.Resolver, cfg.Logger),
		statusInterval: cfg.StatusInterval,
		version:        cfg.Version,
	}
	if c.statusInterval <= 0 {
		c.statusInterval = 30 * time.Second
	}
	if cfg.Monitor.EnableNetworkInformation {
		c.linkSource = connection.NewLinkSource(cfg.Logger)
	}
	if cfg.PrometheusServer != nil {
		c.exporter = metric.NewExporter(cfg.PrometheusServer, cfg.Logger)
	}
	return c
}

func (c *Core) Monitor() *connection.Monitor {
	return c.monitor
}

func (c *Core) Resolver() *resolver.Resolver {
	return c.resolver
}

func (c *Core) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.logger.Info("Starting offline core...")

	if err := c.monitor.Start(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("failed to start connection monitor: %w", err)
	}

	if c.linkSource != nil {
		// Passive signals are best-effort; keep running on the heartbeat
		// alone when the netlink subscription is unavailable.
		if err := c.linkSource.Start(c.ctx, c.monitor.ApplySignal); err != nil {
			c.logger.Warn("link signal source unavailable", zap.Error(err))
			c.linkSource = nil
		}
	}

	if c.exporter != nil {
		c.exporterStarted = true
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.exporter.Start(c.ctx)
		}()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.statusLoop()
	}()

	return nil
}

func (c *Core) Stop() error {
	c.logger.Info("Stopping offline core...")
	c.cancel()

	var err error
	if c.linkSource != nil {
		err = errors.Join(err, c.linkSource.Stop())
	}
	err = errors.Join(err, c.monitor.Stop())
	if c.exporterStarted {
		c.exporter.Stop()
	}
	c.wg.Wait()
	c.logger.Info("Offline core stopped", zap.Bool("isFailed", err != nil))
	return err
}

func (c *Core) statusLoop() {
	ticker := time.NewTicker(c.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.printStatus()
		}
	}
}

func (c *Core) printStatus() {
	snapshot := struct {
		Timestamp time.Time              `json:"timestamp"`
		Status    model.ConnectionStatus `json:"status"`
		Stability model.StabilityMetrics `json:"stability"`
	}{
		Timestamp: time.Now(),
		Status:    c.monitor.Status(),
		Stability: c.monitor.StabilityMetrics(),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		c.logger.Error("Error marshaling status", zap.Error(err))
		return
	}
	if c.version != "testing" {
		fmt.Println(string(data))
		fmt.Println("---")
	}
}
