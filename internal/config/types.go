package config

import (
	"time"

	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

type Config struct {
	Logger           *zap.Logger
	Monitor          *MonitorConfig
	Resolver         *ResolverConfig
	Logging          *LoggingConfig
	Version          string
	StatusInterval   time.Duration           `mapstructure:"status_interval"`
	PrometheusServer *PrometheusServerConfig `mapstructure:"prom_server"`
}

type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ProbeKind selects how the heartbeat reaches the probe endpoint.
const (
	ProbeHTTP = "http"
	ProbeICMP = "icmp"
)

type MonitorConfig struct {
	HeartbeatInterval time.Duration     `mapstructure:"heartbeat_interval"`
	HeartbeatURL      string            `mapstructure:"heartbeat_url"`
	HeartbeatTimeout  time.Duration     `mapstructure:"heartbeat_timeout"`
	ProbeKind         string            `mapstructure:"probe_kind"`
	PingTarget        string            `mapstructure:"ping_target"`
	StabilityWindow   time.Duration     `mapstructure:"stability_window"`
	Thresholds        QualityThresholds `mapstructure:"quality_thresholds"`

	EnableHeartbeat          bool `mapstructure:"enable_heartbeat"`
	EnableNetworkInformation bool `mapstructure:"enable_network_information"`
	EnableVisibilityTracking bool `mapstructure:"enable_visibility_tracking"`
}

// QualityBand holds the ceiling/floor a snapshot must satisfy to earn a
// quality tier. A zero Downlink on the snapshot means the link rate is
// unknown and the tier gates on RTT alone.
type QualityBand struct {
	MaxRTT      time.Duration `mapstructure:"max_rtt"`
	MinDownlink float64       `mapstructure:"min_downlink"`
}

type QualityThresholds struct {
	Excellent QualityBand
	Good      QualityBand
	Fair      QualityBand
}

type ResolverConfig struct {
	DefaultStrategy    string            `mapstructure:"default_strategy"`
	UserPreferences    map[string]string `mapstructure:"user_preferences"`
	AutoMergeThreshold float64           `mapstructure:"auto_merge_threshold"`
	PreserveUserData   bool              `mapstructure:"preserve_user_data"`
	RespectEntityRules bool              `mapstructure:"respect_entity_rules"`
}

type PrometheusServerConfig struct {
	Addr      string
	Namespace string
}

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 5 * time.Second
	DefaultStabilityWindow   = 120 * time.Second
	DefaultHeartbeatURL      = "https://clients3.google.com/generate_204"
)

// DefaultMonitorConfig returns the monitor defaults used when a field is
// left unset: 30s interval, 5s timeout, 120s window, HTTP probing with all
// feature toggles on.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		HeartbeatInterval:        DefaultHeartbeatInterval,
		HeartbeatURL:             DefaultHeartbeatURL,
		HeartbeatTimeout:         DefaultHeartbeatTimeout,
		ProbeKind:                ProbeHTTP,
		StabilityWindow:          DefaultStabilityWindow,
		Thresholds:               DefaultThresholds(),
		EnableHeartbeat:          true,
		EnableNetworkInformation: true,
		EnableVisibilityTracking: true,
	}
}

// DefaultThresholds: excellent rtt<=100ms & downlink>=10Mbps, good 300ms/5,
// fair 1s/1. Anything worse while online is poor.
func DefaultThresholds() QualityThresholds {
	return QualityThresholds{
		Excellent: QualityBand{MaxRTT: 100 * time.Millisecond, MinDownlink: 10},
		Good:      QualityBand{MaxRTT: 300 * time.Millisecond, MinDownlink: 5},
		Fair:      QualityBand{MaxRTT: 1000 * time.Millisecond, MinDownlink: 1},
	}
}

// Normalize fills zero-valued fields with documented defaults.
func (c *MonitorConfig) Normalize() {
	def := DefaultMonitorConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.StabilityWindow <= 0 {
		c.StabilityWindow = def.StabilityWindow
	}
	if c.HeartbeatURL == "" {
		c.HeartbeatURL = def.HeartbeatURL
	}
	if c.ProbeKind == "" {
		c.ProbeKind = def.ProbeKind
	}
	if c.Thresholds == (QualityThresholds{}) {
		c.Thresholds = def.Thresholds
	}
}

// DefaultResolverConfig: last-write-wins fallback, 0.8 auto-merge threshold,
// entity rules and user-data preservation on.
func DefaultResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		DefaultStrategy:    string(model.StrategyLastWriteWins),
		AutoMergeThreshold: 0.8,
		PreserveUserData:   true,
		RespectEntityRules: true,
	}
}

// Normalize fills zero-valued fields with documented defaults.
func (c *ResolverConfig) Normalize() {
	if c.DefaultStrategy == "" {
		c.DefaultStrategy = string(model.StrategyLastWriteWins)
	}
	if c.AutoMergeThreshold <= 0 {
		c.AutoMergeThreshold = 0.8
	}
}
