package model

import (
	"time"
)

// ConnectionType classifies the underlying link.
type ConnectionType string

const (
	ConnectionWifi     ConnectionType = "wifi"
	ConnectionCellular ConnectionType = "cellular"
	ConnectionEthernet ConnectionType = "ethernet"
	ConnectionUnknown  ConnectionType = "unknown"
)

// EffectiveType is the coarse bandwidth class reported by the platform.
type EffectiveType string

const (
	EffectiveSlow2G  EffectiveType = "slow-2g"
	Effective2G      EffectiveType = "2g"
	Effective3G      EffectiveType = "3g"
	Effective4G      EffectiveType = "4g"
	EffectiveUnknown EffectiveType = "unknown"
)

// ConnectionQuality is derived from RTT and downlink, never set by callers.
type ConnectionQuality string

const (
	QualityExcellent ConnectionQuality = "excellent"
	QualityGood      ConnectionQuality = "good"
	QualityFair      ConnectionQuality = "fair"
	QualityPoor      ConnectionQuality = "poor"
	QualityOffline   ConnectionQuality = "offline"
)

// QualityToFloat maps quality to a float64 for Prometheus gauges.
func QualityToFloat(q ConnectionQuality) float64 {
	switch q {
	case QualityExcellent:
		return 4.0
	case QualityGood:
		return 3.0
	case QualityFair:
		return 2.0
	case QualityPoor:
		return 1.0
	default:
		return 0.0
	}
}

// ConnectionStatus is a value snapshot of the monitor's current belief about
// the network. It is replaced wholesale on every observation, never mutated
// in place. Quality is "offline" iff IsOnline is false.
type ConnectionStatus struct {
	IsOnline       bool              `json:"is_online"`
	ConnectionType ConnectionType    `json:"connection_type"`
	EffectiveType  EffectiveType     `json:"effective_type"`
	Downlink       float64           `json:"downlink_mbps"`
	RTT            time.Duration     `json:"rtt"`
	SaveData       bool              `json:"save_data"`
	LastOnline     *time.Time        `json:"last_online,omitempty"`
	LastOffline    *time.Time        `json:"last_offline,omitempty"`
	Quality        ConnectionQuality `json:"quality"`
	IsStable       bool              `json:"is_stable"`
}

// StabilitySample is one online/offline observation in the rolling window.
type StabilitySample struct {
	Timestamp time.Time `json:"timestamp"`
	Online    bool      `json:"online"`
}

// StabilityMetrics summarizes the rolling stability window.
type StabilityMetrics struct {
	IsStable           bool          `json:"is_stable"`
	UptimePercent      float64       `json:"uptime_percent"`
	DisconnectionCount int           `json:"disconnection_count"`
	AverageReconnect   time.Duration `json:"average_reconnect"`
}

// EventType identifies a meaningful connectivity transition.
type EventType string

const (
	EventOnline        EventType = "online"
	EventOffline       EventType = "offline"
	EventQualityChange EventType = "quality-change"
	EventInstability   EventType = "instability-detected"
)

// TriggerSource records which path produced a status update.
type TriggerSource string

const (
	TriggerHeartbeat  TriggerSource = "heartbeat"
	TriggerActiveTest TriggerSource = "active-test"
	TriggerPlatform   TriggerSource = "platform"
	TriggerManual     TriggerSource = "manual"
)

// EventMetadata carries provenance for a NetworkEvent.
type EventMetadata struct {
	TriggeredBy TriggerSource `json:"triggered_by"`
	Confidence  float64       `json:"confidence,omitempty"`
	Details     string        `json:"details,omitempty"`
}

// NetworkEvent is an immutable record of a connectivity transition. Previous
// is nil for the very first observation.
type NetworkEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Previous  *ConnectionStatus `json:"previous,omitempty"`
	Current   ConnectionStatus  `json:"current"`
	Metadata  EventMetadata     `json:"metadata"`
}
