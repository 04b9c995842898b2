package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func NewConfig(version string) *Config {
	return &Config{Version: version}
}

func (c *Config) Load(filename, path string) error {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.AddConfigPath(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Flags default to on; a zero bool from an absent key would disable them.
	v.SetDefault("monitor.enable_heartbeat", true)
	v.SetDefault("monitor.enable_network_information", true)
	v.SetDefault("monitor.enable_visibility_tracking", true)
	v.SetDefault("resolver.preserve_user_data", true)
	v.SetDefault("resolver.respect_entity_rules", true)

	err := v.ReadInConfig()
	if err != nil {
		return err
	}

	err = v.Unmarshal(c)
	if err != nil {
		return err
	}
	if c.Monitor == nil {
		c.Monitor = DefaultMonitorConfig()
	}
	c.Monitor.Normalize()
	if c.Resolver == nil {
		c.Resolver = DefaultResolverConfig()
	}
	c.Resolver.Normalize()

	c.Logger, err = getLogger(c.Logging, c.Version)

	return err
}

// getLogger spawns simple logger by the config
func getLogger(cfg *LoggingConfig, version string) (*zap.Logger, error) {
	if cfg == nil {
		return zap.NewNop(), nil
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		lvl = zap.NewAtomicLevel() // fallback to level info
	}
	config := zap.Config{
		Encoding:      cfg.Format,
		Level:         lvl,
		OutputPaths:   []string{cfg.Output},
		InitialFields: map[string]interface{}{"version": version},
		EncoderConfig: zap.NewDevelopmentEncoderConfig(),
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}
