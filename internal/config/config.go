// Package config loads the process-wide configuration surface from
// environment variables (prefix GPIOBRIDGE_), with defaults for every
// field, via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface.
type Config struct {
	HardwareSerialOverride      string `mapstructure:"hardware_serial_override"`
	SimulateHardware            bool   `mapstructure:"simulate_hardware"`
	PinTableOverridePath        string `mapstructure:"pin_table_override_path"`
	PinReadIntervalMs           int    `mapstructure:"pin_read_interval_ms"`
	HardwareSyncWriteIntervalMs int    `mapstructure:"hardware_sync_write_interval_ms"`
	HeartbeatIntervalMs         int    `mapstructure:"heartbeat_interval_ms"`
	ScheduleReevaluateInterval  int    `mapstructure:"schedule_reevaluate_interval_ms"`
	PWMDefaultFrequencyHz       int    `mapstructure:"pwm_default_frequency_hz"`
	RPCTimeoutMs                int    `mapstructure:"rpc_timeout_ms"`

	MQTTBrokerURL string `mapstructure:"mqtt_broker_url"`
	MQTTClientID  string `mapstructure:"mqtt_client_id"`

	Logger LoggerConfig `mapstructure:"logger"`
}

// LoggerConfig mirrors logger.Config's fields for env-driven overrides.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	LogDir string `mapstructure:"log_dir"`
}

func (c Config) PinReadInterval() time.Duration {
	return time.Duration(c.PinReadIntervalMs) * time.Millisecond
}

func (c Config) HardwareSyncWriteInterval() time.Duration {
	return time.Duration(c.HardwareSyncWriteIntervalMs) * time.Millisecond
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

func (c Config) ScheduleReevaluateIntervalDuration() time.Duration {
	return time.Duration(c.ScheduleReevaluateInterval) * time.Millisecond
}

func (c Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMs) * time.Millisecond
}

// Load reads configuration from environment variables, falling back
// to the documented defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GPIOBRIDGE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hardware_serial_override", "")
	v.SetDefault("simulate_hardware", false)
	v.SetDefault("pin_table_override_path", "")
	v.SetDefault("pin_read_interval_ms", 5000)
	v.SetDefault("hardware_sync_write_interval_ms", 30000)
	v.SetDefault("heartbeat_interval_ms", 30000)
	v.SetDefault("schedule_reevaluate_interval_ms", 60000)
	v.SetDefault("pwm_default_frequency_hz", 1000)
	v.SetDefault("rpc_timeout_ms", 10000)

	v.SetDefault("mqtt_broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt_client_id", "gpio-bridge")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
}
