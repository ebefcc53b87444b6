package conf

import (
	"fmt"

	"github.com/squareup/rowstore/errors"
)

const (
	StorageTypePebble = "pebble"
	StorageTypeMemory = "memory"

	DefaultMetricsListenAddr = "localhost:2112"
)

type Config struct {
	DataDir           string `json:"data_dir,omitempty" help:"Directory holding the pebble store" default:""`
	StorageType       string `json:"storage_type,omitempty" help:"Storage backend for stored rows" enum:"pebble,memory" default:"pebble"`
	MetricsEnabled    bool   `json:"metrics_enabled,omitempty" help:"Export prometheus metrics over HTTP"`
	MetricsListenAddr string `json:"metrics_listen_addr,omitempty" help:"Address the prometheus exporter listens on" default:"localhost:2112"`
}

func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageTypePebble:
		if c.DataDir == "" {
			return errors.NewInvalidConfigurationError("DataDir must be specified for pebble storage")
		}
	case StorageTypeMemory:
	default:
		return errors.NewInvalidConfigurationError(fmt.Sprintf("StorageType must be one of %s or %s",
			StorageTypePebble, StorageTypeMemory))
	}
	if c.MetricsEnabled && c.MetricsListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsListenAddr must be specified when metrics are enabled")
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		StorageType:       StorageTypePebble,
		MetricsListenAddr: DefaultMetricsListenAddr,
	}
}

func NewTestConfig() *Config {
	return &Config{
		StorageType:       StorageTypeMemory,
		MetricsListenAddr: DefaultMetricsListenAddr,
	}
}
