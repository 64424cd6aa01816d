// Package config reads the gateway's key-value configuration file (spec.md
// §6.5) using github.com/BurntSushi/toml, the ecosystem library pulled in
// for this ambient concern because neither the teacher nor the rest of the
// pack carries a config-file reader.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the fully-parsed, validated gateway configuration. Every string
// field listed in requiredStringFields is a required key (spec.md §6.5:
// "Missing required keys abort startup."); the numeric fields fall back to
// a default when unset or non-positive, and MetricsListenAddr is optional.
type Config struct {
	SoftwareVersion string `toml:"software_version"`
	ConfigDir       string `toml:"config_dir"`
	LANAInterface   string `toml:"lan_a_interface"`
	LANBInterface   string `toml:"lan_b_interface"`
	ValidityMS      int64  `toml:"validity_interval_ms"`

	NameplateFile      string `toml:"nameplate_file"`
	FieldMapFile       string `toml:"field_map_file"`
	BytePositionFile   string `toml:"byte_position_file"`
	PLCListenAddr      string `toml:"plc_listen_addr"`
	PLCEgressAddr      string `toml:"plc_egress_addr"`
	WorkerCount        int    `toml:"worker_count"`
	RetransmitFloorMS  int64  `toml:"retransmit_floor_ms"`
	TTLGraceMS         int64  `toml:"ttl_grace_ms"`
	MetricsListenAddr  string `toml:"metrics_listen_addr"` // optional: empty disables the exporter
}

var requiredStringFields = map[string]func(*Config) string{
	"software_version": func(c *Config) string { return c.SoftwareVersion },
	"config_dir":       func(c *Config) string { return c.ConfigDir },
	"lan_a_interface":  func(c *Config) string { return c.LANAInterface },
	"lan_b_interface":  func(c *Config) string { return c.LANBInterface },
	"nameplate_file":   func(c *Config) string { return c.NameplateFile },
	"field_map_file":   func(c *Config) string { return c.FieldMapFile },
	"byte_position_file": func(c *Config) string { return c.BytePositionFile },
	"plc_listen_addr":  func(c *Config) string { return c.PLCListenAddr },
	"plc_egress_addr":  func(c *Config) string { return c.PLCEgressAddr },
}

// Load reads and validates path, applying defaults for any optional field
// left unset.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := c.applyDefaultsAndValidate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaultsAndValidate() error {
	for key, get := range requiredStringFields {
		if get(c) == "" {
			return fmt.Errorf("config: missing required key %q", key)
		}
	}
	if c.ValidityMS <= 0 {
		c.ValidityMS = 5000
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.RetransmitFloorMS <= 0 {
		c.RetransmitFloorMS = 2
	}
	if c.TTLGraceMS <= 0 {
		c.TTLGraceMS = 5000
	}
	return nil
}
