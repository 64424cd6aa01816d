package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pcsgw.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
software_version = "1.0.0"
config_dir = "/etc/pcsgw"
lan_a_interface = "eth0"
lan_b_interface = "eth1"
nameplate_file = "/etc/pcsgw/nameplate.csv"
field_map_file = "/etc/pcsgw/fields.json"
byte_position_file = "/etc/pcsgw/positions.json"
plc_listen_addr = "0.0.0.0:9100"
plc_egress_addr = "127.0.0.1:9101"
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidityMS != 5000 {
		t.Fatalf("expected default validity interval 5000, got %d", c.ValidityMS)
	}
	if c.WorkerCount != 4 {
		t.Fatalf("expected default worker count 4, got %d", c.WorkerCount)
	}
	if c.RetransmitFloorMS != 2 {
		t.Fatalf("expected default retransmit floor 2ms, got %d", c.RetransmitFloorMS)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	const doc = `
software_version = "1.0.0"
config_dir = "/etc/pcsgw"
`
	if _, err := Load(writeConfig(t, doc)); err == nil {
		t.Fatal("expected error for missing required keys")
	}
}

func TestLoadRespectsExplicitOverrides(t *testing.T) {
	doc := minimalConfig + "\nvalidity_interval_ms = 2500\nworker_count = 8\n"
	c, err := Load(writeConfig(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidityMS != 2500 || c.WorkerCount != 8 {
		t.Fatalf("expected explicit overrides to stick, got %+v", c)
	}
}
