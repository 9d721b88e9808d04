package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/formorer/ProxLB/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plbd.ini")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[proxmox]
host = pve.example.com
user = plb@pve
token_value = secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Proxmox.Port != 8006 {
		t.Errorf("expected default port 8006, got %d", cfg.Proxmox.Port)
	}
	if !cfg.Proxmox.VerifySSL {
		t.Errorf("expected verify_ssl default true")
	}
	if cfg.Balancing.Method != "memory" || cfg.Balancing.Mode != "used" {
		t.Errorf("expected default policy memory/used, got %s/%s", cfg.Balancing.Method, cfg.Balancing.Mode)
	}
	if cfg.Balancing.Balanciness != 10 {
		t.Errorf("expected default balanciness 10, got %d", cfg.Balancing.Balanciness)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.History.Enabled || cfg.Cache.Enabled || cfg.ControlAPI.Enabled {
		t.Errorf("expected ambient services disabled by default: %+v / %+v / %+v", cfg.History, cfg.Cache, cfg.ControlAPI)
	}
}

func TestLoad_MissingRequiredField(t *testing.T) {
	path := writeConfig(t, `
[proxmox]
user = plb@pve
token_value = secret
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing proxmox.host")
	} else if plbErr, ok := err.(*domain.PLBError); !ok || plbErr.Kind != domain.ErrConfigKey {
		t.Fatalf("expected ConfigKey error, got %v", err)
	}
}

func TestLoad_InvalidPolicy(t *testing.T) {
	path := writeConfig(t, `
[proxmox]
host = pve.example.com
user = plb@pve
token_value = secret

[balancing]
method = bogus
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid balancing method")
	} else if plbErr, ok := err.(*domain.PLBError); !ok || plbErr.Kind != domain.ErrInvalidPolicy {
		t.Fatalf("expected InvalidPolicy error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.ini")); err == nil {
		t.Fatal("expected error for missing config file")
	} else if plbErr, ok := err.(*domain.PLBError); !ok || plbErr.Kind != domain.ErrConfigMissing {
		t.Fatalf("expected ConfigMissing error, got %v", err)
	}
}

func TestLoad_IgnoreListsAndControlAPI(t *testing.T) {
	path := writeConfig(t, `
[proxmox]
host = pve.example.com
user = plb@pve
token_value = secret

[balancing]
ignore_nodes = pve-quarantine
ignore_vms = test-,scratch-

[control_api]
enabled = true
listen = :9090
jwt_secret = sekrit
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Balancing.IgnoreNodes) != 1 || cfg.Balancing.IgnoreNodes[0] != "pve-quarantine" {
		t.Errorf("unexpected ignore_nodes: %+v", cfg.Balancing.IgnoreNodes)
	}
	if len(cfg.Balancing.IgnoreVMs) != 2 {
		t.Errorf("unexpected ignore_vms: %+v", cfg.Balancing.IgnoreVMs)
	}
	if !cfg.ControlAPI.Enabled || cfg.ControlAPI.Listen != ":9090" {
		t.Errorf("unexpected control_api config: %+v", cfg.ControlAPI)
	}
}
