package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/lifxctl/internal/testutil/testlog"
	"github.com/danmuck/lifxctl/internal/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifxctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
broadcast = "192.168.1.255"
read_timeout = "750ms"
source = 42

[[devices]]
name = "kitchen"
target = "d0:73:d5:00:00:01"
addr = "192.168.1.40"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport.BroadcastAddr != "192.168.1.255" {
		t.Fatalf("unexpected broadcast: %q", cfg.Transport.BroadcastAddr)
	}
	if cfg.Transport.ReadTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected read timeout: %v", cfg.Transport.ReadTimeout)
	}
	if cfg.Transport.Port != transport.DefaultPort || cfg.Transport.WriteTimeout != 2*time.Second {
		t.Fatalf("defaults not kept: %+v", cfg.Transport)
	}
	if cfg.Source != 42 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected source/log level: %d %q", cfg.Source, cfg.LogLevel)
	}
	dev, ok := cfg.Device("kitchen")
	if !ok {
		t.Fatalf("kitchen device missing")
	}
	if dev.Target.String() != "d0:73:d5:00:00:01" || dev.Addr != "192.168.1.40" {
		t.Fatalf("unexpected device: %+v", dev)
	}
	if _, ok := cfg.Device("attic"); ok {
		t.Fatalf("unexpected attic device")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad duration":  `read_timeout = "soon"`,
		"bad port":      `port = 70000`,
		"unknown key":   `colour = "red"`,
		"bad level":     `log_level = "loud"`,
		"bad target":    "[[devices]]\nname = \"a\"\ntarget = \"zz\"\naddr = \"10.0.0.1\"",
		"missing addr":  "[[devices]]\nname = \"a\"\ntarget = \"d0:73:d5:00:00:01\"",
		"duplicate dev": "[[devices]]\nname = \"a\"\naddr = \"10.0.0.1\"\n[[devices]]\nname = \"a\"\naddr = \"10.0.0.2\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "lifxctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Transport != transport.DefaultConfig() {
		t.Fatalf("template transport differs from defaults: %+v", cfg.Transport)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].Name != "kitchen" {
		t.Fatalf("unexpected template devices: %+v", cfg.Devices)
	}
}
