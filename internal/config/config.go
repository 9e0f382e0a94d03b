package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lifxctl/internal/logging"
	"github.com/danmuck/lifxctl/internal/protocol"
	"github.com/danmuck/lifxctl/internal/transport"
)

// Config is the resolved client configuration.
type Config struct {
	Transport transport.Config
	Source    uint32
	LogLevel  string
	Devices   []Device
}

// Device is a named bulb so commands can say "kitchen" instead of a MAC.
type Device struct {
	Name   string
	Target protocol.Target
	Addr   string
}

type fileConfig struct {
	Broadcast    string       `toml:"broadcast"`
	Port         int          `toml:"port"`
	ListenAddr   string       `toml:"listen_addr"`
	Source       uint32       `toml:"source"`
	ReadTimeout  string       `toml:"read_timeout"`
	WriteTimeout string       `toml:"write_timeout"`
	LogLevel     string       `toml:"log_level"`
	Devices      []fileDevice `toml:"devices"`
}

type fileDevice struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
	Addr   string `toml:"addr"`
}

func Default() Config {
	return Config{
		Transport: transport.DefaultConfig(),
		LogLevel:  "info",
		Devices:   []Device{},
	}
}

// Load reads path on top of Default. Keys absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("broadcast") {
		cfg.Transport.BroadcastAddr = strings.TrimSpace(raw.Broadcast)
	}
	if meta.IsDefined("port") {
		cfg.Transport.Port = raw.Port
	}
	if meta.IsDefined("listen_addr") {
		cfg.Transport.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("source") {
		cfg.Source = raw.Source
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Transport.ReadTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Transport.WriteTimeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	for i, d := range raw.Devices {
		target, err := protocol.ParseTarget(d.Target)
		if err != nil {
			return Config{}, fmt.Errorf("devices[%d] target: %w", i, err)
		}
		cfg.Devices = append(cfg.Devices, Device{
			Name:   strings.TrimSpace(d.Name),
			Target: target,
			Addr:   strings.TrimSpace(d.Addr),
		})
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := cfg.Transport.Validate(); err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("config invalid log_level %q", cfg.LogLevel)
		}
	}
	seen := make(map[string]struct{}, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d] missing name", i)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("devices[%d] duplicate name %q", i, d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Addr == "" {
			return fmt.Errorf("devices[%d] missing addr", i)
		}
	}
	return nil
}

// Device returns the device called name.
func (c Config) Device(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}
