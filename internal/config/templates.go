package config

import (
	"fmt"
	"os"

	"github.com/danmuck/lifxctl/internal/transport"
	"github.com/pelletier/go-toml/v2"
)

// Template renders the default configuration with one example device.
func Template() (string, error) {
	def := transport.DefaultConfig()
	file := fileConfig{
		Broadcast:    def.BroadcastAddr,
		Port:         def.Port,
		ListenAddr:   def.ListenAddr,
		ReadTimeout:  def.ReadTimeout.String(),
		WriteTimeout: def.WriteTimeout.String(),
		LogLevel:     "info",
		Devices: []fileDevice{
			{Name: "kitchen", Target: "d0:73:d5:00:00:01", Addr: "192.168.1.40"},
		},
	}
	out, err := toml.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return string(out), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
