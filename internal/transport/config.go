package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is the UDP port LIFX devices listen on.
const DefaultPort = 56700

var (
	ErrInvalidPort          = errors.New("transport: invalid port")
	ErrInvalidBroadcastAddr = errors.New("transport: invalid broadcast address")
	ErrInvalidTimeout       = errors.New("transport: invalid timeout")
)

// Config defines the client socket defaults.
type Config struct {
	Port          int
	BroadcastAddr string
	ListenAddr    string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		BroadcastAddr: "255.255.255.255",
		ListenAddr:    ":0",
		ReadTimeout:   2 * time.Second,
		WriteTimeout:  2 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if net.ParseIP(strings.TrimSpace(c.BroadcastAddr)) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidBroadcastAddr, c.BroadcastAddr)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: read=%v write=%v", ErrInvalidTimeout, c.ReadTimeout, c.WriteTimeout)
	}
	return nil
}

// Broadcast returns the address discovery packets are sent to.
func (c Config) Broadcast() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(strings.TrimSpace(c.BroadcastAddr)), Port: c.Port}
}

// ResolveAddr accepts "host" or "host:port"; a bare host uses c.Port.
func (c Config) ResolveAddr(addr string) (*net.UDPAddr, error) {
	addr = strings.TrimSpace(addr)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(c.Port))
	}
	return net.ResolveUDPAddr("udp4", addr)
}
