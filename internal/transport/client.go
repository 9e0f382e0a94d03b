package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/lifxctl/internal/observability"
	"github.com/danmuck/lifxctl/internal/protocol"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxDatagram bounds one read; the largest catalogued message is 100 bytes.
const maxDatagram = 1024

var (
	ErrTimeout = errors.New("transport: timed out waiting for reply")
	ErrClosed  = errors.New("transport: client closed")
)

// Device is one discovery reply.
type Device struct {
	Target  protocol.Target
	Addr    *net.UDPAddr
	Service uint8
	Port    uint32
}

// Handler receives every decoded datagram in Listen. A non-nil error stops
// the loop and is returned from Listen.
type Handler func(addr *net.UDPAddr, msg *protocol.Message) error

type Option func(*Client)

// WithSource fixes the source identifier stamped on outgoing messages.
func WithSource(source uint32) Option {
	return func(c *Client) { c.source = source }
}

// WithCodec decodes replies against a custom registry.
func WithCodec(codec *protocol.Codec) Option {
	return func(c *Client) { c.codec = codec }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is a UDP endpoint speaking the LIFX LAN protocol. Send may be
// called concurrently; Request, Discover and Listen take turns reading.
type Client struct {
	cfg     Config
	conn    *net.UDPConn
	codec   *protocol.Codec
	source  uint32
	seq     atomic.Uint32
	logger  zerolog.Logger
	packets observability.PacketLogger
	readMu  sync.Mutex
	closed  atomic.Bool
}

// Dial binds a UDP socket on cfg.ListenAddr.
func Dial(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	laddr, err := net.ResolveUDPAddr("udp4", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	c := &Client{
		cfg:    cfg,
		conn:   conn,
		codec:  protocol.DefaultCodec(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	for c.source == 0 {
		c.source = rand.Uint32()
	}
	c.packets = observability.NewPacketLogger(c.logger)
	c.logger.Debug().
		Str("local", conn.LocalAddr().String()).
		Uint32("source", c.source).
		Msg("transport.Dial")
	return c, nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) LocalAddr() *net.UDPAddr { return c.conn.LocalAddr().(*net.UDPAddr) }
func (c *Client) Source() uint32          { return c.source }
func (c *Client) Config() Config          { return c.cfg }

// Send stamps the client source and the next sequence number on msg and
// writes it to addr. It does not wait for a reply.
func (c *Client) Send(ctx context.Context, addr *net.UDPAddr, msg *protocol.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := msg.Set("source", c.source); err != nil {
		return err
	}
	if err := msg.Set("sequence", uint8(c.seq.Add(1))); err != nil {
		return err
	}
	raw, err := msg.Serialize()
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(deadline(ctx, c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if _, err := c.conn.WriteToUDP(raw, addr); err != nil {
		c.logger.Error().Err(err).Str("addr", addr.String()).Str("name", msg.TypeName()).Msg("transport.Send")
		return fmt.Errorf("transport: send %s: %w", msg.TypeName(), err)
	}
	c.packets.Packet(observability.DirectionSent, addr, msg)
	return nil
}

// Request sends msg with res_required set and waits for a reply of type
// want carrying the same source and sequence. Other datagrams are skipped.
// There is no retry; a lost packet surfaces as ErrTimeout.
func (c *Client) Request(ctx context.Context, addr *net.UDPAddr, msg *protocol.Message, want uint16) (*protocol.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	start := time.Now()
	name := msg.TypeName()
	if err := msg.Set("res_required", true); err != nil {
		return nil, err
	}
	if err := c.Send(ctx, addr, msg); err != nil {
		observability.RecordRequest(name, observability.OutcomeError, time.Since(start))
		return nil, err
	}
	sent := msg.Header()

	ctx, cancel := context.WithDeadline(ctx, deadline(ctx, c.cfg.ReadTimeout))
	defer cancel()
	var reply *protocol.Message
	err := c.readLoop(ctx, func(_ *net.UDPAddr, in *protocol.Message) (bool, error) {
		h := in.Header()
		if h.Source != sent.Source || h.Sequence != sent.Sequence || in.TypeID() != want {
			return false, nil
		}
		reply = in
		return true, nil
	})
	switch {
	case err == nil:
		observability.RecordRequest(name, observability.OutcomeOK, time.Since(start))
		return reply, nil
	case errors.Is(err, context.DeadlineExceeded):
		observability.RecordRequest(name, observability.OutcomeTimeout, time.Since(start))
		c.logger.Warn().Str("addr", addr.String()).Str("name", name).Uint16("want", want).Msg("transport.Request timeout")
		return nil, fmt.Errorf("%w: %s from %s", ErrTimeout, name, addr)
	default:
		observability.RecordRequest(name, observability.OutcomeError, time.Since(start))
		return nil, err
	}
}

// Discover broadcasts get_service and collects state_service replies until
// ctx ends, or ReadTimeout when ctx has no deadline. Devices are unique by
// target and sorted by it.
func (c *Client) Discover(ctx context.Context) ([]Device, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	msg, err := c.codec.Build(schema.TypeGetService, protocol.Target{})
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx, c.cfg.Broadcast(), msg); err != nil {
		return nil, err
	}
	sent := msg.Header()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}
	found := map[protocol.Target]Device{}
	err = c.readLoop(ctx, func(addr *net.UDPAddr, in *protocol.Message) (bool, error) {
		h := in.Header()
		if in.TypeID() != schema.TypeStateService || h.Source != sent.Source {
			return false, nil
		}
		service, err := in.Get("service")
		if err != nil {
			return false, err
		}
		port, err := in.Get("port")
		if err != nil {
			return false, err
		}
		found[h.Target] = Device{
			Target:  h.Target,
			Addr:    addr,
			Service: uint8(service.(uint64)),
			Port:    uint32(port.(uint64)),
		}
		return false, nil
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	devices := make([]Device, 0, len(found))
	for _, d := range found {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Target.String() < devices[j].Target.String()
	})
	c.logger.Info().Int("devices", len(devices)).Msg("transport.Discover")
	return devices, nil
}

// Listen decodes every datagram until ctx ends or fn returns an error.
// Undecodable datagrams are counted and skipped. Context cancellation
// returns nil.
func (c *Client) Listen(ctx context.Context, fn Handler) error {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	err := c.readLoop(ctx, func(addr *net.UDPAddr, in *protocol.Message) (bool, error) {
		return false, fn(addr, in)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// readLoop feeds decoded datagrams to accept until it reports done, returns
// an error, or ctx ends. The caller holds readMu.
func (c *Client) readLoop(ctx context.Context, accept func(*net.UDPAddr, *protocol.Message) (bool, error)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, hasDeadline := ctx.Deadline()
		if err := c.conn.SetReadDeadline(d); err != nil {
			return err
		}
		// Re-check after arming so a cancel racing the line above still
		// interrupts the read.
		if err := ctx.Err(); err != nil {
			return err
		}
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if hasDeadline && !time.Now().Before(d) {
					return context.DeadlineExceeded
				}
				continue
			}
			if c.closed.Load() {
				return ErrClosed
			}
			return fmt.Errorf("transport: read: %w", err)
		}
		in, err := c.codec.FromBytes(buf[:n])
		if err != nil {
			c.packets.DecodeFailure(addr, n, err)
			continue
		}
		c.packets.Packet(observability.DirectionReceived, addr, in)
		done, err := accept(addr, in)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// deadline picks the earlier of ctx's deadline and now+fallback.
func deadline(ctx context.Context, fallback time.Duration) time.Time {
	d := time.Now().Add(fallback)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
