package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/danmuck/lifxctl/internal/observability"
	"github.com/danmuck/lifxctl/internal/protocol"
	"github.com/danmuck/lifxctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// endpoint is where a unicast command goes.
type endpoint struct {
	device string
	addr   string
	target string
}

func (e *endpoint) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "device", Aliases: []string{"d"}, Usage: "Named device from the config", Destination: &e.device},
		&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Device host[:port]", Destination: &e.addr},
		&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Device MAC; empty means broadcast", Destination: &e.target},
	}
}

// resolve prefers explicit --addr/--target over the named device.
func (e *endpoint) resolve(st *state) (*net.UDPAddr, protocol.Target, error) {
	addr, targetText := e.addr, e.target
	var target protocol.Target
	if e.device != "" {
		dev, ok := st.cfg.Device(e.device)
		if !ok {
			return nil, target, fmt.Errorf("unknown device %q", e.device)
		}
		if addr == "" {
			addr = dev.Addr
		}
		target = dev.Target
	}
	if addr == "" {
		return nil, target, fmt.Errorf("--addr or --device is required")
	}
	if targetText != "" {
		t, err := protocol.ParseTarget(targetText)
		if err != nil {
			return nil, target, err
		}
		target = t
	}
	udp, err := st.cfg.Transport.ResolveAddr(addr)
	if err != nil {
		return nil, target, fmt.Errorf("resolve %q: %w", addr, err)
	}
	return udp, target, nil
}

func discoverCmd(st *state) *cli.Command {
	var timeout time.Duration
	return &cli.Command{
		Name:  "discover",
		Usage: "Broadcast get_service and list the devices that answer",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Usage: "How long to collect replies", Value: 2 * time.Second, Destination: &timeout},
		},
		Action: func(ctx *cli.Context) error {
			client, err := st.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			dctx, cancel := context.WithTimeout(ctx.Context, timeout)
			defer cancel()
			devices, err := client.Discover(dctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tADDR\tSERVICE\tPORT")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.Target, d.Addr.IP, d.Service, d.Port)
			}
			return w.Flush()
		},
	}
}

func sendCmd(st *state) *cli.Command {
	var (
		ep   endpoint
		sets cli.StringSlice
		ack  bool
	)
	flags := append(ep.flags(),
		&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "Field assignment name=value, repeatable", Destination: &sets},
		&cli.BoolFlag{Name: "ack", Usage: "Set ack_required", Destination: &ack},
	)
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one message without waiting for a reply",
		ArgsUsage: "<type id or name>",
		Flags:     flags,
		Action: func(ctx *cli.Context) error {
			addr, target, err := ep.resolve(st)
			if err != nil {
				return err
			}
			msg, err := buildMessage(ctx.Args().First(), target, sets.Value())
			if err != nil {
				return err
			}
			if err := msg.Set("ack_required", ack); err != nil {
				return err
			}
			client, err := st.dial()
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Send(ctx.Context, addr, msg)
		},
	}
}

func getCmd(st *state) *cli.Command {
	var (
		ep     endpoint
		sets   cli.StringSlice
		want   string
		format = formatText
	)
	flags := append(ep.flags(),
		&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "Field assignment name=value, repeatable", Destination: &sets},
		&cli.StringFlag{Name: "want", Aliases: []string{"w"}, Usage: "Reply type id or name", Required: true, Destination: &want},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: text or yaml", Value: format, Destination: &format},
	)
	return &cli.Command{
		Name:      "get",
		Usage:     "Send a request and dump the matching reply",
		ArgsUsage: "<type id or name>",
		Flags:     flags,
		Action: func(ctx *cli.Context) error {
			addr, target, err := ep.resolve(st)
			if err != nil {
				return err
			}
			wantSchema, err := resolveSchema(want)
			if err != nil {
				return err
			}
			msg, err := buildMessage(ctx.Args().First(), target, sets.Value())
			if err != nil {
				return err
			}
			client, err := st.dial()
			if err != nil {
				return err
			}
			defer client.Close()
			reply, err := client.Request(ctx.Context, addr, msg, wantSchema.TypeID())
			if err != nil {
				return err
			}
			return dump(ctx.App.Writer, reply, format)
		},
	}
}

func listenCmd(st *state) *cli.Command {
	var metricsAddr, record string
	return &cli.Command{
		Name:  "listen",
		Usage: "Print every message received on the client socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address", EnvVars: []string{envPrefix + "_METRICS_ADDR"}, Destination: &metricsAddr},
			&cli.StringFlag{Name: "record", Usage: "Append every received message to this capture file", Destination: &record},
		},
		Action: func(ctx *cli.Context) error {
			client, err := st.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}
			var capture io.Writer
			if record != "" {
				f, err := os.OpenFile(record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				capture = f
			}
			log.Info().Str("local", client.LocalAddr().String()).Str("record", record).Msg("lifxctl.listen")
			return client.Listen(ctx.Context, func(addr *net.UDPAddr, msg *protocol.Message) error {
				if capture != nil {
					raw, err := msg.Serialize()
					if err != nil {
						return err
					}
					if err := frame.WriteFrame(capture, raw, frame.DefaultLimits()); err != nil {
						return err
					}
				}
				h := msg.Header()
				_, err := fmt.Fprintf(ctx.App.Writer, "%s type=%d name=%s target=%s source=%d sequence=%d\n",
					addr, msg.TypeID(), msg.TypeName(), h.Target, h.Source, h.Sequence)
				return err
			})
		},
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("lifxctl.metrics")
		}
	}()
	log.Info().Str("addr", addr).Msg("lifxctl.metrics serving")
	return srv
}
