package app

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/lifxctl/internal/protocol"
	"github.com/danmuck/lifxctl/internal/protocol/frame"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
	"github.com/urfave/cli/v2"
)

func typesCmd() *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List every registered message type",
		Action: func(ctx *cli.Context) error {
			reg := protocol.DefaultCodec().Registry()
			w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDIR\tSIZE\tFIELDS")
			for _, s := range reg.Schemas() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					s.TypeID(), s.Name(), s.Direction(), protocol.HeaderSize+s.Size(),
					strings.Join(s.FieldNames(), ","))
			}
			return w.Flush()
		},
	}
}

func buildCmd() *cli.Command {
	var (
		target string
		sets   cli.StringSlice
	)
	return &cli.Command{
		Name:      "build",
		Usage:     "Build a message and print it as hex",
		ArgsUsage: "<type id or name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Device MAC; empty means broadcast", Destination: &target},
			&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "Field assignment name=value, repeatable", Destination: &sets},
		},
		Action: func(ctx *cli.Context) error {
			tgt, err := protocol.ParseTarget(target)
			if err != nil {
				return err
			}
			msg, err := buildMessage(ctx.Args().First(), tgt, sets.Value())
			if err != nil {
				return err
			}
			raw, err := msg.Serialize()
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(raw))
			return nil
		},
	}
}

func decodeCmd() *cli.Command {
	var (
		format = formatText
		file   string
	)
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a hex message, or a capture file, and dump its fields",
		ArgsUsage: "<hex>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: text or yaml", Value: format, Destination: &format},
			&cli.StringFlag{Name: "file", Usage: "Capture file written by listen --record; - reads stdin", Destination: &file},
		},
		Action: func(ctx *cli.Context) error {
			if file != "" {
				return decodeCapture(ctx, file, format)
			}
			raw, err := parseHex(strings.Join(ctx.Args().Slice(), ""))
			if err != nil {
				return err
			}
			msg, err := protocol.FromBytes(raw)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			return dump(ctx.App.Writer, msg, format)
		},
	}
}

func decodeCapture(ctx *cli.Context, path, format string) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	r := bufio.NewReader(in)
	for i := 0; ; i++ {
		raw, err := frame.ReadFrame(r, frame.DefaultLimits())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture frame %d: %w", i, err)
		}
		msg, err := protocol.FromBytes(raw)
		if err != nil {
			return fmt.Errorf("capture frame %d: %w", i, err)
		}
		if format == formatYAML {
			fmt.Fprintln(ctx.App.Writer, "---")
		}
		if err := dump(ctx.App.Writer, msg, format); err != nil {
			return err
		}
	}
}

// resolveSchema accepts a numeric id or a registered name.
func resolveSchema(arg string) (*schema.Schema, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("message type is required")
	}
	reg := protocol.DefaultCodec().Registry()
	if id, err := strconv.ParseUint(arg, 10, 16); err == nil {
		if s, ok := reg.LookupID(uint16(id)); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %d", protocol.ErrUnknownTypeID, id)
	}
	if s, ok := reg.LookupName(arg); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownTypeID, arg)
}

func buildMessage(typeArg string, target protocol.Target, sets []string) (*protocol.Message, error) {
	s, err := resolveSchema(typeArg)
	if err != nil {
		return nil, err
	}
	msg, err := protocol.Build(s.TypeID(), target)
	if err != nil {
		return nil, err
	}
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected name=value", kv)
		}
		if err := msg.SetText(strings.TrimSpace(name), value); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "", "\n", "").Replace(s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return raw, nil
}
