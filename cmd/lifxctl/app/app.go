package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/lifxctl/internal/config"
	"github.com/danmuck/lifxctl/internal/logging"
	"github.com/danmuck/lifxctl/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const envPrefix = "LIFXCTL"

// state is shared by every command of one App run.
type state struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func Instance() *cli.App {
	st := &state{cfg: config.Default()}
	return &cli.App{
		Name:  "lifxctl",
		Usage: "Build, decode and exchange LIFX LAN protocol messages",
		Commands: []*cli.Command{
			typesCmd(),
			buildCmd(),
			decodeCmd(),
			discoverCmd(st),
			sendCmd(st),
			getCmd(st),
			listenCmd(st),
			configCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to a lifxctl TOML config",
				EnvVars:     []string{envPrefix + "_CONFIG"},
				Destination: &st.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Verbosity of log, valid values are: trace, debug, info, warn, error, off",
				EnvVars:     []string{logging.EnvLogLevel},
				Destination: &st.logLevel,
			},
		},
		Before: func(ctx *cli.Context) error {
			logging.ConfigureRuntime()
			if st.configPath != "" {
				cfg, err := config.Load(st.configPath)
				if err != nil {
					return err
				}
				st.cfg = cfg
			}
			level := st.logLevel
			if level == "" {
				level = st.cfg.LogLevel
			}
			if lvl, ok := logging.ParseLevel(level); ok {
				zerolog.SetGlobalLevel(lvl)
			} else if strings.TrimSpace(level) != "" {
				return fmt.Errorf("unknown log level %q", level)
			}
			log.Debug().Str("config", st.configPath).Msg("lifxctl.start")
			return nil
		},
	}
}

func Run(ctx context.Context, args []string) error {
	return Instance().RunContext(ctx, args)
}

// dial opens a transport client from the loaded config.
func (st *state) dial() (*transport.Client, error) {
	var opts []transport.Option
	if st.cfg.Source != 0 {
		opts = append(opts, transport.WithSource(st.cfg.Source))
	}
	return transport.Dial(st.cfg.Transport, opts...)
}
