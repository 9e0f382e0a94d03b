package app

import (
	"fmt"

	"github.com/danmuck/lifxctl/internal/config"
	"github.com/urfave/cli/v2"
)

const defaultConfigPath = "lifxctl.toml"

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Create or check a lifxctl config file",
		Subcommands: []*cli.Command{
			configInitCmd(),
			configValidateCmd(),
		},
	}
}

func configInitCmd() *cli.Command {
	var (
		output = defaultConfigPath
		force  bool
	)
	return &cli.Command{
		Name:  "init",
		Usage: "Write a config template",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output path", Value: output, Destination: &output},
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file", Destination: &force},
		},
		Action: func(ctx *cli.Context) error {
			if err := config.WriteTemplate(output, force); err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "wrote config template to %s\n", output)
			return nil
		},
	}
}

func configValidateCmd() *cli.Command {
	input := defaultConfigPath
	return &cli.Command{
		Name:  "validate",
		Usage: "Load and validate a config file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Config path", Value: input, Destination: &input},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "validated config at %s (%d devices)\n", input, len(cfg.Devices))
			return nil
		},
	}
}
