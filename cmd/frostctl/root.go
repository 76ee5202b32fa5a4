package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/frostctl/internal/bridge"
	"github.com/danmuck/frostctl/internal/config"
	"github.com/danmuck/frostctl/internal/device"
	"github.com/danmuck/frostctl/internal/logging"
	"github.com/danmuck/frostctl/internal/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries resolved settings and flag values across subcommands.
type app struct {
	out io.Writer

	configPath string
	addr       string
	generation string
	path       string

	cfg settings
	// dial opens the device transport; tests swap in a replay.
	dial func(settings) (device.Transport, func() error)
}

func newApp(out io.Writer) *app {
	return &app{
		out: out,
		dial: func(cfg settings) (device.Transport, func() error) {
			t := transport.NewTCP(cfg.DeviceAddr, cfg.Transport)
			return t, t.Close
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "frostctl",
		Short:         "Drive FROST DKG and signing ceremonies on a secure element",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "frostctl TOML config")
	flags.StringVar(&a.addr, "addr", "", "device APDU address (host:port)")
	flags.StringVar(&a.generation, "generation", "", "protocol generation: legacy or paged")
	flags.StringVar(&a.path, "path", "", "derivation path sent as chunk context")

	cmd.AddCommand(
		newVersionCmd(a),
		newKeysCmd(a),
		newSignCmd(a),
		newReviewTxCmd(a),
		newDkgCmd(a),
		newBridgeCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

func (a *app) resolve(cmd *cobra.Command) error {
	cfg, err := loadSettings(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("generation") {
		gen, err := device.GenerationByName(a.generation)
		if err != nil {
			return err
		}
		chunkSize := cfg.Generation.ChunkSize
		cfg.Generation = gen
		cfg.Generation.ChunkSize = chunkSize
		if !flags.Changed("path") {
			cfg.Path = gen.ContextPath
		}
	}
	if flags.Changed("addr") {
		cfg.DeviceAddr = strings.TrimSpace(a.addr)
	}
	if flags.Changed("path") {
		cfg.Path = strings.TrimSpace(a.path)
	}
	if os.Getenv(logging.EnvLogLevel) == "" {
		zerolog.SetGlobalLevel(cfg.LogLevel)
	}
	a.cfg = cfg
	return nil
}

// withDriver opens the device for the duration of fn.
func (a *app) withDriver(fn func(d *device.Driver) error) error {
	t, closeFn := a.dial(a.cfg)
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	d, err := device.New(t, a.cfg.Generation, device.WithPath(a.cfg.Path))
	if err != nil {
		return err
	}
	return fn(d)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBridgeCmd(a *app) *cobra.Command {
	var bridgeConfig string
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve the device over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Bridge
			if bridgeConfig != "" {
				loaded, err := config.LoadBridgeConfig(bridgeConfig)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := config.ValidateBridgeConfig(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.withDriver(func(d *device.Driver) error {
				return bridge.New(cfg, d).Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&bridgeConfig, "bridge-config", "", "bridge TOML config (overrides bridge_* keys)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	var kind string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "wrote %s template to %s\n", kind, args[0])
			return err
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", "frostctl", "template kind: frostctl, bridge or ceremony")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
