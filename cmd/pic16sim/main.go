// Command pic16sim runs the PIC16 emulator core against a file-based
// GUI bridge: the core owns program/data memory and the step/run
// loop, the bridge shuttles line-delimited commands to and from two
// files in a shared directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pic16sim/internal/bridge"
	"pic16sim/internal/config"
	"pic16sim/internal/cpu"
	"pic16sim/internal/databus"
	"pic16sim/internal/rom"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		bridgeDir  string
		inName     string
		outName    string
		periodMS   int
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "pic16sim",
		Short: "PIC16-family microcontroller emulator with a file-based GUI bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("bridge-dir") {
				cfg.BridgeDir = bridgeDir
			}
			if cmd.Flags().Changed("in") {
				cfg.InboundFile = inName
			}
			if cmd.Flags().Changed("out") {
				cfg.OutboundFile = outName
			}
			if cmd.Flags().Changed("period-ms") {
				cfg.FramePeriodMS = periodMS
			}

			return run(cfg, verbose)
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	root.Flags().StringVar(&bridgeDir, "bridge-dir", "", "directory holding the GUI bridge files")
	root.Flags().StringVar(&inName, "in", "", "inbound bridge file name")
	root.Flags().StringVar(&outName, "out", "", "outbound bridge file name")
	root.Flags().IntVar(&periodMS, "period-ms", 0, "instruction period in milliseconds before XTAL is configured")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at every level instead of warnings only")

	return root
}

func run(cfg config.Config, verbose bool) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	toCore := make(chan string, 64)
	fromCore := make(chan string, 64)

	c := cpu.New(&rom.Bus{}, &databus.Bus{}, toCore, fromCore)
	c.Log = log
	c.Period = time.Duration(cfg.FramePeriodMS) * time.Millisecond
	c.Reset()

	br, err := bridge.New(cfg.BridgeDir, cfg.InboundFile, cfg.OutboundFile, toCore, fromCore)
	if err != nil {
		return err
	}
	br.Log = log

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- br.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		default:
			c.Update(time.Now())
		}
	}
}
