package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atarist-core/emucore/engine"
	"github.com/atarist-core/emucore/logger"
	"github.com/atarist-core/emucore/media"
	"github.com/atarist-core/emucore/slo"
)

type serveOpts struct {
	root      string
	machine   string
	profile   string
	romID     string
	romPath   string
	floppy    string
	dashboard string
}

func serveCmd() *cobra.Command {
	var o serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start a session and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(o)
		},
	}

	cmd.Flags().StringVar(&o.root, "root", defaultRoot(), "data directory")
	cmd.Flags().StringVar(&o.machine, "machine", "atari_st", "machine to emulate")
	cmd.Flags().StringVar(&o.profile, "profile", "st_520_pal", "machine profile")
	cmd.Flags().StringVar(&o.romID, "rom-id", "rom.tos.1.04.uk", "catalog id of the TOS image")
	cmd.Flags().StringVar(&o.romPath, "rom", "", "path to the resolved TOS image")
	cmd.Flags().StringVar(&o.floppy, "floppy", "", "path to a floppy image for drive A")
	cmd.Flags().StringVar(&o.dashboard, "slo-dashboard", "", "host:port for the live stats board")
	cmd.MarkFlagRequired("rom")

	return cmd
}

func serve(o serveOpts) error {
	e, err := engine.New(engine.Config{Root: o.root})
	if err != nil {
		return err
	}

	if err := e.Store().Watch(); err != nil {
		return err
	}
	defer e.Store().CloseWatch()

	req := engine.StartRequest{
		Machine: o.machine,
		Profile: o.profile,
		ROM:     media.Descriptor{ID: o.romID, Path: o.romPath},
	}
	if o.floppy != "" {
		req.BootFloppy = &media.Descriptor{ID: "disk.local", Path: o.floppy}
	}

	if err := e.Start(req); err != nil {
		return err
	}

	if o.dashboard != "" {
		board := slo.NewDashboard(o.dashboard)
		board.Start()
		defer board.Stop()
	}

	fmt.Printf("session %s running; ctrl-c to stop\n", e.Status().SessionID)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := e.Stop(); err != nil {
		return err
	}
	logger.Central().Tail(os.Stdout, 20)
	return nil
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/.emucore"
}
