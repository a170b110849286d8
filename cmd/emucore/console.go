package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/atarist-core/emucore/engine"
	"github.com/atarist-core/emucore/media"
)

// debugConsoleCmd runs a session in single_step mode with a raw-terminal
// REPL: one keystroke, one committed step batch.
func debugConsoleCmd() *cobra.Command {
	var root, romPath string
	var steps int

	cmd := &cobra.Command{
		Use:   "debug-console",
		Short: "single-step a session from a raw-mode terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return debugConsole(root, romPath, steps)
		},
	}
	cmd.Flags().StringVar(&root, "root", defaultRoot(), "data directory")
	cmd.Flags().StringVar(&romPath, "rom", "", "path to the resolved TOS image")
	cmd.Flags().IntVar(&steps, "steps", 1, "ticks committed per keystroke")
	cmd.MarkFlagRequired("rom")
	return cmd
}

func debugConsole(root, romPath string, steps int) error {
	e, err := engine.New(engine.Config{Root: root})
	if err != nil {
		return err
	}
	if err := e.Start(engine.StartRequest{
		Machine: "atari_st",
		Profile: "st_520_pal",
		ROM:     media.Descriptor{ID: "rom.local", Path: romPath},
	}); err != nil {
		return err
	}
	defer e.Stop()

	if _, err := e.SetClockMode(engine.ClockModeRequest{Mode: "single_step"}); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("debug-console needs a terminal: %w", err)
	}
	defer term.Restore(fd, old)

	fmt.Print("space: step  f: step one frame  q: quit\r\n")

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}

		n := steps
		switch buf[0] {
		case 'q', 3: // ctrl-c
			return nil
		case 'f':
			n = 313 // one PAL frame of scanline ticks
		case ' ':
		default:
			continue
		}

		res, err := e.Step(n)
		if err != nil {
			return err
		}
		fmt.Printf("tick %d -> %d  cycle %d -> %d  opcode %04x\r\n",
			res.TickBefore, res.TickAfter, res.CycleBefore, res.CycleAfter,
			res.CapturedOpcode)
	}
}
