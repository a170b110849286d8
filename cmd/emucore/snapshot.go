package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/atarist-core/emucore/profile"
	"github.com/atarist-core/emucore/snapshot"
)

func snapshotCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "inspect persisted snapshots",
	}
	cmd.PersistentFlags().StringVar(&root, "root", defaultRoot(), "data directory")

	list := &cobra.Command{
		Use:   "list",
		Short: "list the snapshot index",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := snapshot.LoadIndex(root)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROFILE\tSAVED\tSIZE")
			for _, e := range idx.List() {
				saved := time.UnixMicro(e.SavedAtUs).Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					e.SnapshotID, e.Name, e.Profile, saved, e.SizeBytes)
			}
			return w.Flush()
		},
	}

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "delete all but the newest snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := snapshot.LoadIndex(root)
			if err != nil {
				return err
			}
			removed, err := idx.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d snapshot(s)\n", len(removed))
			return nil
		},
	}
	prune.Flags().IntVar(&keep, "keep", 10, "number of snapshots to keep")

	cmd.AddCommand(list, prune)
	return cmd
}

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "list the built-in machine profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMACHINE\tRAM\tREGION\tROM")
			for _, name := range profile.BuiltinNames() {
				m, _ := profile.Builtin(name)
				fmt.Fprintf(w, "%s\t%s\t%dKB\t%s\t%s\n",
					m.Name, m.Machine, m.RAMKB, m.Region, m.ROMID())
			}
			return w.Flush()
		},
	}
}
