package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/snapshot"
	"github.com/tknatwork/tokensync/internal/ui"
)

var snapshotLabel string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file>",
	Short: "Save the current store state to a snapshot file",
	Long: `Capture every local collection, variable, and style (with image
data embedded) into a self-contained snapshot file that 'tks restore'
can replay later.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		snap, err := snapshot.Take(context.Background(), h, snapshotLabel)
		if err != nil {
			fail("snapshot: %v", err)
		}
		if err := snap.Save(args[0]); err != nil {
			fail("%v", err)
		}
		ui.Success("saved %d variables to %s", snap.Count(), args[0])
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore the store from a snapshot file",
	Long: `Clear all local collections and styles and replay a snapshot
written by 'tks snapshot'. Remote library collections are untouched.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := snapshot.Load(args[0])
		if err != nil {
			fail("%v", err)
		}

		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		if err := snap.Restore(context.Background(), h, nil); err != nil {
			fail("restore: %v", err)
		}
		ui.Success("restored %d variables from %s", snap.Count(), args[0])
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the last import",
	Long: `Restore the store to its state before the most recent import,
using the undo snapshot that 'tks import' saves automatically.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := config.UndoSnapshotPath()
		snap, err := snapshot.Load(path)
		if err != nil {
			fail("no undo snapshot available: %v", err)
		}

		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		if err := snap.Restore(context.Background(), h, nil); err != nil {
			fail("undo: %v", err)
		}
		ui.Success("reverted to snapshot from %s (%d variables)",
			snap.TakenAt.Local().Format("2006-01-02 15:04:05"), snap.Count())
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotLabel, "label", "", "label stored in the snapshot")
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(undoCmd)
}
