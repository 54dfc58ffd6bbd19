// commands.go
package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// --- sweep ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Retry staged uploads once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer a.db.Close()

		rep, err := a.staging.Sweep(cmd.Context(), a.ipfs)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		log.Printf("✅ [STAGING] scanned=%d retried=%d uploaded=%d failed=%d expired=%d",
			rep.Scanned, rep.Retried, rep.Uploaded, rep.Failed, rep.Expired)
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the default missions into an empty store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer a.db.Close()

		reset, _ := cmd.Flags().GetBool("reset")
		if reset {
			if err := a.missions.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("clearing missions: %w", err)
			}
		}
		if err := a.missions.Init(cmd.Context()); err != nil {
			return err
		}
		st, err := a.missions.Stats(cmd.Context())
		if err != nil {
			return err
		}
		log.Printf("✅ [SEED] %v", st)
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("reset", false, "clear all mission data before seeding")
}
