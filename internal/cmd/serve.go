package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the configured store and report readiness for a transport to attach",
	Long: `serve opens the schedule store at the configured path and confirms it is
reachable. It does not bind a network listener: this binary only exercises
the engine API directly. Wiring it behind HTTP, gRPC, or any other
transport is left to a caller that embeds internal/engine.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projects, err := e.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("store ready: %d project(s) loaded\n", len(projects))
	return nil
}
