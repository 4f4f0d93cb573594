package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jra3/scheduled/internal/engine"
)

var (
	metadataProjectID string
	metadataName      string
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Get or update project-level metadata",
}

var metadataGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a project's name, dates, and task count",
	RunE:  runMetadataGet,
}

var metadataUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a project's name",
	RunE:  runMetadataUpdate,
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	metadataCmd.AddCommand(metadataGetCmd, metadataUpdateCmd)

	metadataCmd.PersistentFlags().StringVar(&metadataProjectID, "project", "", "project id (default: the active project)")
	metadataUpdateCmd.Flags().StringVar(&metadataName, "name", "", "new project name")
}

func runMetadataGet(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	m, err := e.GetMetadata(cmd.Context(), metadataProjectID)
	if err != nil {
		return err
	}
	fmt.Printf("name: %s\nstart: %s\nstatus: %s\ntasks: %d\n", m.Name, m.StartDate.Format("2006-01-02"), m.StatusDate.Format("2006-01-02"), m.TaskCount)
	return nil
}

func runMetadataUpdate(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	patch := engine.MetadataUpdate{}
	if cmd.Flags().Changed("name") {
		patch.Name = &metadataName
	}

	m, err := e.UpdateMetadata(cmd.Context(), metadataProjectID, patch)
	if err != nil {
		return err
	}
	fmt.Printf("updated: %s\n", m.Name)
	return nil
}
