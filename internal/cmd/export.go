package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportProjectID string

var exportCmd = &cobra.Command{
	Use:   "export [file.xml]",
	Short: "Export the active project back to Microsoft Project XML",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportProjectID, "project", "", "project id (default: the active project)")
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := e.ExportXML(cmd.Context(), exportProjectID)
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	fmt.Printf("exported to %s\n", args[0])
	return nil
}
