package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.xml]",
	Short: "Import a Microsoft Project XML schedule as a new active project",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var ingestName string

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "override the project name from the document")
}

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.IngestXML(cmd.Context(), ingestName, f)
	if err != nil {
		return err
	}

	fmt.Printf("ingested project %q (%s): %d tasks, %d predecessor links\n",
		result.Project.Name, result.Project.ID, result.TaskCount, result.PredCount)
	return nil
}
