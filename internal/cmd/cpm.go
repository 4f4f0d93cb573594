package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cpmProjectID string

var cpmCmd = &cobra.Command{
	Use:   "cpm",
	Short: "Compute critical path analytics for the active project",
	RunE:  runCPM,
}

func init() {
	rootCmd.AddCommand(cpmCmd)
	cpmCmd.Flags().StringVar(&cpmProjectID, "project", "", "project id (default: the active project)")
}

func runCPM(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.ComputeCPM(cmd.Context(), cpmProjectID)
	if err != nil {
		return err
	}

	fmt.Printf("project duration: %.2f days\n\n", result.ProjectDays)
	fmt.Printf("%-10s %8s %8s %8s %8s %8s %s\n", "outline", "ES", "EF", "LS", "LF", "float", "critical")
	for _, t := range result.Tasks {
		fmt.Printf("%-10s %8.2f %8.2f %8.2f %8.2f %8.2f %v\n",
			t.OutlineNumber, t.EarlyStart, t.EarlyFinish, t.LateStart, t.LateFinish, t.TotalFloat, t.Critical)
	}
	return nil
}
