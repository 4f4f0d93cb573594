package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateProjectID string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the active project for structural and acyclicity violations",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateProjectID, "project", "", "project id (default: the active project)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.Validate(cmd.Context(), validateProjectID)
	if err != nil {
		return err
	}

	if result.Valid() {
		fmt.Println("schedule is valid")
		return nil
	}

	for _, v := range result.Violations {
		if v.OutlineNumber != "" {
			fmt.Printf("[%s] %s: %s\n", v.Kind, v.OutlineNumber, v.Message)
		} else {
			fmt.Printf("[%s] %s\n", v.Kind, v.Message)
		}
	}
	return fmt.Errorf("schedule has %d violation(s)", len(result.Violations))
}
