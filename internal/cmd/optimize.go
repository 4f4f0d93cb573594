package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var optimizeProjectID string

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Propose and apply schedule compression strategies",
}

var optimizeProposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "List ranked schedule-compression proposals for the active project",
	RunE:  runOptimizePropose,
}

var optimizeApplyCmd = &cobra.Command{
	Use:   "apply [proposal-index]",
	Short: "Apply one proposal by its position in the most recent propose listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimizeApply,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.AddCommand(optimizeProposeCmd, optimizeApplyCmd)
	optimizeCmd.PersistentFlags().StringVar(&optimizeProjectID, "project", "", "project id (default: the active project)")
}

func runOptimizePropose(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	proposals, err := e.OptimizeProposal(cmd.Context(), optimizeProjectID)
	if err != nil {
		return err
	}

	if len(proposals) == 0 {
		fmt.Println("no optimization opportunities found")
		return nil
	}

	for i, p := range proposals {
		fmt.Printf("[%d] %s\n", i, p.Description)
	}
	return nil
}

func runOptimizeApply(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("proposal index must be a number: %w", err)
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	proposals, err := e.OptimizeProposal(cmd.Context(), optimizeProjectID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(proposals) {
		return fmt.Errorf("proposal index %d out of range (0..%d)", index, len(proposals)-1)
	}

	chosen := proposals[index]
	if err := e.OptimizeApply(cmd.Context(), optimizeProjectID, chosen); err != nil {
		return err
	}

	fmt.Printf("applied: %s\n", chosen.Description)
	return nil
}
