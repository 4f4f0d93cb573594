package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List, switch, and delete projects in the store",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every project, most recently updated first",
	RunE:  runProjectsList,
}

var projectsSwitchCmd = &cobra.Command{
	Use:   "switch [project-id]",
	Short: "Make a project the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsSwitch,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete [project-id]",
	Short: "Delete a project and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsSwitchCmd, projectsDeleteCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projects, err := e.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	for _, p := range projects {
		marker := " "
		if p.Active {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
	}
	return nil
}

func runProjectsSwitch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.SwitchProject(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("switched to project %s\n", args[0])
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.DeleteProject(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted project %s\n", args[0])
	return nil
}
