package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jra3/scheduled/internal/engine"
)

var (
	tasksProjectID    string
	taskUID           string
	taskName          string
	taskOutline       string
	taskDuration      string
	taskMilestone     bool
	taskSummary       bool
	taskPercent       int
	taskUpdateName    string
	taskUpdateOutline string
	taskUpdateDur     string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Get, create, update, and delete tasks in a project",
}

var tasksGetCmd = &cobra.Command{
	Use:   "get [outline-number]",
	Short: "Look up a task by its outline number",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksGet,
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task at an outline position, shifting siblings to make room",
	RunE:  runTasksCreate,
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Update fields on an existing task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksUpdate,
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task, cascading back-references and closing the outline gap",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksDelete,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksGetCmd, tasksCreateCmd, tasksUpdateCmd, tasksDeleteCmd)

	tasksCmd.PersistentFlags().StringVar(&tasksProjectID, "project", "", "project id (default: the active project)")

	tasksCreateCmd.Flags().StringVar(&taskUID, "uid", "", "secondary identifier carried from a source document")
	tasksCreateCmd.Flags().StringVar(&taskName, "name", "", "task name")
	tasksCreateCmd.Flags().StringVar(&taskOutline, "outline", "", "outline number, e.g. 1.2.3")
	tasksCreateCmd.Flags().StringVar(&taskDuration, "duration", "PT0H0M0S", "ISO-8601 duration, e.g. PT8H0M0S")
	tasksCreateCmd.Flags().BoolVar(&taskMilestone, "milestone", false, "mark as a zero-duration milestone")
	tasksCreateCmd.Flags().BoolVar(&taskSummary, "summary", false, "mark as a summary task excluded from CPM")
	tasksCreateCmd.Flags().IntVar(&taskPercent, "percent", 0, "percent complete, 0-100")

	tasksUpdateCmd.Flags().StringVar(&taskUpdateName, "name", "", "new task name")
	tasksUpdateCmd.Flags().StringVar(&taskUpdateOutline, "outline", "", "move the task to this outline number")
	tasksUpdateCmd.Flags().StringVar(&taskUpdateDur, "duration", "", "new ISO-8601 duration")
}

func runTasksGet(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	t, err := e.GetTask(cmd.Context(), tasksProjectID, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %-10s %s  duration=%s milestone=%v summary=%v percent=%d\n",
		t.ID, t.OutlineNumber, t.Name, t.Duration, t.Milestone, t.Summary, t.PercentComplete)
	return nil
}

func runTasksCreate(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	t, err := e.CreateTask(cmd.Context(), tasksProjectID, engine.TaskInput{
		UID:             taskUID,
		Name:            taskName,
		OutlineNumber:   taskOutline,
		Duration:        taskDuration,
		Milestone:       taskMilestone,
		Summary:         taskSummary,
		PercentComplete: taskPercent,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created task %s at %s\n", t.ID, t.OutlineNumber)
	return nil
}

func runTasksUpdate(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	patch := engine.TaskUpdate{}
	if cmd.Flags().Changed("name") {
		patch.Name = &taskUpdateName
	}
	if cmd.Flags().Changed("outline") {
		patch.OutlineNumber = &taskUpdateOutline
	}
	if cmd.Flags().Changed("duration") {
		patch.Duration = &taskUpdateDur
	}

	t, err := e.UpdateTask(cmd.Context(), tasksProjectID, args[0], patch)
	if err != nil {
		return err
	}
	fmt.Printf("updated task %s (%s)\n", t.ID, t.OutlineNumber)
	return nil
}

func runTasksDelete(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.DeleteTask(cmd.Context(), tasksProjectID, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted task %s\n", args[0])
	return nil
}
