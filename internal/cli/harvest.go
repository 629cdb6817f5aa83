package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest commands",
}

var harvestListTasksCmd = &cobra.Command{
	Use:   "list-tasks",
	Short: "List clients, projects, and tasks",
	Long:  `List Harvest clients, projects, and tasks with the ids used to associate Timing projects.`,
	Args:  cobra.NoArgs,
	RunE:  runHarvestListTasks,
}

func init() {
	harvestCmd.AddCommand(harvestListTasksCmd)
}

func runHarvestListTasks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := cfg.RequireHarvest(); err != nil {
		return err
	}

	catalog, err := a.Harvest.LoadCatalog(ctx)
	if err != nil {
		return err
	}

	var (
		lastClient    string
		lastProjectID int64
		haveClient    bool
	)
	out := cmd.OutOrStdout()
	for _, row := range catalog.Tasks() {
		if !haveClient || row.ClientName != lastClient {
			fmt.Fprintln(out, row.ClientName)
			lastClient = row.ClientName
			haveClient = true
			lastProjectID = 0
		}
		if row.ProjectID != lastProjectID {
			fmt.Fprintf(out, "\t%s (project %d)\n", row.ProjectName, row.ProjectID)
			lastProjectID = row.ProjectID
		}
		fmt.Fprintf(out, "\t\t%s (task %d)\n", row.TaskName, row.TaskID)
	}
	return nil
}
