package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	timingadapter "github.com/craiga/timesheets/internal/adapter/timing"
	"github.com/craiga/timesheets/internal/domain"
	"github.com/craiga/timesheets/internal/usecase"
)

var timingCmd = &cobra.Command{
	Use:   "timing",
	Short: "Timing commands",
}

var timingListProjectsCmd = &cobra.Command{
	Use:   "list-projects",
	Short: "List projects hierarchically",
	Long:  `List Timing projects as an indented tree, with any Harvest association shown.`,
	Args:  cobra.NoArgs,
	RunE:  runTimingListProjects,
}

var timingSetHarvestProjectIDCmd = &cobra.Command{
	Use:   "set-harvest-project-id <timing-project-id> <harvest-project-id>",
	Short: "Set the Harvest project id on a Timing project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetCustomField(cmd, args[0], timingadapter.FieldHarvestProjectID, args[1])
	},
}

var timingSetHarvestTaskIDCmd = &cobra.Command{
	Use:   "set-harvest-task-id <timing-project-id> <harvest-task-id>",
	Short: "Set the Harvest task id on a Timing project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetCustomField(cmd, args[0], timingadapter.FieldHarvestTaskID, args[1])
	},
}

var (
	sendFrom string
	sendTo   string
)

var timingSendToHarvestCmd = &cobra.Command{
	Use:   "send-to-harvest",
	Short: "Copy Timing time entries to Harvest",
	Long: `Copy all Timing time entries in the given window to Harvest.
Existing Harvest entries created by a previous run are updated in place;
entries already in sync are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runSendToHarvest,
}

func init() {
	timingSendToHarvestCmd.Flags().StringVar(&sendFrom, "from", "", "window start, RFC3339 or YYYY-MM-DD (default: 7 days ago)")
	timingSendToHarvestCmd.Flags().StringVar(&sendTo, "to", "", "window end, RFC3339 or YYYY-MM-DD inclusive (default: now)")

	timingCmd.AddCommand(timingListProjectsCmd)
	timingCmd.AddCommand(timingSetHarvestProjectIDCmd)
	timingCmd.AddCommand(timingSetHarvestTaskIDCmd)
	timingCmd.AddCommand(timingSendToHarvestCmd)
}

func runTimingListProjects(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := cfg.RequireTiming(); err != nil {
		return err
	}

	tree, err := a.Timing.LoadProjectTree(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, pd := range domain.WalkProjects(tree) {
		p := pd.Project
		suffix := ""
		if p.HarvestProjectID != "" || p.HarvestTaskID != "" {
			var parts []string
			if p.HarvestProjectID != "" {
				parts = append(parts, "project "+p.HarvestProjectID)
			}
			if p.HarvestTaskID != "" {
				parts = append(parts, "task "+p.HarvestTaskID)
			}
			suffix = fmt.Sprintf(" (Harvest %s)", strings.Join(parts, "; "))
		}
		fmt.Fprintf(out, "%s%s (%s)%s\n", strings.Repeat("\t", pd.Depth), p.Title, p.ID, suffix)
	}
	return nil
}

func runSetCustomField(cmd *cobra.Command, projectID, key, value string) error {
	ctx := cmd.Context()
	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := cfg.RequireTiming(); err != nil {
		return err
	}
	return a.Timing.SetCustomField(ctx, projectID, key, value)
}

func runSendToHarvest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := cfg.RequireTiming(); err != nil {
		return err
	}
	if err := cfg.RequireHarvest(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	to, err := parseEnd(sendTo, now, loc)
	if err != nil {
		return err
	}
	from, err := parseStart(sendFrom, now.AddDate(0, 0, -7), loc)
	if err != nil {
		return err
	}

	report, err := a.Sync.SendToHarvest(ctx, from, to)
	if err != nil {
		return err
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report *usecase.SyncReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created:   %d\n", report.Created)
	fmt.Fprintf(out, "updated:   %d\n", report.Updated)
	fmt.Fprintf(out, "unchanged: %d\n", report.Unchanged)
	fmt.Fprintf(out, "skipped:   %d\n", report.Skipped)
	fmt.Fprintf(out, "failed:    %d\n", report.Failed)
	for _, s := range report.Skips {
		fmt.Fprintf(out, "skipped %s (%s): %s\n", s.EntryID, s.Notes, s.Reason)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "failed %s (%s): %v\n", f.EntryID, f.Notes, f.Err)
	}
}
