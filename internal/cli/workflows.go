package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"n8napp/internal/dashboard"
	"n8napp/internal/n8n"
)

type workflowList struct {
	Workflows []n8n.Workflow `json:"workflows" yaml:"workflows"`
	Total     int            `json:"total" yaml:"total"`
	Active    int            `json:"active" yaml:"active"`
}

func newWorkflowList(wfs []n8n.Workflow) workflowList {
	if wfs == nil {
		wfs = []n8n.Workflow{}
	}
	total, active := dashboard.Summary(wfs)
	return workflowList{Workflows: wfs, Total: total, Active: active}
}

func workflowsCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"wf"},
		Short:   "List, toggle and run workflows",
	}
	cmd.AddCommand(workflowsListCmd(rf))
	cmd.AddCommand(workflowsSetActiveCmd(rf, "activate", true))
	cmd.AddCommand(workflowsSetActiveCmd(rf, "deactivate", false))
	cmd.AddCommand(workflowsToggleCmd(rf))
	cmd.AddCommand(workflowsRunCmd(rf))
	return cmd
}

func workflowsListCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workflows",
		Args:    cobra.NoArgs,
		RunE: withApp(rf, true, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if err := a.dash.LoadWorkflows(ctx); err != nil {
				return fmt.Errorf("list workflows: %w", err)
			}
			wfs := a.dash.Snapshot().Workflows
			return render(cmd.OutOrStdout(), a.cfg.Output, newWorkflowList(wfs), workflowTable(wfs))
		}),
	}
}

func workflowsSetActiveCmd(rf *rootFlags, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: fmt.Sprintf("Set a workflow's active flag to %t", active),
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, true, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			// Names come from the list; a failed listing still lets the update through.
			_ = a.dash.LoadWorkflows(ctx)
			if err := a.dash.SetActive(ctx, args[0], active); err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok:", a.dash.Snapshot().Toast)
			return nil
		}),
	}
}

func workflowsToggleCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip a workflow between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, true, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if err := a.dash.LoadWorkflows(ctx); err != nil {
				return fmt.Errorf("list workflows: %w", err)
			}
			if err := a.dash.ToggleWorkflow(ctx, args[0]); err != nil {
				return fmt.Errorf("toggle %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok:", a.dash.Snapshot().Toast)
			return nil
		}),
	}
}

func workflowsRunCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run ID",
		Short: "Trigger a manual run",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, true, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			_ = a.dash.LoadWorkflows(ctx)
			if err := a.dash.RunWorkflow(ctx, args[0]); err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			v := a.dash.Snapshot()
			return render(cmd.OutOrStdout(), a.cfg.Output, map[string]string{"id": args[0], "toast": v.Toast}, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ok:", v.Toast)
				fmt.Fprintf(tw, "check the outcome with: n8napp executions list --workflow %s\n", args[0])
			})
		}),
	}
}

func executionsCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"ex"},
		Short:   "Inspect workflow executions",
	}
	var workflowID string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the most recent executions, optionally for one workflow",
		Args:    cobra.NoArgs,
		RunE: withApp(rf, true, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if err := a.dash.LoadExecutions(ctx, workflowID); err != nil {
				return fmt.Errorf("list executions: %w", err)
			}
			execs := a.dash.Snapshot().Executions
			if execs == nil {
				execs = []n8n.Execution{}
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, execs, executionTable(execs))
		}),
	}
	list.Flags().StringVar(&workflowID, "workflow", "", "only executions of this workflow")
	cmd.AddCommand(list)
	return cmd
}
