package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"n8napp/internal/config"
	"n8napp/internal/dashboard"
	"n8napp/internal/session"
)

const shellHelp = `commands:
  connect URL API_KEY   save the credential and load workflows
  disconnect            forget the credential
  workflows             show the workflows tab
  executions [ID]       show recent executions, or one workflow's
  back                  close a workflow's executions
  toggle ID             flip a workflow's active flag
  run ID                trigger a manual run
  status                show the session state
  help                  show this help
  quit                  leave the shell`

func shellCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive dashboard over one session",
		Args:  cobra.NoArgs,
		RunE: withApp(rf, false, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			sh := &shell{a: a, out: cmd.OutOrStdout()}
			return sh.run(ctx, cmd.InOrStdin())
		}),
	}
}

type shell struct {
	a   *app
	out io.Writer
}

var errQuit = errors.New("quit")

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	if err := sh.a.dash.Start(ctx); err != nil {
		sh.report(err)
	} else if sh.a.dash.Configured() {
		sh.show()
	} else {
		fmt.Fprintln(sh.out, "not connected; use: connect URL API_KEY")
	}

	sc := bufio.NewScanner(in)
	for {
		sh.prompt()
		if !sc.Scan() {
			fmt.Fprintln(sh.out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		err := sh.exec(ctx, fields[0], fields[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			sh.report(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (sh *shell) prompt() {
	if sh.a.dash.Configured() {
		fmt.Fprint(sh.out, "n8n> ")
		return
	}
	fmt.Fprint(sh.out, "n8n (disconnected)> ")
}

func (sh *shell) exec(ctx context.Context, name string, args []string) error {
	d := sh.a.dash
	switch name {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
		return nil
	case "status":
		c, ok := sh.a.sessions.Credential()
		fmt.Fprintf(sh.out, "%s (session %s, backend %s)\n", sh.a.sessions.State(), sh.a.cfg.Session.ID, sh.a.cfg.Session.Backend)
		if ok {
			fmt.Fprintf(sh.out, "%s key %s\n", c.BaseURL, maskKey(c.APIKey))
		}
		return nil
	case "connect":
		var cred session.Credential
		if len(args) > 0 {
			cred.BaseURL = args[0]
		}
		if len(args) > 1 {
			cred.APIKey = args[1]
		}
		if err := d.Connect(ctx, cred); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "connected")
		sh.show()
		return nil
	case "disconnect":
		if err := d.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "disconnected")
		return nil
	}

	if !d.Configured() {
		return fmt.Errorf("not connected; use: connect URL API_KEY")
	}
	switch name {
	case "workflows", "wf", "ls":
		if err := d.SwitchTab(ctx, dashboard.TabWorkflows); err != nil {
			return err
		}
	case "executions", "ex":
		var err error
		if len(args) > 0 {
			err = d.ViewWorkflowExecutions(ctx, args[0])
		} else {
			d.CloseWorkflowExecutions()
			err = d.SwitchTab(ctx, dashboard.TabExecutions)
		}
		if err != nil {
			return err
		}
	case "back":
		d.CloseWorkflowExecutions()
	case "toggle":
		if len(args) != 1 {
			return fmt.Errorf("usage: toggle ID")
		}
		if err := d.ToggleWorkflow(ctx, args[0]); err != nil {
			return err
		}
	case "run":
		if len(args) != 1 {
			return fmt.Errorf("usage: run ID")
		}
		if err := d.RunWorkflow(ctx, args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	sh.show()
	return nil
}

// show prints the current view followed by its toast.
func (sh *shell) show() {
	v := sh.a.dash.Snapshot()
	var table func(*tabwriter.Writer)
	switch {
	case v.ShowExecutions && v.Selected != nil:
		fmt.Fprintf(sh.out, "executions of %s\n", v.Selected.Name)
		table = executionTable(v.Executions)
	case v.Tab == dashboard.TabExecutions:
		table = executionTable(v.Executions)
	default:
		table = workflowTable(v.Workflows)
	}
	_ = render(sh.out, config.OutputTable, nil, table)
	if v.Toast != "" {
		fmt.Fprintln(sh.out, "ok:", v.Toast)
		sh.a.dash.DismissToast()
	}
}

// report prints the dashboard's message for err when it recorded one.
func (sh *shell) report(err error) {
	var ve *session.ValidationError
	if msg := sh.a.dash.Snapshot().Error; msg != "" && (errors.As(err, &ve) || strings.Contains(msg, err.Error())) {
		fmt.Fprintln(sh.out, "error:", msg)
		return
	}
	fmt.Fprintln(sh.out, "error:", err)
}
