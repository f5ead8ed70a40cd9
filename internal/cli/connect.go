package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"n8napp/internal/config"
	"n8napp/internal/dashboard"
)

func connectCmd(rf *rootFlags) *cobra.Command {
	var newSession bool
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Save the n8n URL and API key for this session and check them",
		PreRun: func(cmd *cobra.Command, args []string) {
			if newSession && !cmd.Flags().Changed("session") {
				rf.Session = uuid.NewString()
				_ = cmd.Flags().Set("session", rf.Session)
			}
		},
		RunE: withApp(rf, false, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if !a.cfg.HasCredential() {
				return fmt.Errorf("missing required: --url --api-key")
			}
			if err := a.dash.Connect(ctx, a.cfg.Credential()); err != nil {
				return err
			}
			v := a.dash.Snapshot()
			total, active := dashboard.Summary(v.Workflows)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connected to %s (%d workflows, %d active)\n", a.cfg.URL, total, active)
			if a.cfg.Session.Backend == config.BackendMemory {
				fmt.Fprintln(out, "note: the memory backend forgets the session when this command exits; use `n8napp shell` or --backend redis|postgres")
				return nil
			}
			fmt.Fprintf(out, "session: %s\nexport %s=%s\n", a.cfg.Session.ID, config.EnvSession, a.cfg.Session.ID)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&newSession, "new-session", false, "generate a fresh session id")
	return cmd
}

func disconnectCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved credential",
		RunE: withApp(rf, false, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if err := a.dash.Disconnect(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok: disconnected")
			return nil
		}),
	}
}

func statusCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		RunE: withApp(rf, false, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			type status struct {
				State   string `json:"state" yaml:"state"`
				Session string `json:"session" yaml:"session"`
				Backend string `json:"backend" yaml:"backend"`
				URL     string `json:"url,omitempty" yaml:"url,omitempty"`
				APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
			}
			st := status{
				State:   a.sessions.State().String(),
				Session: a.cfg.Session.ID,
				Backend: a.cfg.Session.Backend,
			}
			if c, ok := a.sessions.Credential(); ok {
				st.URL = c.BaseURL
				st.APIKey = maskKey(c.APIKey)
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, st, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "state:\t%s\n", st.State)
				fmt.Fprintf(tw, "session:\t%s\n", st.Session)
				fmt.Fprintf(tw, "backend:\t%s\n", st.Backend)
				if st.URL != "" {
					fmt.Fprintf(tw, "url:\t%s\n", st.URL)
					fmt.Fprintf(tw, "apiKey:\t%s\n", st.APIKey)
				}
			})
		}),
	}
}
