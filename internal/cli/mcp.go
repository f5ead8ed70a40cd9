package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"n8napp/internal/mcp"
)

const defaultEndpoint = "http://127.0.0.1:8080/mcp"

func mcpCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "JSON-RPC tool endpoint over the dashboard",
	}
	cmd.AddCommand(mcpServeCmd(rf))
	cmd.AddCommand(mcpToolsCmd(rf))
	cmd.AddCommand(mcpCallCmd(rf))
	return cmd
}

// listenAddr falls back to :$PORT, then :8080.
func listenAddr(addr string) string {
	if addr != "" {
		return addr
	}
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return ":8080"
}

func mcpServeCmd(rf *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /mcp and /healthz",
		Args:  cobra.NoArgs,
		RunE: withApp(rf, false, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if err := a.dash.Start(ctx); err != nil {
				a.log.Warn("restore session", zap.Error(err))
			}
			srv := mcp.NewServer(mcp.ServerOptions{Dashboard: a.dash, Log: a.log.Named("mcp")})
			hs := &http.Server{
				Addr:              listenAddr(addr),
				Handler:           mcp.Handler(srv),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ln, err := net.Listen("tcp", hs.Addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "listening on", ln.Addr())

			errc := make(chan error, 1)
			go func() { errc <- hs.Serve(ln) }()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT or :8080)")
	return cmd
}

func mcpToolsCmd(rf *rootFlags) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools a running endpoint offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rf)
			if err != nil {
				return err
			}
			tools, err := mcp.NewClient(endpoint).ToolsList(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), cfg.Output, tools, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "NAME\tDESCRIPTION")
				for _, t := range tools {
					fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
				}
			})
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "tool endpoint URL")
	return cmd
}

func mcpCallCmd(rf *rootFlags) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "call NAME [JSON_ARGS]",
		Short: "Call one tool on a running endpoint and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := json.RawMessage(`{}`)
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments are not valid JSON: %s", args[1])
				}
				params = json.RawMessage(args[1])
			}
			res, err := mcp.NewClient(endpoint).CallTool(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			var out any
			if err := json.Unmarshal(res, &out); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "tool endpoint URL")
	return cmd
}
