package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"n8napp/internal/config"
	"n8napp/internal/store"
)

func dbCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "PostgreSQL session store utilities",
	}
	cmd.AddCommand(dbInitCmd(rf))
	cmd.AddCommand(dbPurgeCmd(rf))
	return cmd
}

// openStore connects to the configured DSN whatever the session backend.
func openStore(ctx context.Context, cmd *cobra.Command, rf *rootFlags) (*store.Store, error) {
	cfg, err := loadConfig(cmd, rf)
	if err != nil {
		return nil, err
	}
	if cfg.Session.DSN == "" {
		return nil, fmt.Errorf("no database: pass --dsn or set %s", config.EnvDSN)
	}
	return store.Open(ctx, cfg.Session.DSN)
}

func dbInitCmd(rf *rootFlags) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Apply sql/schema.sql to PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			st, err := openStore(ctx, cmd, rf)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ExecSQL(ctx, string(b)); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok: schema applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "sql/schema.sql", "path to schema SQL file")
	return cmd
}

func dbPurgeCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired session records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := openStore(ctx, cmd, rf)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d expired records deleted\n", n)
			return nil
		},
	}
}
