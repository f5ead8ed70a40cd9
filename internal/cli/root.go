package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"n8napp/internal/config"
	"n8napp/internal/dashboard"
	"n8napp/internal/logging"
	"n8napp/internal/n8n"
	"n8napp/internal/session"
	"n8napp/internal/store"
)

type rootFlags struct {
	ConfigPath string
	URL        string
	APIKey     string
	Session    string
	Backend    string
	DSN        string
	RedisAddr  string
	LogLevel   string
	Output     string
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	rf := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "n8napp",
		Short:         "Operate an n8n instance: list, toggle and run workflows, inspect executions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rf.ConfigPath, "config", "", "YAML config file")
	pf.StringVar(&rf.URL, "url", "", "n8n base URL (defaults to "+config.EnvURL+")")
	pf.StringVar(&rf.APIKey, "api-key", "", "n8n API key (defaults to "+config.EnvAPIKey+")")
	pf.StringVar(&rf.Session, "session", "", "session id for shared backends (defaults to "+config.EnvSession+")")
	pf.StringVar(&rf.Backend, "backend", "", "session backend: memory|redis|postgres")
	pf.StringVar(&rf.DSN, "dsn", "", "PostgreSQL DSN (defaults to "+config.EnvDSN+")")
	pf.StringVar(&rf.RedisAddr, "redis", "", "Redis address (defaults to "+config.EnvRedisAddr+")")
	pf.StringVar(&rf.LogLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVarP(&rf.Output, "output", "o", "", "output format: table|json|yaml")

	rootCmd.AddCommand(connectCmd(rf))
	rootCmd.AddCommand(disconnectCmd(rf))
	rootCmd.AddCommand(statusCmd(rf))
	rootCmd.AddCommand(workflowsCmd(rf))
	rootCmd.AddCommand(executionsCmd(rf))
	rootCmd.AddCommand(shellCmd(rf))
	rootCmd.AddCommand(mcpCmd(rf))
	rootCmd.AddCommand(dbCmd(rf))

	return rootCmd
}

// loadConfig layers flags over the environment over the config file.
func loadConfig(cmd *cobra.Command, rf *rootFlags) (config.Config, error) {
	cfg, err := config.Load(rf.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("url", &cfg.URL, rf.URL)
	override("api-key", &cfg.APIKey, rf.APIKey)
	override("session", &cfg.Session.ID, rf.Session)
	override("backend", &cfg.Session.Backend, rf.Backend)
	override("dsn", &cfg.Session.DSN, rf.DSN)
	override("redis", &cfg.Session.RedisAddr, rf.RedisAddr)
	override("log-level", &cfg.LogLevel, rf.LogLevel)
	override("output", &cfg.Output, rf.Output)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// app is the wiring shared by every command: one session store, one API
// client and one dashboard controller.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	sessions *session.Store
	client   *n8n.Client
	dash     *dashboard.Controller
	closers  []func()
}

func openApp(ctx context.Context, cmd *cobra.Command, rf *rootFlags) (*app, error) {
	cfg, err := loadConfig(cmd, rf)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log.Named("n8napp")}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = session.New(backend)
	if _, _, err := a.sessions.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.HasCredential() {
		if err := a.sessions.Save(ctx, cfg.Credential()); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.client = n8n.NewClient(a.sessions, n8n.WithLogger(a.log.Named("api")))
	a.dash = dashboard.New(a.sessions, a.client, a.log.Named("dashboard"))
	a.log.Debug("session opened",
		logging.Session(cfg.Session.ID),
		zap.String("backend", cfg.Session.Backend),
		zap.Stringer("state", a.sessions.State()))
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (session.Backend, error) {
	sc := a.cfg.Session
	switch sc.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		return session.NewRedisBackend(rdb, sc.RedisPrefix, sc.ID, sc.TTL), nil
	case config.BackendPostgres:
		st, err := store.Open(ctx, sc.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st.Sessions(sc.ID, sc.TTL), nil
	default:
		return session.NewMemoryBackend(), nil
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) requireConnected() error {
	if !a.dash.Configured() {
		return fmt.Errorf("not connected: pass --url and --api-key (or set %s and %s)", config.EnvURL, config.EnvAPIKey)
	}
	return nil
}

type appFunc func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error

// withApp opens the app for the duration of one command run.
func withApp(rf *rootFlags, connected bool, fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx, cmd, rf)
		if err != nil {
			return err
		}
		defer a.Close()
		if connected {
			if err := a.requireConnected(); err != nil {
				return err
			}
		}
		return fn(ctx, cmd, args, a)
	}
}
