// Package cli provides the command-line interface for the newsletter
// data-retrieval core.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketbrief/internal/cache"
	"marketbrief/internal/config"
	"marketbrief/internal/facade"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  cache.Store
	Facade *facade.Facade
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		store = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		logger.Debug().Str("addr", cfg.Cache.RedisAddr).Msg("Redis cache store initialized")
	} else {
		store = cache.NewMemoryStore()
		logger.Debug().Msg("In-memory cache store initialized")
	}
	app.Store = store
	app.Facade = facade.New(cfg, store, logger)

	rootCmd := &cobra.Command{
		Use:   "marketbrief",
		Short: "Marketbrief - resilient market data retrieval for a daily newsletter",
		Long: `Marketbrief retrieves the market data behind a daily financial newsletter:
treasury yields, inflation, Fed policy, stock fundamentals and geopolitical
risks. Each concern falls back across multiple providers, so a single upstream
outage degrades one section instead of the whole brief.

Use 'marketbrief help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/marketbrief)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newCacheCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
				return
			}
			output.Printf("marketbrief v%s\n", Version)
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View configuration and which providers carry credentials.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Printf("Cache backend:   %s\n", app.Config.Cache.Backend)
			output.Printf("Max retries:     %d\n", app.Config.Retry.MaxRetries)
			output.Printf("Base delay (ms): %d\n", app.Config.Retry.BaseDelayMs)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "Show configured providers with redacted credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			redacted := app.Config.Credentials.Redacted()
			if output.IsJSON() {
				return output.JSON(redacted)
			}
			for provider, key := range redacted {
				output.Printf("%-14s %s\n", provider, key)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration directory",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			output.Printf("%s\n", config.DefaultConfigDir())
		},
	})

	return cmd
}
