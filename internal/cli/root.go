// Package cli implements the docdrift command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
	"github.com/dshills/docdrift-mcp/internal/config"
	"github.com/dshills/docdrift-mcp/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

// appOptions are passed to app.New by every command that opens the database
var appOptions []app.Option

var rootCmd = &cobra.Command{
	Use:   "docdrift",
	Short: "Find documentation that drifted from the code",
	Long: `docdrift indexes markdown documentation into a vector database and
analyzes git diffs to suggest which documents need updating after code changes.

Run "docdrift serve" to expose the tools to coding agents over MCP.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logging.SetOutput(cmd.ErrOrStderr())
		logging.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docdrift/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file, overrides the config file and DOCDRIFT_DB_PATH")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersionInfo records the build version shown by --version and the version command
func SetVersionInfo(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the configuration and applies the --db flag
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// openApp builds the components every data command needs. The caller closes it.
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, appOptions...)
}

// withApp runs fn with an opened app and closes it afterwards
func withApp(fn func(a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.Warnf("close: %v", cerr)
		}
	}()
	return fn(a)
}
