package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/restitch/restitch/pkg/buildinfo"
	"github.com/restitch/restitch/pkg/cache"
	"github.com/restitch/restitch/pkg/config"
	"github.com/restitch/restitch/pkg/pipeline"
	"github.com/restitch/restitch/pkg/restore"
)

// appName is the application name used for directories and display.
const appName = "restitch"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the explicit config file path, empty for discovery.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "restitch",
		Short:        "Restitch rebuilds readable source trees from decompiled files",
		Long:         `Restitch walks require() references from a root file, builds the dependency graph, orders files so dependencies come first, and restores each file to readable source with its restored dependencies as context.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default ./restitch.yaml)")

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.restoreCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads configuration for a command invocation.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.ConfigPath)
}

// newRunner creates a pipeline runner for CLI use. The restorer may be nil
// for analysis-only commands.
func (c *CLI) newRunner(cmd *cobra.Command, cfg *config.Config, restorer restore.Restorer, noCache bool) (*pipeline.Runner, error) {
	backend, err := newCache(cmd, cfg, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Backend == "redis" {
		// A shared backend gets app-scoped keys so other tenants' entries
		// cannot collide with ours.
		keyer = cache.NewScopedKeyer(nil, appName+":")
	}
	return pipeline.NewRunner(backend, keyer, restorer, c.Logger), nil
}

// newCache builds the cache backend selected by configuration. Backend
// failures degrade to a null cache rather than failing the command, except
// for Redis where an unreachable server is worth surfacing.
func newCache(cmd *cobra.Command, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(cmd.Context(), cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	default:
		c, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return c, nil
	}
}
