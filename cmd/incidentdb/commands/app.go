// Package commands implements the incidentdb CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/container"
	"github.com/appri/incidentdb/internal/debug"
)

// App carries the state shared by every command. Configuration is loaded
// lazily so commands like version work without a database.
type App struct {
	ConfigFile string
	Debug      bool

	cfg *config.Config
	c   *container.Container
}

// NewApp creates an empty App.
func NewApp() *App {
	return &App{}
}

// Register adds the global flags to the root command.
func (a *App) Register(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&a.ConfigFile, "config", "c", "", "Config file (default .incidentdb.yaml)")
	root.PersistentFlags().BoolVar(&a.Debug, "debug", false, "Enable debug logging")
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.Close(cmd.Context())
	}
}

// Config loads the configuration once and configures logging from it.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(config.Options{ConfigFile: a.ConfigFile})
	if err != nil {
		return nil, err
	}
	if a.Debug {
		cfg.Log.Debug = true
	}
	debug.Configure(debug.Options{Level: cfg.Log.LogLevel(), Format: cfg.Log.Format})
	a.cfg = cfg
	return cfg, nil
}

// Container returns the dependency container without connecting.
func (a *App) Container() (*container.Container, error) {
	if a.c != nil {
		return a.c, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := container.NewContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	a.c = c
	return c, nil
}

// Connect returns a container with a live database connection.
func (a *App) Connect(ctx context.Context) (*container.Container, error) {
	c, err := a.Container()
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return c, nil
}

// Close releases the database connection, if one was opened.
func (a *App) Close(ctx context.Context) error {
	if a.c == nil {
		return nil
	}
	err := a.c.Close(ctx)
	a.c = nil
	return err
}

// NewRootCommand builds the command tree.
func NewRootCommand(a *App, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "incidentdb",
		Short: "Query and load the incident database",
		Long: `incidentdb serves filtered queries over the incident tables,
exports results and loads the monthly spreadsheets into PostgreSQL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.Register(root)

	root.AddCommand(NewServeCommand(a))
	root.AddCommand(NewSchemaCommand(a))
	root.AddCommand(NewQueryCommand(a))
	root.AddCommand(NewExplainCommand(a))
	root.AddCommand(NewExportCommand(a))
	root.AddCommand(NewIngestCommand(a))
	root.AddCommand(NewVersionCommand())
	return root
}
