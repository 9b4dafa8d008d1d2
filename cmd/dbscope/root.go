package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VatsalSy/dbscope/internal/app"
	"github.com/VatsalSy/dbscope/internal/config"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var (
	cfgFile     string
	verbose     bool
	params      []string
	application *app.App
	rootCmd     = &cobra.Command{
		Use:   "dbscope",
		Short: "Run SQL through scoped, self-closing connections",
		Long: `dbscope runs statements against SQLite or PostgreSQL the way an
application would: each command opens the connection only if it was closed,
runs the statement, and restores the connection to its initial state.

Features:
  • Query results rendered as table, CSV, Markdown or HTML
  • Statements with optional confirmation and transaction
  • Typed scalar conversion with NULL handling
  • Rate-limited scalar benchmarks`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: initApp,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application == nil {
				return nil
			}
			return application.Stop()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.dbscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().String("driver", "",
		"database driver: sqlite3, pgx or postgres")
	rootCmd.PersistentFlags().String("dsn", "",
		"data source name or connection string")
	rootCmd.PersistentFlags().StringArrayVarP(&params, "param", "p", nil,
		"statement parameter as name=value, or value for positional (repeatable)")

	// Bind flags to viper
	cobra.CheckErr(viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("driver")))
	cobra.CheckErr(viper.BindPFlag("database.dsn", rootCmd.PersistentFlags().Lookup("dsn")))

	// Add commands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(scalarCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(pingCmd)

	// Enable shell completion
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

// initApp loads the configuration and initializes the application.
func initApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if !cfg.Output.Color {
		color.NoColor = true
	}

	application, err = app.New()
	if err != nil {
		return err
	}
	if err := application.InitializeWithConfig(cfg); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", config.ConfigPath())
		return application.Logger().SetLevel("debug")
	}
	return nil
}

// logged wraps a command's RunE so its duration and any failure are logged.
func logged(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return application.Logger().Operation(cmd.Name(), func() error {
			return run(cmd, args)
		})
	}
}

// newCommand creates a command for text on a fresh connection and binds
// the --param flags to it.
func newCommand(text string) (data.Command, error) {
	conn, err := application.NewConnection()
	if err != nil {
		return nil, err
	}
	command, err := data.CreateCommand(conn, text)
	if err != nil {
		return nil, err
	}
	if err := bindParams(command, params); err != nil {
		return nil, err
	}
	return command, nil
}
