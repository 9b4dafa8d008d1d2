package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/dbscope/pkg/data"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Open and close a connection to check connectivity",
	Args:  cobra.NoArgs,
	RunE:  logged(runPing),
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, err := application.NewConnection()
	if err != nil {
		return err
	}

	ctx, cancel := application.QueryContext(application.Context())
	defer cancel()

	start := time.Now()
	scope, err := data.NewScopeContext(ctx, conn, data.WithLogger(application.Logger()))
	if err != nil {
		return err
	}
	openState := conn.State()
	elapsed := time.Since(start)

	if err := scope.Close(); err != nil {
		return err
	}

	cfg := application.Config()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) in %s, now %s\n",
		color.GreenString("✓ connected"),
		cfg.Database.Driver,
		openState,
		elapsed.Round(time.Microsecond),
		conn.State(),
	)
	return nil
}
