package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var execCmd = &cobra.Command{
	Use:   "exec SQL",
	Short: "Execute a statement and report the rows affected",
	Long: `Execute a statement that does not return rows.

Unless --yes is given, the statement is shown and must be confirmed.
With --tx the statement runs in a transaction that is committed only when
it succeeds.`,
	Example: `  dbscope exec "DELETE FROM sessions WHERE expires < @now" -p now=2025-01-01 --yes
  dbscope exec "UPDATE users SET active = false" --tx`,
	Args: cobra.ExactArgs(1),
	RunE: logged(runExec),
}

var (
	execYes bool
	execTx  bool
)

func init() {
	execCmd.Flags().BoolVarP(&execYes, "yes", "y", false,
		"Do not ask for confirmation")
	execCmd.Flags().BoolVar(&execTx, "tx", false,
		"Run the statement in a transaction")
}

func runExec(cmd *cobra.Command, args []string) error {
	statement := args[0]

	if !execYes {
		confirmed, err := confirmStatement(statement)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Cancelled"))
			return nil
		}
	}

	command, err := newCommand(statement)
	if err != nil {
		return err
	}

	ctx, cancel := application.QueryContext(application.Context())
	defer cancel()

	var affected int64
	if execTx || application.Config().Query.Transaction {
		opts, err := application.ScopeOptions(true)
		if err != nil {
			return err
		}
		err = data.RunInTransaction(ctx, command.Connection(), func(*data.Scope) error {
			var execErr error
			affected, execErr = data.AsContextCommand(command).ExecuteNonQueryContext(ctx)
			return execErr
		}, opts...)
		if err != nil {
			return err
		}
	} else {
		affected, err = data.ExecuteNonQueryAutoContext(ctx, command)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ %d rows affected", affected))
	return nil
}

func confirmStatement(statement string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, errors.NewSimple("refusing to execute without confirmation on a non-interactive terminal; pass --yes")
	}

	fmt.Fprintln(os.Stderr, color.CyanString(statement))
	confirm := false
	prompt := &survey.Confirm{
		Message: "Execute this statement?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirm); err != nil {
		return false, err
	}
	return confirm, nil
}
