package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var queryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run a query and render the result set",
	Long: `Run a query on a closed connection and render the rows.

The connection is opened for the duration of the read and closed again
once the result has been loaded.`,
	Example: `  # List users
  dbscope query "SELECT id, name FROM users"

  # Named parameter, CSV output
  dbscope query "SELECT * FROM users WHERE id = @id" -p id=3 --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: logged(runQuery),
}

var (
	queryFormat     string
	queryLoadOption string
	queryNoProgress bool
)

func init() {
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "",
		"Output format: table, csv, markdown or html (default: configured format)")
	queryCmd.Flags().StringVar(&queryLoadOption, "load-option", "",
		"How rows are merged into the result: overwrite, preserve or upsert")
	queryCmd.Flags().BoolVar(&queryNoProgress, "no-progress", false,
		"Disable the row counter")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := application.Config()

	option, err := cfg.LoadOption()
	if err != nil {
		return err
	}
	if queryLoadOption != "" {
		if option, err = data.ParseLoadOption(queryLoadOption); err != nil {
			return err
		}
	}

	format := cfg.Output.Format
	if queryFormat != "" {
		format = queryFormat
	}

	command, err := newCommand(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := application.QueryContext(application.Context())
	defer cancel()

	result := data.NewDataTable("result")
	if queryNoProgress || !isatty.IsTerminal(os.Stderr.Fd()) {
		err = data.FillDataTableAutoContext(ctx, command, result, option)
	} else {
		err = loadWithProgress(ctx, cmd, command, result, option)
	}
	if err != nil {
		return err
	}

	if err := renderTable(cmd.OutOrStdout(), result, renderOptions{
		Format:   format,
		NullText: cfg.Output.NullText,
	}); err != nil {
		return err
	}

	if format == "table" {
		fmt.Fprintln(cmd.ErrOrStderr(), color.CyanString("(%d rows)", result.Len()))
	}
	return nil
}

// loadWithProgress reads the result through a spinner that counts rows.
func loadWithProgress(ctx context.Context, cmd *cobra.Command, command data.Command, result *data.DataTable, option data.LoadOption) (err error) {
	reader, err := data.ExecuteReaderAutoContext(ctx, command, data.BehaviorDefault)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Reading rows"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	return result.LoadContext(ctx, &countingReader{Reader: reader, bar: bar}, option)
}

// countingReader advances a progress bar for every row read.
type countingReader struct {
	data.Reader
	bar *progressbar.ProgressBar
}

func (r *countingReader) Next() bool {
	if !r.Reader.Next() {
		return false
	}
	_ = r.bar.Add(1)
	return true
}
