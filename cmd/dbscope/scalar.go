package main

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var scalarCmd = &cobra.Command{
	Use:   "scalar SQL",
	Short: "Print the first column of the first row",
	Long: `Run a query and print the first column of its first row, converted to
the type named by --as.

A "*" prefix makes the type nullable: NULL then prints as the configured
null text instead of failing the conversion.`,
	Example: `  dbscope scalar "SELECT count(*) FROM users" --as int64
  dbscope scalar "SELECT name FROM users WHERE id = @id" -p id=7 --as '*string'`,
	Args: cobra.ExactArgs(1),
	RunE: logged(runScalar),
}

var scalarAs string

func init() {
	scalarCmd.Flags().StringVar(&scalarAs, "as", "any",
		"Result type: "+strings.Join(scalarTypeNames(), ", "))
}

type scalarFunc func(ctx context.Context, command data.Command) (any, error)

func scalarAsType[T any](ctx context.Context, command data.Command) (any, error) {
	return data.ExecuteScalarAutoAsContext[T](ctx, command)
}

var scalarTypes = map[string]scalarFunc{
	"any":      data.ExecuteScalarAutoContext,
	"string":   scalarAsType[string],
	"*string":  scalarAsType[*string],
	"int":      scalarAsType[int],
	"*int":     scalarAsType[*int],
	"int64":    scalarAsType[int64],
	"*int64":   scalarAsType[*int64],
	"float64":  scalarAsType[float64],
	"*float64": scalarAsType[*float64],
	"bool":     scalarAsType[bool],
	"*bool":    scalarAsType[*bool],
	"time":     scalarAsType[time.Time],
	"*time":    scalarAsType[*time.Time],
	"uuid":     scalarAsType[uuid.UUID],
	"*uuid":    scalarAsType[*uuid.UUID],
	"decimal":  scalarAsType[decimal.Decimal],
	"*decimal": scalarAsType[*decimal.Decimal],
}

func scalarTypeNames() []string {
	names := make([]string, 0, len(scalarTypes))
	for name := range scalarTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runScalar(cmd *cobra.Command, args []string) error {
	fn, ok := scalarTypes[strings.ToLower(scalarAs)]
	if !ok {
		return errors.Errorf("unknown type %q (want one of %s)", scalarAs, strings.Join(scalarTypeNames(), ", "))
	}

	command, err := newCommand(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := application.QueryContext(application.Context())
	defer cancel()

	value, err := fn(ctx, command)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatScalar(value, application.Config().Output.NullText))
	return nil
}

// formatScalar prints value, dereferencing pointers. nil and DBNull print
// as nullText.
func formatScalar(value any, nullText string) string {
	if value == nil || data.IsNull(value) {
		return nullText
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nullText
		}
		value = rv.Elem().Interface()
	}
	return formatCell(value)
}
