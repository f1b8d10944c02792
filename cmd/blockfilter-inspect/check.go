package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr"
	"github.com/grafana/blockfilter/pkg/index"
)

// checkCommand reports, for each data file in files, whether a scan for
// `column = value` could skip it.
type checkCommand struct {
	global   *globalFlags
	column   string
	value    string
	typeName string
	files    *[]string
}

func (cmd *checkCommand) run(*kingpin.ParseContext) error {
	kind, ok := datatype.KindFromString(cmd.typeName)
	if !ok {
		exitWithErr(fmt.Errorf("unknown type %q", cmd.typeName))
	}

	logger := cmd.global.logger()
	store, bucket, err := cmd.global.store(logger)
	if err != nil {
		exitWithErr(err)
	}
	defer func() { _ = bucket.Close() }()

	// The value is given as text; lookups cast it to the column type.
	predicate := expr.Eq(
		expr.Col(cmd.column, datatype.DataType{Kind: kind, Nullable: true}),
		expr.Lit(datatype.StringScalar(cmd.value)),
	)
	fmt.Printf("predicate: %s\n", predicate)

	pruner := index.NewPruner(store, logger)
	for _, name := range *cmd.files {
		skip, err := pruner.Prune(context.Background(), objectName(name), predicate)
		switch {
		case err != nil:
			color.Red("%s: %v", name, err)
		case skip:
			color.Green("%s: %s (skip)", name, index.MustFalse)
		default:
			color.Yellow("%s: %s (scan)", name, index.Uncertain)
		}
	}
	return nil
}

func addCheckCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &checkCommand{global: g}
	check := app.Command("check", "Check whether data files may contain a column value.").Action(cmd.run)

	var kinds []string
	for _, k := range datatype.Kinds() {
		kinds = append(kinds, k.String())
	}
	slices.Sort(kinds)

	check.Flag("type", "Type of the column.").Default(datatype.KindString.String()).EnumVar(&cmd.typeName, kinds...)
	check.Arg("column", "The column to look up.").Required().StringVar(&cmd.column)
	check.Arg("value", "The value to look up.").Required().StringVar(&cmd.value)
	cmd.files = check.Arg("file", "The data files to check.").Required().Strings()
}
