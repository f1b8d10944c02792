package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/grafana/blockfilter/pkg/chunk"
	"github.com/grafana/blockfilter/pkg/filter"
	"github.com/grafana/blockfilter/pkg/index"
)

// inspectCommand prints the stored filters of each data file in files.
type inspectCommand struct {
	global *globalFlags
	files  *[]string
}

func (cmd *inspectCommand) run(*kingpin.ParseContext) error {
	logger := cmd.global.logger()
	store, bucket, err := cmd.global.store(logger)
	if err != nil {
		exitWithErr(err)
	}
	defer func() { _ = bucket.Close() }()

	for _, name := range *cmd.files {
		cmd.printFile(context.Background(), store, name)
	}
	return nil
}

func (cmd *inspectCommand) printFile(ctx context.Context, store *index.Store, name string) {
	bold := color.New(color.Bold)

	f, ok, err := store.Get(ctx, objectName(name))
	if err != nil {
		exitWithErr(fmt.Errorf("%s: %w", name, err))
	}
	if !ok {
		color.Yellow("%s: no filters stored", name)
		return
	}

	bold.Printf("%s (%s):\n", name, store.ObjectPath(objectName(name)))
	fmt.Printf("\tfilters: %d\n", f.NumFilters())
	for _, e := range f.FilterChunk().Entries() {
		v, ok := e.Value.(chunk.ScalarValue)
		if !ok {
			color.Red("\t\t%s: not a scalar entry", e.ID)
			continue
		}
		xf, _, err := filter.FromBytes(v.Scalar.Bytes())
		if err != nil {
			color.Red("\t\t%s: %v", e.ID, err)
			continue
		}
		fmt.Printf(
			"\t\tfilter: %s, encoded size: %v, fingerprints: %v, empty: %t\n",
			e.ID,
			humanize.Bytes(uint64(len(v.Scalar.Bytes()))),
			humanize.Bytes(uint64(xf.Size())),
			xf.IsEmpty(),
		)
	}
}

func addInspectCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &inspectCommand{global: g}
	inspect := app.Command("inspect", "Print the stored filters of data files.").Action(cmd.run)
	cmd.files = inspect.Arg("file", "The data files to print filters of.").Required().Strings()
}
