package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/blockfilter/pkg/chunk"
	"github.com/grafana/blockfilter/pkg/index"
)

// buildCommand builds and stores the filters of each data file in files.
type buildCommand struct {
	global      *globalFlags
	files       *[]string
	concurrency int
}

func (cmd *buildCommand) run(*kingpin.ParseContext) error {
	logger := cmd.global.logger()
	store, bucket, err := cmd.global.store(logger)
	if err != nil {
		exitWithErr(err)
	}
	defer func() { _ = bucket.Close() }()

	writer := index.NewWriter(store, logger)
	results := make([]*index.ChunkFilter, len(*cmd.files))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(cmd.concurrency)
	for i, name := range *cmd.files {
		g.Go(func() error {
			f, err := buildFile(ctx, writer, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		exitWithErr(err)
	}

	bold := color.New(color.Bold)
	for i, name := range *cmd.files {
		f := results[i]
		if f == nil {
			level.Warn(logger).Log("msg", "filters are disabled, nothing was built", "file", name)
			continue
		}
		bold.Printf("%s -> %s\n", name, store.ObjectPath(objectName(name)))
		printFilters(f)
	}
	return nil
}

func buildFile(ctx context.Context, writer *index.Writer, name string) (*index.ChunkFilter, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	chunks, err := chunk.ReadIPC(file, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	defer func() {
		for _, c := range chunks {
			c.Release()
		}
	}()

	return writer.Write(ctx, objectName(name), chunks)
}

// printFilters prints the size and distinct count of every filter of f.
func printFilters(f *index.ChunkFilter) {
	var total uint64
	for _, e := range f.FilterChunk().Entries() {
		total += uint64(len(e.Value.(chunk.ScalarValue).Scalar.Bytes()))
	}
	fmt.Printf("\tfilters: %d, size: %v\n", f.NumFilters(), humanize.Bytes(total))

	// Filters are stored in column order, one per indexed column.
	distinct := f.ColumnDistinctCount()
	offsets := slices.Sorted(maps.Keys(distinct))
	for i, e := range f.FilterChunk().Entries() {
		fmt.Printf("\t\tfilter: %s, %v", e.ID, humanize.Bytes(uint64(len(e.Value.(chunk.ScalarValue).Scalar.Bytes()))))
		if i < len(offsets) {
			fmt.Printf(", column offset: %d, ~%s distinct values", offsets[i], humanize.Comma(int64(distinct[offsets[i]])))
		}
		fmt.Println()
	}
}

func addBuildCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &buildCommand{global: g}
	build := app.Command("build", "Build and store the filters of arrow IPC data files.").Action(cmd.run)
	build.Flag("concurrency", "Number of files to build concurrently.").Default("4").IntVar(&cmd.concurrency)
	cmd.files = build.Arg("file", "The data files to build filters for.").Required().ExistingFiles()
}
