package index

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/blockfilter/pkg/chunk"
)

// Writer builds the filters of data files as they are written and stores
// them.
type Writer struct {
	store  *Store
	logger log.Logger
}

// NewWriter returns a Writer storing filters in store.
func NewWriter(store *Store, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Writer{store: store, logger: logger}
}

// Write builds the filters of the data file at path from its chunks and
// stores them. It returns nil without building anything when filters are
// disabled.
//
// A failure leaves the data file without filters; callers decide whether
// that fails the write.
func (w *Writer) Write(ctx context.Context, path string, chunks []*chunk.Chunk) (*ChunkFilter, error) {
	if !w.store.cfg.Enabled {
		return nil, nil
	}

	logger := log.With(w.logger, "path", path)
	start := time.Now()

	f, err := New(w.store.FunctionContext(), chunks)
	if err != nil {
		level.Error(logger).Log("msg", "failed to build filters", "err", err)
		return nil, fmt.Errorf("building filters for %s: %w", path, err)
	}
	w.store.metrics.buildDuration.Observe(time.Since(start).Seconds())

	var size int
	distinct := f.ColumnDistinctCount()
	for i := range chunks[0].NumColumns() {
		count, ok := distinct[i]
		if !ok {
			continue
		}
		column := chunks[0].GetByOffset(i).ID
		entry, _ := f.FilterChunk().GetByID(FilterColumnName(column))
		filterSize := len(entry.Value.(chunk.ScalarValue).Scalar.Str())
		size += filterSize

		level.Debug(logger).Log("msg", "built column filter", "column", column, "distinct", count, "size", humanize.Bytes(uint64(filterSize)))
	}

	w.store.metrics.filtersBuilt.Add(float64(f.NumFilters()))
	w.store.metrics.filterBytes.Add(float64(size))

	if err := w.store.Put(ctx, path, f); err != nil {
		level.Error(logger).Log("msg", "failed to store filters", "err", err)
		return nil, err
	}

	level.Info(logger).Log("msg", "finished building filters", "filters", f.NumFilters(), "size", humanize.Bytes(uint64(size)), "duration", time.Since(start))
	return f, nil
}
