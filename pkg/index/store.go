package index

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/thanos-io/objstore"

	"github.com/grafana/blockfilter/pkg/chunk"
	"github.com/grafana/blockfilter/pkg/datatype"
	"github.com/grafana/blockfilter/pkg/expr/fold"
)

// Store persists the filters of data files in object storage, next to the
// files they describe. The filter chunk of a file is stored as an arrow IPC
// stream.
//
// Loaded filters are cached; Store is safe for concurrent use.
type Store struct {
	cfg     Config
	fnCtx   fold.FunctionContext
	bucket  objstore.Bucket
	mem     memory.Allocator
	cache   *lru.Cache[string, *ChunkFilter]
	metrics *metrics
	logger  log.Logger
}

// NewStore returns a Store reading and writing filters in bucket.
func NewStore(cfg Config, bucket objstore.Bucket, logger log.Logger, reg prometheus.Registerer) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	fnCtx, err := cfg.FunctionContext()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &Store{
		cfg:     cfg,
		fnCtx:   fnCtx,
		bucket:  bucket,
		mem:     memory.NewGoAllocator(),
		metrics: newMetrics(),
		logger:  logger,
	}
	if cfg.CacheSize > 0 {
		if s.cache, err = lru.New[string, *ChunkFilter](cfg.CacheSize); err != nil {
			return nil, fmt.Errorf("creating filter cache: %w", err)
		}
	}
	if reg != nil {
		if err := s.metrics.register(reg); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return s, nil
}

// FunctionContext returns the function context of filters loaded by s.
func (s *Store) FunctionContext() fold.FunctionContext {
	return s.fnCtx
}

// ObjectPath returns the object storage path of the filters of the data file
// at path.
func (s *Store) ObjectPath(path string) string {
	return s.cfg.StoragePrefix + path + ".filter"
}

// Put stores the filters of the data file at path.
func (s *Store) Put(ctx context.Context, path string, f *ChunkFilter) error {
	var buf bytes.Buffer
	if err := chunk.WriteIPC(&buf, s.mem, f.FilterChunk()); err != nil {
		return fmt.Errorf("encoding filter chunk: %w", err)
	}

	objectPath := s.ObjectPath(path)
	if err := s.bucket.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("uploading filter object %s: %w", objectPath, err)
	}
	s.metrics.objectsUploaded.Inc()

	if s.cache != nil {
		s.cache.Remove(objectPath)
	}

	level.Debug(s.logger).Log("msg", "uploaded filter object", "path", objectPath, "filters", f.NumFilters(), "size", buf.Len())
	return nil
}

// Get returns the filters of the data file at path. ok is false when no
// filters were stored for the file.
func (s *Store) Get(ctx context.Context, path string) (f *ChunkFilter, ok bool, err error) {
	objectPath := s.ObjectPath(path)

	if s.cache != nil {
		if f, ok := s.cache.Get(objectPath); ok {
			s.metrics.observeCache(true)
			return f, true, nil
		}
		s.metrics.observeCache(false)
	}

	rc, err := s.bucket.Get(ctx, objectPath)
	if err != nil {
		if s.bucket.IsObjNotFoundErr(err) {
			s.metrics.objectsNotFound.Inc()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting filter object %s: %w", objectPath, err)
	}
	defer rc.Close()

	filterChunk, err := readFilterChunk(rc, s.mem)
	if err != nil {
		s.metrics.decodeFailures.Inc()
		return nil, false, fmt.Errorf("reading filter object %s: %w", objectPath, err)
	}

	f = FromFilterChunk(s.fnCtx, filterChunk)
	if s.cache != nil {
		s.cache.Add(objectPath, f)
	}
	return f, true, nil
}

// Delete removes the filters of the data file at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	objectPath := s.ObjectPath(path)
	if s.cache != nil {
		s.cache.Remove(objectPath)
	}
	if err := s.bucket.Delete(ctx, objectPath); err != nil && !s.bucket.IsObjNotFoundErr(err) {
		return fmt.Errorf("deleting filter object %s: %w", objectPath, err)
	}
	return nil
}

// Close unregisters the metrics of s from reg.
func (s *Store) Close(reg prometheus.Registerer) {
	if reg != nil {
		s.metrics.unregister(reg)
	}
}

// readFilterChunk reads a filter chunk written by Put. The one-row filter
// columns of the stream are turned back into scalar entries, so the
// returned chunk holds no arrow memory.
func readFilterChunk(r io.Reader, mem memory.Allocator) (*chunk.Chunk, error) {
	chunks, err := chunk.ReadIPC(r, mem)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, c := range chunks {
			c.Release()
		}
	}()

	if len(chunks) != 1 {
		return nil, fmt.Errorf("expected 1 filter chunk, got %d", len(chunks))
	}
	stored := chunks[0]
	if stored.NumRows() != 1 {
		return nil, fmt.Errorf("expected 1 row in filter chunk, got %d", stored.NumRows())
	}

	entries := make([]chunk.Entry, 0, stored.NumColumns())
	for _, e := range stored.Entries() {
		var value datatype.Scalar
		err := e.ForEach(stored.NumRows(), func(s datatype.Scalar) error {
			value = s
			return nil
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, chunk.Entry{
			ID:       e.ID,
			DataType: e.DataType,
			Value:    chunk.ScalarValue{Scalar: value},
		})
	}
	return chunk.New(entries, 1)
}
