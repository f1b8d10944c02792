package index

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/blockfilter/pkg/expr"
)

// Pruner decides which data files a scan can skip.
type Pruner struct {
	store  *Store
	logger log.Logger
}

// NewPruner returns a Pruner reading filters from store.
func NewPruner(store *Store, logger log.Logger) *Pruner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Pruner{store: store, logger: logger}
}

// Prune reports whether the data file at path can be skipped for predicate.
// Files without stored filters, and every file when filters are disabled,
// are never skipped. Errors loading or evaluating filters are returned; the
// caller should scan the file in that case.
func (p *Pruner) Prune(ctx context.Context, path string, predicate expr.Expression) (bool, error) {
	if !p.store.cfg.Enabled {
		return false, nil
	}

	f, ok, err := p.store.Get(ctx, path)
	if err != nil {
		level.Warn(p.logger).Log("msg", "failed to load filters", "path", path, "err", err)
		return false, err
	}
	if !ok {
		level.Debug(p.logger).Log("msg", "no filters stored for file", "path", path)
		return false, nil
	}

	result, err := f.Eval(predicate)
	if err != nil {
		p.store.metrics.decodeFailures.Inc()
		level.Warn(p.logger).Log("msg", "failed to evaluate filters", "path", path, "err", err)
		return false, err
	}

	p.store.metrics.observePrune(result)
	level.Debug(p.logger).Log("msg", "evaluated filters", "path", path, "predicate", predicate, "result", result)
	return result == MustFalse, nil
}
