package aggregate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pricefinder/internal/metrics"
	"pricefinder/internal/product"
	"pricefinder/internal/source"
)

// ErrNoData is returned when no source produced any usable field for a
// barcode. Sources may still have recorded errors on the way there.
var ErrNoData = errors.New("no source returned product data")

// DefaultTimeout bounds one whole lookup across all sources, including one
// pass of the slowest vendor's throttle.
const DefaultTimeout = 25 * time.Second

// Options tune the engine.
type Options struct {
	Timeout time.Duration
}

// Engine fans a lookup out to every registered source concurrently and merges
// the completed answers into one record. Source registration order is fixed,
// so the first-value-wins metadata merge is deterministic even though
// completion order is not.
type Engine struct {
	sources []source.Source
	opts    Options
	logger  zerolog.Logger
}

// New constructs an engine over an ordered source list.
func New(sources []source.Source, opts Options, logger zerolog.Logger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Engine{
		sources: sources,
		opts:    opts,
		logger:  logger.With().Str("component", "aggregate_engine").Logger(),
	}
}

type outcome struct {
	index int
	view  *product.View
	err   error
}

// Lookup queries every source and merges whatever completed within the
// timeout. Stragglers are abandoned; their context is cancelled on return.
func (e *Engine) Lookup(ctx context.Context, barcode string) (*product.Record, error) {
	if len(e.sources) == 0 {
		return nil, ErrNoData
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	results := make(chan outcome, len(e.sources))
	for i, src := range e.sources {
		go func(i int, src source.Source) {
			view, err := src.Fetch(ctx, barcode)
			results <- outcome{index: i, view: view, err: err}
		}(i, src)
	}

	views := make([]*product.View, len(e.sources))
	errs := make([]error, len(e.sources))

	received := 0
collect:
	for received < len(e.sources) {
		select {
		case out := <-results:
			views[out.index] = out.view
			errs[out.index] = out.err
			received++
		case <-ctx.Done():
			e.logger.Warn().Str("barcode", barcode).
				Int("completed", received).Int("total", len(e.sources)).
				Msg("lookup deadline reached, merging completed sources")
			break collect
		}
	}

	return e.merge(barcode, views, errs)
}

// merge folds the per-source outcomes into one record, in registration order.
func (e *Engine) merge(barcode string, views []*product.View, errs []error) (*product.Record, error) {
	record := &product.Record{Barcode: barcode}

	for i, src := range e.sources {
		if errs[i] != nil {
			e.logger.Warn().Str("source", src.Name()).Err(errs[i]).Str("barcode", barcode).Msg("source lookup failed")
			metrics.SourceFailures.WithLabelValues(src.Name()).Inc()
			record.Errors = append(record.Errors, product.SourceError{
				Source: src.Name(),
				Error:  errs[i].Error(),
			})
			continue
		}
		if views[i] == nil {
			continue
		}
		record.Absorb(views[i])
	}

	record.RankOffers()

	if !record.HasData() {
		return nil, ErrNoData
	}

	e.logger.Info().Str("barcode", barcode).
		Strs("data_sources", record.DataSources).
		Int("offers", len(record.AllStores)).
		Int("source_errors", len(record.Errors)).
		Msg("lookup merged")
	return record, nil
}
