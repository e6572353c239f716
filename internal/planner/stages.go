package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alex-user-go/tripplan/internal/normalize"
	"github.com/alex-user-go/tripplan/internal/planner/merge"
	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/providers"
)

type searchFunc func(ctx context.Context) ([]providers.RawRecord, error)

func (o *Orchestrator) fetchFlights(ctx context.Context, r *run, q providers.Query, logger *slog.Logger) {
	results := o.searchAll(ctx, r, providers.KindFlights, o.sources.Flights, logger, func(p providers.Provider) (providers.Query, error) {
		return q, nil
	})

	offers, errs := normalize.Flights(merge.Merge(results, identityKey(providers.KindFlights, o.opts)))
	o.recordMalformed(r, errs, logger)
	r.bundle.Flights = offers

	logger.Debug("stage complete", "stage", types.StateFlightsFetched, "count", len(offers))
}

// fetchLodging resolves the destination with providers that support it and
// then searches with the resolved location id.
func (o *Orchestrator) fetchLodging(ctx context.Context, r *run, q providers.Query, logger *slog.Logger) {
	results := o.searchAll(ctx, r, providers.KindLodging, o.sources.Lodging, logger, func(p providers.Provider) (providers.Query, error) {
		resolver, ok := p.(providers.LocationResolver)
		if !ok {
			return q, nil
		}

		locations, err := o.call(ctx, p, func(ctx context.Context) ([]providers.RawRecord, error) {
			return resolver.ResolveLocation(ctx, q.Destination)
		})
		if err != nil {
			return q, err
		}

		id := locationID(locations)
		if id == "" {
			return q, fmt.Errorf("%w for %q", ErrNoLocation, q.Destination)
		}
		logger.Debug("stage complete", "stage", types.StateLodgingResolved, "provider", p.Name(), "location_id", id)

		resolved := q
		resolved.LocationID = id
		return resolved, nil
	})

	offers, errs := normalize.Lodgings(merge.Merge(results, identityKey(providers.KindLodging, o.opts)))
	o.recordMalformed(r, errs, logger)
	r.bundle.Lodgings = offers

	logger.Debug("stage complete", "stage", types.StateLodgingFetched, "count", len(offers))
}

// fetchWeather keeps the first snapshot in provider order.
func (o *Orchestrator) fetchWeather(ctx context.Context, r *run, q providers.Query, logger *slog.Logger) {
	results := o.searchAll(ctx, r, providers.KindWeather, o.sources.Weather, logger, func(p providers.Provider) (providers.Query, error) {
		return providers.Query{Destination: q.Destination}, nil
	})

	for _, records := range results {
		if len(records) == 0 {
			continue
		}
		snap, err := normalize.Weather(records[0])
		if err != nil {
			o.recordMalformed(r, []error{err}, logger)
		}
		if snap.Location == "" {
			snap.Location = q.Destination
		}
		r.bundle.Weather = &snap
		break
	}

	logger.Debug("stage complete", "stage", types.StateWeatherFetched, "found", r.bundle.Weather != nil)
}

// searchAll queries every provider of one kind. prepare builds the query for
// a provider and may fail it before the search. Results keep provider order;
// a failed provider contributes nothing.
func (o *Orchestrator) searchAll(
	ctx context.Context,
	r *run,
	kind providers.Kind,
	list []providers.Provider,
	logger *slog.Logger,
	prepare func(p providers.Provider) (providers.Query, error),
) [][]providers.RawRecord {
	results := make([][]providers.RawRecord, len(list))

	search := func(i int) {
		p := list[i]
		records, err := func() ([]providers.RawRecord, error) {
			q, err := prepare(p)
			if err != nil {
				return nil, err
			}
			return o.call(ctx, p, func(ctx context.Context) ([]providers.RawRecord, error) {
				return p.Search(ctx, q)
			})
		}()
		if err != nil {
			o.recordFailure(r, &ProviderError{Kind: kind, Provider: p.Name(), Err: err}, logger)
			return
		}

		results[i] = tag(records, kind, p.Name(), identityKey(kind, o.opts))
		r.mu.Lock()
		r.succeeded++
		r.mu.Unlock()
	}

	if !o.opts.Parallel {
		for i := range list {
			search(i)
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range list {
		wg.Go(func() {
			search(i)
		})
	}
	wg.Wait()
	return results
}

// call runs fn with the per-provider deadline. A provider that panics or
// ignores its context past the deadline is reported as failed; its goroutine
// is abandoned.
func (o *Orchestrator) call(ctx context.Context, p providers.Provider, fn searchFunc) ([]providers.RawRecord, error) {
	if o.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ProviderTimeout)
		defer cancel()
	}

	type result struct {
		records []providers.RawRecord
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- result{err: fmt.Errorf("provider %s panicked: %v", p.Name(), v)}
			}
		}()
		records, err := fn(ctx)
		done <- result{records: records, err: err}
	}()

	select {
	case res := <-done:
		return res.records, res.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func (o *Orchestrator) recordFailure(r *run, err *ProviderError, logger *slog.Logger) {
	r.mu.Lock()
	r.failed++
	r.warnings = append(r.warnings, err.Error())
	r.mu.Unlock()

	o.metrics.IncProviderErrors(err.Kind)
	logger.Warn("provider failed", "kind", err.Kind, "provider", err.Provider, "error", err.Err)
}

func (o *Orchestrator) recordMalformed(r *run, errs []error, logger *slog.Logger) {
	if len(errs) == 0 {
		return
	}
	for _, err := range errs {
		logger.Warn("malformed record", "error", err)
	}

	r.mu.Lock()
	r.malformed += len(errs)
	r.mu.Unlock()
	o.metrics.AddMalformedRecords(len(errs))
}

func identityKey(kind providers.Kind, opts Options) string {
	switch kind {
	case providers.KindFlights:
		return normalize.Key(opts.FlightKey)
	case providers.KindLodging:
		return normalize.Key(opts.LodgingKey)
	default:
		return ""
	}
}

// tag resolves records to their canonical form, stamps the provider name
// and assigns a provider-local identity to records that have none so that
// they survive the merge. key must already be in clean form.
func tag(records []providers.RawRecord, kind providers.Kind, source, key string) []providers.RawRecord {
	out := make([]providers.RawRecord, 0, len(records))
	for i, raw := range records {
		if raw == nil {
			continue
		}
		rec := normalize.Canonical(kind, raw)
		if _, ok := rec["source"]; !ok {
			rec["source"] = source
		}
		if key != "" && blank(rec[key]) {
			// Custom identity keys are not canonical fields.
			if v := normalize.Clean(raw)[key]; !blank(v) {
				rec[key] = v
			} else {
				rec[key] = fmt.Sprintf("%s-%d", source, i+1)
			}
		}
		out = append(out, rec)
	}
	return out
}

func blank(v any) bool {
	return v == nil || v == ""
}

// locationID picks the id of the first resolved location.
func locationID(locations []providers.RawRecord) string {
	if len(locations) == 0 {
		return ""
	}
	for _, key := range []string{"dest_id", "destination_id", "location_id", "id"} {
		if v, ok := locations[0][key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}
