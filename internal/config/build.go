package config

import (
	"fmt"

	"github.com/alex-user-go/tripplan/internal/planner"
	"github.com/alex-user-go/tripplan/internal/planner/scoring"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// PlannerOptions converts the planner, budget, scoring and merge sections.
func (c *Config) PlannerOptions() planner.Options {
	return planner.Options{
		Timeout:         c.Planner.Timeout,
		ProviderTimeout: c.Planner.ProviderTimeout,
		Parallel:        c.Planner.Parallel,
		Score:           c.Planner.Score,
		TopN:            c.Planner.TopN,
		DefaultNights:   c.Planner.DefaultNights,
		Allocation:      c.Budget,
		Weights: scoring.Weights{
			MaxStopPenalty: c.Scoring.MaxStopPenalty,
			PerAmount:      c.Scoring.PerAmount,
		},
		FlightKey:  c.Merge.FlightKey,
		LodgingKey: c.Merge.LodgingKey,
	}
}

// Sources builds the configured providers.
func (c *Config) Sources() (planner.Sources, error) {
	var (
		sources planner.Sources
		err     error
	)
	if sources.Flights, err = buildProviders(providers.KindFlights, c.Providers.Flights); err != nil {
		return planner.Sources{}, err
	}
	if sources.Lodging, err = buildProviders(providers.KindLodging, c.Providers.Lodging); err != nil {
		return planner.Sources{}, err
	}
	if sources.Weather, err = buildProviders(providers.KindWeather, c.Providers.Weather); err != nil {
		return planner.Sources{}, err
	}
	return sources, nil
}

func buildProviders(kind providers.Kind, list []ProviderConfig) ([]providers.Provider, error) {
	out := make([]providers.Provider, 0, len(list))
	for _, pc := range list {
		p, err := buildProvider(kind, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s provider %q: %w", kind, pc.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func buildProvider(kind providers.Kind, pc ProviderConfig) (providers.Provider, error) {
	switch pc.Type {
	case ProviderFixture:
		if pc.File != "" {
			return providers.LoadFixtureFile(pc.Name, pc.File)
		}
		p, err := providers.BuiltinFixture(kind)
		if err != nil {
			return nil, err
		}
		return p.WithName(pc.Name), nil
	case ProviderRemote:
		return providers.NewRemoteProvider(providers.RemoteOptions{
			Name:               pc.Name,
			BaseURL:            pc.BaseURL,
			SearchPath:         pc.SearchPath,
			ResultsPath:        pc.ResultsPath,
			ResolvePath:        pc.ResolvePath,
			ResolveResultsPath: pc.ResolveResultsPath,
			APIKey:             pc.APIKey,
			APIKeyHeader:       pc.APIKeyHeader,
			Params:             pc.Params,
			Timeout:            pc.Timeout,
			MaxAttempts:        pc.MaxAttempts,
			Backoff:            pc.Backoff,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProviderType, pc.Type)
	}
}
