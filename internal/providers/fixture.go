package providers

import (
	"context"
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var builtinFixtures embed.FS

// fixtureFile is the on-disk layout of a fixture. A bare YAML list is also
// accepted and treated as the records.
type fixtureFile struct {
	Records   []RawRecord `yaml:"records"`
	Locations []RawRecord `yaml:"locations"`
}

// FixtureProvider serves deterministic records without network access.
type FixtureProvider struct {
	name      string
	records   []RawRecord
	locations []RawRecord
}

// NewFixtureProvider creates a FixtureProvider that returns records.
func NewFixtureProvider(name string, records []RawRecord) *FixtureProvider {
	return &FixtureProvider{
		name:    name,
		records: records,
	}
}

// WithLocations sets the records returned by ResolveLocation.
func (p *FixtureProvider) WithLocations(locations []RawRecord) *FixtureProvider {
	p.locations = locations
	return p
}

// WithName renames the provider.
func (p *FixtureProvider) WithName(name string) *FixtureProvider {
	p.name = name
	return p
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(name, path string) (*FixtureProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return parseFixture(name, data)
}

// BuiltinFixture returns the fixture bundled with the binary for kind.
func BuiltinFixture(kind Kind) (*FixtureProvider, error) {
	data, err := builtinFixtures.ReadFile("fixtures/" + string(kind) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin fixture for %q: %w", kind, err)
	}
	return parseFixture("fixture-"+string(kind), data)
}

func parseFixture(name string, data []byte) (*FixtureProvider, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var file fixtureFile
	switch {
	case len(node.Content) == 0:
		// empty document
	case node.Content[0].Kind == yaml.SequenceNode:
		if err := node.Content[0].Decode(&file.Records); err != nil {
			return nil, fmt.Errorf("failed to decode fixture records: %w", err)
		}
	default:
		if err := node.Content[0].Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode fixture: %w", err)
		}
	}

	return NewFixtureProvider(name, file.Records).WithLocations(file.Locations), nil
}

// Name returns the provider name.
func (p *FixtureProvider) Name() string {
	return p.name
}

// Search returns a copy of the fixture records.
func (p *FixtureProvider) Search(ctx context.Context, _ Query) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	return cloneAll(p.records), nil
}

// ResolveLocation returns the fixture locations, or echoes query as the id
// when the fixture has none.
func (p *FixtureProvider) ResolveLocation(ctx context.Context, query string) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	if len(p.locations) == 0 {
		return []RawRecord{{"dest_id": query, "name": query}}, nil
	}
	return cloneAll(p.locations), nil
}

func cloneAll(records []RawRecord) []RawRecord {
	out := make([]RawRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
