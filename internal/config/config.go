// Package config loads channel profiles: the per-channel knobs an
// operator sets before an engine is built.
//
// Profiles are YAML documents validated against an embedded CUE schema,
// so malformed profiles (zero seeds, absurd capacities, unnamed channels)
// are rejected at load time with positioned errors instead of surfacing
// as engine misbehavior later.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/halcyonlabs/replaygate/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Profile configures one protected channel.
type Profile struct {
	Name           string `yaml:"name"`
	Seed           uint32 `yaml:"seed"`
	CacheCapacity  int    `yaml:"cache_capacity"`
	AuditDB        string `yaml:"audit_db"`
	PollBudget     int    `yaml:"poll_budget"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

// Default returns the profile used when no file is given: hardware-sized
// cache, power-on seed, and the original suite's poll budget of 1000.
func Default() *Profile {
	return &Profile{
		Name:           "default",
		Seed:           engine.DefaultSeed,
		CacheCapacity:  engine.DefaultCacheCapacity,
		PollBudget:     1000,
		PollIntervalMS: 1,
	}
}

// Load reads and validates a profile file. Schema violations are returned
// as a single error carrying every CUE complaint.
func Load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(raw)
}

// Parse validates and decodes profile bytes.
func Parse(raw []byte) (*Profile, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// validate unifies the document with the embedded #Profile schema.
func validate(data map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	profileDef := schema.LookupPath(cue.ParsePath("#Profile"))
	if !profileDef.Exists() {
		return fmt.Errorf("schema is missing #Profile")
	}

	unified := profileDef.Unify(ctx.Encode(data))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// EngineOptions translates the profile into engine construction options.
func (p *Profile) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithSeed(p.Seed),
		engine.WithCacheCapacity(p.CacheCapacity),
	}
}
