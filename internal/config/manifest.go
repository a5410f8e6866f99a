// Package config loads strategy manifests: which strategies to register, with
// which flavors and applicability conditions, plus an optional lineage lock.
//
// A manifest looks like:
//
//	strategies:
//	  - id: message
//	    version: "1.0"
//	    applicable: 'message != nil'
//	  - id: stacktrace
//	    version: "2.0"
//	    priority: 50
//	    flavors: [platform:python, platform:generic]
//	    behavior: python-stacktrace
//	lineage:
//	  platform:python: [stacktrace:1.0]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aqilarik/grouping/grouping"
	"github.com/aqilarik/grouping/internal/util"
)

// MaxManifestSize is the largest manifest Load and Parse accept (1MB).
const MaxManifestSize = 1024 * 1024

// Manifest is the root of a strategy manifest file.
type Manifest struct {
	Strategies []StrategyYAML `yaml:"strategies"`
	// Lineage maps a flavor key to committed "identifier:version" full ids.
	Lineage map[string][]string `yaml:"lineage,omitempty"`
}

// StrategyYAML is one strategy registration.
type StrategyYAML struct {
	ID         string   `yaml:"id"`
	Version    string   `yaml:"version"`
	Priority   *int     `yaml:"priority,omitempty"`
	Flavors    []string `yaml:"flavors,omitempty"`
	Applicable string   `yaml:"applicable,omitempty"`
	// Behavior names the implementation; defaults to ID.
	Behavior string `yaml:"behavior,omitempty"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.Size() > MaxManifestSize {
		return nil, fmt.Errorf("manifest %s too large: %d bytes (max %d)", path, info.Size(), MaxManifestSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest, rejecting unknown fields.
func Parse(data []byte) (*Manifest, error) {
	if len(data) > MaxManifestSize {
		return nil, fmt.Errorf("manifest too large: %d bytes (max %d)", len(data), MaxManifestSize)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for i, s := range m.Strategies {
		if s.ID == "" {
			return nil, fmt.Errorf("strategies[%d]: missing id", i)
		}
		if s.Version == "" {
			return nil, fmt.Errorf("strategies[%d] (%s): missing version", i, s.ID)
		}
	}
	return &m, nil
}

// Apply registers every strategy in the manifest on r. behaviors maps behavior
// names to implementations; an unknown name is an error.
func (m *Manifest) Apply(r *grouping.Registry, behaviors map[string]grouping.Strategy) error {
	for _, s := range m.Strategies {
		name := s.Behavior
		if name == "" {
			name = s.ID
		}
		impl, ok := behaviors[name]
		if !ok {
			return fmt.Errorf("strategy %s:%s: unknown behavior %q", s.ID, s.Version, name)
		}

		var opts []grouping.StrategyOption
		if s.Priority != nil {
			opts = append(opts, grouping.WithPriority(*s.Priority))
		}
		if len(s.Flavors) > 0 {
			opts = append(opts, grouping.WithFlavors(s.Flavors...))
		}
		if s.Applicable != "" {
			opts = append(opts, grouping.WithCondition(s.Applicable))
		}
		if err := r.Register(s.ID, s.Version, impl, opts...); err != nil {
			return err
		}
	}
	return nil
}

// LineageLock converts the lineage section into a lock table.
func (m *Manifest) LineageLock() (grouping.LineageLock, error) {
	lock := grouping.LineageLock{}
	for flavor, ids := range m.Lineage {
		for _, full := range ids {
			id, version, ok := util.SplitFullID(full)
			if !ok {
				return nil, fmt.Errorf("lineage %s: malformed strategy id %q", flavor, full)
			}
			if _, err := grouping.ParseVersion(version); err != nil {
				return nil, fmt.Errorf("lineage %s: %w", flavor, err)
			}
			lock.Set(flavor, id, version)
		}
	}
	return lock, nil
}
