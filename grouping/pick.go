package grouping

import (
	"fmt"
	"log/slog"

	"github.com/aqilarik/grouping/internal/record"
)

// LineageLock maps flavor key -> identifier -> version already committed for a
// grouping lineage. A missing entry means the latest version may be used.
type LineageLock map[string]map[string]string

// Version returns the locked version of identifier under flavorKey.
func (l LineageLock) Version(flavorKey, identifier string) (string, bool) {
	v, ok := l[flavorKey][identifier]
	return v, ok
}

// Set records a locked version. Loaders use it while building a lock; the
// resolver never mutates a lock it was given.
func (l LineageLock) Set(flavorKey, identifier, version string) {
	m, ok := l[flavorKey]
	if !ok {
		m = make(map[string]string)
		l[flavorKey] = m
	}
	m[identifier] = version
}

// Dispatch is the outcome of one top-level strategy run during Evaluate.
type Dispatch = record.Dispatch

const (
	OutcomeContributed = record.Contributed
	OutcomePruned      = record.Pruned
	OutcomeNotFound    = record.NotFound
	OutcomeFailed      = record.Failed
)

// Pick is the per-event strategy selection. Strategies already committed in the
// lineage lock are "old" and keep their locked version; the rest are "new" and
// keep the version they were found applicable with.
type Pick struct {
	registry   *Registry
	flavorKeys []string
	platform   string
	lock       LineageLock

	candidates []Assignment
	old        []Assignment
	new        []Assignment

	recorder *record.Recorder
}

// Resolve builds the pick for event. lock may be nil.
func (r *Registry) Resolve(event Event, lock LineageLock) *Pick {
	if lock == nil {
		lock = LineageLock{}
	}
	flavorKeys := r.flavorFunc(event)
	p := &Pick{
		registry:   r,
		flavorKeys: flavorKeys,
		platform:   platformOf(event),
		lock:       lock,
		candidates: r.Applicable(event, flavorKeys),
		recorder:   record.NewRecorder(),
	}
	for _, c := range p.candidates {
		if v, ok := lock.Version(c.FlavorKey, c.Identifier); ok {
			p.old = append(p.old, Assignment{Identifier: c.Identifier, Version: v, FlavorKey: c.FlavorKey})
		} else {
			p.new = append(p.new, c)
		}
	}

	r.logger.Debug("strategies picked",
		slog.Any("flavor_keys", flavorKeys),
		slog.String("platform", p.platform),
		slog.Int("old", len(p.old)),
		slog.Int("new", len(p.new)))
	return p
}

func (p *Pick) FlavorKeys() []string { return append([]string(nil), p.flavorKeys...) }
func (p *Pick) Platform() string     { return p.platform }
func (p *Pick) Lock() LineageLock    { return p.lock }

// Old returns the assignments pinned by the lineage lock.
func (p *Pick) Old() []Assignment { return append([]Assignment(nil), p.old...) }

// New returns the assignments free to use their applicable version.
func (p *Pick) New() []Assignment { return append([]Assignment(nil), p.new...) }

// Dispatches returns the dispatch outcomes of the last Evaluate call: every
// top-level dispatch, each followed by the nested resolutions it made when it
// contributed.
func (p *Pick) Dispatches() []Dispatch { return p.recorder.Seen() }

// Used returns the assignments that shaped the last Evaluate result: top-level
// strategies that contributed and the nested versions resolved under them.
// At most one version is returned per (identifier, flavor key), the first one
// that ran.
func (p *Pick) Used() []Assignment {
	var out []Assignment
	seen := make(map[pairKey]bool)
	inContributed := false
	for _, d := range p.recorder.Seen() {
		if !d.Nested {
			inContributed = d.Outcome == record.Contributed
			if !inContributed {
				continue
			}
		} else if !inContributed {
			continue
		}
		k := pairKey{d.Identifier, d.FlavorKey}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Assignment{Identifier: d.Identifier, Version: d.Version, FlavorKey: d.FlavorKey})
	}
	return out
}

// FindVersion resolves which version of identifier runs under flavorKey.
// A lineage lock entry always wins, even over an explicit preferred version.
// An empty preferred version or Latest selects the newest registration.
func (p *Pick) FindVersion(identifier, flavorKey, preferred string) (string, bool) {
	if v, ok := p.lock.Version(flavorKey, identifier); ok {
		return v, true
	}
	if preferred == "" || preferred == Latest {
		return p.registry.Latest(identifier)
	}
	if _, ok := p.registry.Lookup(identifier, preferred); ok {
		return preferred, true
	}
	return "", false
}

// FindStrategy resolves a version with FindVersion and returns its descriptor.
// The error wraps ErrStrategyNotFound.
func (p *Pick) FindStrategy(identifier, flavorKey, preferred string) (*Descriptor, error) {
	version, ok := p.FindVersion(identifier, flavorKey, preferred)
	if !ok {
		return nil, &StrategyNotFoundError{Identifier: identifier, FlavorKey: flavorKey, Version: preferred}
	}
	d, ok := p.registry.Lookup(identifier, version)
	if !ok {
		return nil, &StrategyNotFoundError{Identifier: identifier, FlavorKey: flavorKey, Version: version}
	}
	return d, nil
}

// NewHasher returns a hasher bound to this pick with an empty frame stack.
func (p *Pick) NewHasher() *Hasher {
	return &Hasher{pick: p, maxDepth: p.registry.maxDepth, logger: p.registry.logger}
}

// Evaluate runs the picked strategies over interfaces and returns the first
// non-empty result, or nil when nothing contributed.
func (p *Pick) Evaluate(interfaces Interfaces) (*Node, error) {
	nodes, err := p.evaluate(interfaces, false)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// EvaluateAll runs every picked strategy and returns all non-empty results in
// pick order.
func (p *Pick) EvaluateAll(interfaces Interfaces) ([]*Node, error) {
	return p.evaluate(interfaces, true)
}

type pairKey struct {
	identifier string
	flavorKey  string
}

// evaluate pairs every candidate with its old entry by (identifier, flavor key),
// falling back to its new entry. Each resolved assignment runs at most once.
func (p *Pick) evaluate(interfaces Interfaces, all bool) ([]*Node, error) {
	if len(p.old)+len(p.new) != len(p.candidates) {
		panic(invariantError(fmt.Sprintf("%d old + %d new assignments for %d candidates",
			len(p.old), len(p.new), len(p.candidates))))
	}
	oldByKey := make(map[pairKey]Assignment, len(p.old))
	for _, a := range p.old {
		oldByKey[pairKey{a.Identifier, a.FlavorKey}] = a
	}
	isNew := make(map[Assignment]bool, len(p.new))
	for _, a := range p.new {
		isNew[a] = true
	}

	p.recorder = record.NewRecorder()
	h := p.NewHasher()
	seen := make(map[Assignment]bool, len(p.candidates))
	var out []*Node

	for _, c := range p.candidates {
		a, ok := oldByKey[pairKey{c.Identifier, c.FlavorKey}]
		if !ok {
			if !isNew[c] {
				panic(invariantError("no old or new assignment for " + c.FullID() + " under " + c.FlavorKey))
			}
			a = c
		}
		if seen[a] {
			continue
		}
		seen[a] = true

		node, err := h.HashInterfaces(a.Identifier, a.Version, a.FlavorKey, interfaces)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		if !all {
			return []*Node{node}, nil
		}
		out = append(out, node)
	}
	return out, nil
}
