// Package grouping selects versioned grouping strategies for an event and runs
// them over the event's interfaces, recording what each strategy contributed.
//
// A Registry is filled once at startup with Register/MustRegister and is read-only
// afterwards. Each event evaluation resolves a fresh Pick from it; a Pick and the
// Hasher it creates must not be shared between goroutines.
package grouping

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aqilarik/grouping/internal/eval"
)

const (
	// DefaultPriority is used when a registration does not set one.
	DefaultPriority = 100
	// GenericFlavor is the flavor every strategy supports unless told otherwise.
	GenericFlavor = "platform:generic"
	// Latest may be passed as a preferred version to request the newest registration.
	Latest = "latest"

	defaultMaxDepth = 64
)

// Event is the raw event data that predicates and conditions inspect.
type Event map[string]any

// Interfaces are the event sub-components a strategy hashes.
type Interfaces map[string]any

// Predicate decides whether a strategy applies to an event.
type Predicate func(Event) bool

// Strategy is one versioned grouping algorithm. Evaluate may only call back into
// h (ContributeValue, ContributeNested) and must not retain h after returning.
type Strategy interface {
	Evaluate(interfaces Interfaces, platform string, h *Hasher) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(interfaces Interfaces, platform string, h *Hasher) error

func (f StrategyFunc) Evaluate(interfaces Interfaces, platform string, h *Hasher) error {
	return f(interfaces, platform, h)
}

// Descriptor is a registered (identifier, version) pair and its behavior.
type Descriptor struct {
	Identifier string
	Version    string
	Priority   int
	Flavors    []string
	Strategy   Strategy

	predicate Predicate
	condition string
	flavorSet map[string]struct{}
	cache     *eval.Cache
	logger    *slog.Logger
}

// FullID returns "identifier:version".
func (d *Descriptor) FullID() string { return d.Identifier + ":" + d.Version }

// Condition returns the expr-lang condition source, if any.
func (d *Descriptor) Condition() string { return d.condition }

// SupportsFlavor reports whether key is one of the descriptor's flavors.
func (d *Descriptor) SupportsFlavor(key string) bool {
	_, ok := d.flavorSet[key]
	return ok
}

// IsApplicable runs the predicate and condition against e.
// A descriptor with neither never applies.
func (d *Descriptor) IsApplicable(e Event) bool {
	if d.predicate == nil && d.condition == "" {
		return false
	}
	if d.predicate != nil && !d.predicate(e) {
		return false
	}
	if d.condition != "" {
		ok, err := eval.Bool(d.condition, e, d.cache)
		if err != nil {
			d.logger.Debug("condition failed",
				slog.String("strategy", d.FullID()),
				slog.String("error", err.Error()))
			return false
		}
		return ok
	}
	return true
}

type latestVersion struct {
	raw    string
	parsed Version
}

type descKey struct {
	identifier string
	version    string
}

// Registry maps (identifier, version) to descriptors and tracks the latest
// version per identifier.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[descKey]*Descriptor
	order       []descKey
	latest      map[string]latestVersion

	cache      *eval.Cache
	logger     *slog.Logger
	maxDepth   int
	flavorFunc FlavorFunc
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		descriptors: make(map[descKey]*Descriptor),
		latest:      make(map[string]latestVersion),
		cache:       eval.NewCache(),
		logger:      slog.Default(),
		maxDepth:    defaultMaxDepth,
		flavorFunc:  DefaultFlavorKeys,
	}
	for _, o := range opts {
		o.apply(r)
	}
	return r
}

// Register installs a strategy. Registering an existing (identifier, version)
// pair replaces the previous descriptor. The latest version for the identifier
// only ever moves forward.
//
// Malformed versions, versions whose component count differs from the current
// latest, and conditions that do not compile to a boolean are rejected and leave
// the registry untouched.
func (r *Registry) Register(identifier, version string, s Strategy, opts ...StrategyOption) error {
	if identifier == "" {
		return fmt.Errorf("register: empty identifier")
	}
	if s == nil {
		return fmt.Errorf("register %s:%s: nil strategy", identifier, version)
	}
	parsed, err := ParseVersion(version)
	if err != nil {
		return fmt.Errorf("register %s: %w", identifier, err)
	}

	d := &Descriptor{
		Identifier: identifier,
		Version:    version,
		Priority:   DefaultPriority,
		Strategy:   s,
		cache:      r.cache,
		logger:     r.logger,
	}
	for _, o := range opts {
		o.applyDescriptor(d)
	}
	if len(d.Flavors) == 0 {
		d.Flavors = []string{GenericFlavor}
	}
	d.flavorSet = make(map[string]struct{}, len(d.Flavors))
	for _, f := range d.Flavors {
		d.flavorSet[f] = struct{}{}
	}
	if d.condition != "" {
		if err := eval.Compile(d.condition, r.cache); err != nil {
			return fmt.Errorf("register %s: condition: %w", d.FullID(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bump := true
	if cur, ok := r.latest[identifier]; ok {
		cmp, err := parsed.Compare(cur.parsed)
		if err != nil {
			return fmt.Errorf("register %s: %w", d.FullID(), err)
		}
		bump = cmp > 0
	}

	k := descKey{identifier, version}
	if _, exists := r.descriptors[k]; !exists {
		r.order = append(r.order, k)
	}
	r.descriptors[k] = d
	if bump {
		r.latest[identifier] = latestVersion{raw: version, parsed: parsed}
	}
	registrationsTotal.WithLabelValues(identifier).Inc()

	r.logger.Debug("strategy registered",
		slog.String("strategy", d.FullID()),
		slog.Int("priority", d.Priority),
		slog.Any("flavors", d.Flavors),
		slog.String("latest", r.latest[identifier].raw))
	return nil
}

// MustRegister is Register for static init-time registration; it panics on error.
func (r *Registry) MustRegister(identifier, version string, s Strategy, opts ...StrategyOption) {
	if err := r.Register(identifier, version, s, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered for (identifier, version).
func (r *Registry) Lookup(identifier, version string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[descKey{identifier, version}]
	return d, ok
}

// Latest returns the highest version registered for identifier.
func (r *Registry) Latest(identifier string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.latest[identifier]
	return v.raw, ok
}

// Descriptors lists every registered descriptor ordered by identifier, then version.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.descriptors))
	for _, k := range r.order {
		out = append(out, r.descriptors[k])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Identifier != out[j].Identifier {
			return out[i].Identifier < out[j].Identifier
		}
		a, _ := ParseVersion(out[i].Version)
		b, _ := ParseVersion(out[j].Version)
		c, err := a.Compare(b)
		if err != nil {
			return out[i].Version < out[j].Version
		}
		return c < 0
	})
	return out
}
