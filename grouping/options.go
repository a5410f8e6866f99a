package grouping

import "log/slog"

// Option configures a Registry and every Pick resolved from it.
type Option interface{ apply(*Registry) }

type optFunc func(*Registry)

func (f optFunc) apply(r *Registry) { f(r) }

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optFunc(func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	})
}

// WithMaxDepth bounds how many strategy frames may be active at once.
func WithMaxDepth(n int) Option {
	return optFunc(func(r *Registry) {
		if n > 0 {
			r.maxDepth = n
		}
	})
}

// WithFlavorFunc sets how flavor keys are derived from an event.
func WithFlavorFunc(f FlavorFunc) Option {
	return optFunc(func(r *Registry) {
		if f != nil {
			r.flavorFunc = f
		}
	})
}

// StrategyOption configures a single registration.
type StrategyOption interface{ applyDescriptor(*Descriptor) }

type descFunc func(*Descriptor)

func (f descFunc) applyDescriptor(d *Descriptor) { f(d) }

// WithPriority sets the descriptor priority. Defaults to 100.
func WithPriority(p int) StrategyOption { return descFunc(func(d *Descriptor) { d.Priority = p }) }

// WithFlavors sets the flavor keys a strategy supports. Defaults to "platform:generic".
func WithFlavors(flavors ...string) StrategyOption {
	return descFunc(func(d *Descriptor) { d.Flavors = append([]string(nil), flavors...) })
}

// WithPredicate sets the applicability predicate. It must be pure.
func WithPredicate(p Predicate) StrategyOption {
	return descFunc(func(d *Descriptor) { d.predicate = p })
}

// WithCondition sets an expr-lang boolean expression evaluated against the event,
// e.g. `platform == "python" && exception != nil`. When combined with WithPredicate
// both must hold.
func WithCondition(src string) StrategyOption {
	return descFunc(func(d *Descriptor) { d.condition = src })
}
