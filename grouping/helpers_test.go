package grouping

import (
	"io"
	"log/slog"
)

func quietRegistry(opts ...Option) *Registry {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewRegistry(opts...)
}

func always(Event) bool { return true }
func never(Event) bool  { return false }

var noop = StrategyFunc(func(Interfaces, string, *Hasher) error { return nil })

func contribute(values ...any) Strategy {
	return StrategyFunc(func(_ Interfaces, _ string, h *Hasher) error {
		for _, v := range values {
			h.ContributeValue(v)
		}
		return nil
	})
}

func delegate(identifier, preferred string) Strategy {
	return StrategyFunc(func(in Interfaces, _ string, h *Hasher) error {
		return h.ContributeNested(identifier, in, preferred)
	})
}
