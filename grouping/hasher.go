package grouping

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aqilarik/grouping/internal/record"
)

type frame struct {
	desc      *Descriptor
	flavorKey string
	node      *Node
}

// Hasher walks strategies over interfaces and accumulates their contributions
// into a tree of nodes, one per strategy invocation.
type Hasher struct {
	pick     *Pick
	stack    []frame
	maxDepth int
	logger   *slog.Logger

	// nested holds the resolutions made under the current top-level dispatch.
	nested []record.Dispatch
}

// Depth is the number of active strategy frames.
func (h *Hasher) Depth() int { return len(h.stack) }

// Current returns the descriptor of the innermost active frame, or nil.
func (h *Hasher) Current() *Descriptor {
	if f := h.top(); f != nil {
		return f.desc
	}
	return nil
}

// CurrentFlavorKey returns the flavor key of the innermost active frame, or "".
func (h *Hasher) CurrentFlavorKey() string {
	if f := h.top(); f != nil {
		return f.flavorKey
	}
	return ""
}

func (h *Hasher) top() *frame {
	if len(h.stack) == 0 {
		return nil
	}
	return &h.stack[len(h.stack)-1]
}

// Enter pushes a frame for d and returns its node. The node is attached to the
// parent frame immediately; Leave detaches it again if it stays empty.
func (h *Hasher) Enter(d *Descriptor, flavorKey string) *Node {
	n := &Node{Strategy: d.FullID()}
	if parent := h.top(); parent != nil {
		parent.node.Nested = append(parent.node.Nested, n)
	}
	h.stack = append(h.stack, frame{desc: d, flavorKey: flavorKey, node: n})
	return n
}

// Leave pops the innermost frame, pruning its node from the parent when it
// contributed nothing.
func (h *Hasher) Leave() {
	cur := h.top()
	if cur == nil {
		panic("grouping: Leave without matching Enter")
	}
	f := *cur
	h.stack = h.stack[:len(h.stack)-1]
	if !f.node.Empty() {
		return
	}
	if parent := h.top(); parent != nil {
		nested := parent.node.Nested
		if last := len(nested) - 1; last >= 0 && nested[last] == f.node {
			nested[last] = nil
			parent.node.Nested = nested[:last]
		}
	}
}

// ContributeValue adds v to the innermost frame. Slices and arrays are
// flattened recursively, so node values are always scalars; byte slices,
// including named ones such as net.IP, count as scalars.
func (h *Hasher) ContributeValue(v any) {
	f := h.top()
	if f == nil {
		panic("grouping: ContributeValue outside of a strategy")
	}
	f.node.Values = appendFlat(f.node.Values, v)
}

func appendFlat(dst []any, v any) []any {
	switch x := v.(type) {
	case nil, string, []byte:
		return append(dst, v)
	case []any:
		for _, e := range x {
			dst = appendFlat(dst, e)
		}
		return dst
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return append(dst, v)
	}
	if k := rv.Kind(); k == reflect.Slice || k == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			dst = appendFlat(dst, rv.Index(i).Interface())
		}
		return dst
	}
	return append(dst, v)
}

// ContributeNested resolves identifier under the current flavor key, runs it in
// a child frame and attaches what it contributes. Lookup failures are returned
// to the calling strategy.
func (h *Hasher) ContributeNested(identifier string, interfaces Interfaces, preferredVersion string) error {
	if len(h.stack) >= h.maxDepth {
		return fmt.Errorf("%w: %s at depth %d", ErrNestingTooDeep, identifier, len(h.stack))
	}
	flavorKey := h.CurrentFlavorKey()
	d, err := h.pick.FindStrategy(identifier, flavorKey, preferredVersion)
	if err != nil {
		return err
	}
	nestedTotal.WithLabelValues(identifier).Inc()

	idx := len(h.nested)
	h.nested = append(h.nested, record.Dispatch{
		Identifier: d.Identifier,
		Version:    d.Version,
		FlavorKey:  flavorKey,
		Nested:     true,
	})

	n := h.Enter(d, flavorKey)
	err = d.Strategy.Evaluate(interfaces, h.pick.platform, h)
	h.Leave()
	switch {
	case err != nil:
		h.nested[idx].Outcome = record.Failed
	case n.Empty():
		h.nested[idx].Outcome = record.Pruned
	default:
		h.nested[idx].Outcome = record.Contributed
	}
	return err
}

// HashInterfaces runs exactly (identifier, version) under flavorKey as a
// top-level strategy. An unregistered pair contributes nothing instead of
// failing; a node is returned only if something was contributed. Nested
// resolutions are recorded on the pick after the dispatch, and only when it
// contributed.
func (h *Hasher) HashInterfaces(identifier, version, flavorKey string, interfaces Interfaces) (*Node, error) {
	a := record.Dispatch{Identifier: identifier, Version: version, FlavorKey: flavorKey}

	d, ok := h.pick.registry.Lookup(identifier, version)
	if !ok {
		h.logger.Debug("strategy not registered, skipping",
			slog.String("strategy", a.Identifier+":"+a.Version),
			slog.String("flavor_key", flavorKey))
		h.recordOutcome(a, record.NotFound)
		return nil, nil
	}

	h.nested = h.nested[:0]
	n := h.Enter(d, flavorKey)
	err := d.Strategy.Evaluate(interfaces, h.pick.platform, h)
	h.Leave()
	if err != nil {
		h.recordOutcome(a, record.Failed)
		return nil, fmt.Errorf("%s: %w", d.FullID(), err)
	}
	if n.Empty() {
		h.logger.Debug("strategy contributed nothing",
			slog.String("strategy", d.FullID()),
			slog.String("flavor_key", flavorKey))
		h.recordOutcome(a, record.Pruned)
		return nil, nil
	}
	h.recordOutcome(a, record.Contributed)
	for _, nd := range h.nested {
		h.pick.recorder.Record(nd)
	}
	return n, nil
}

func (h *Hasher) recordOutcome(d record.Dispatch, o record.Outcome) {
	d.Outcome = o
	h.pick.recorder.Record(d)
	dispatchesTotal.WithLabelValues(string(o)).Inc()
}
