package grouping

import (
	"encoding/json"
	"strings"

	"github.com/aqilarik/grouping/internal/format"
)

// Node is what one strategy invocation contributed: its own scalar values and
// the nodes of the strategies it delegated to, in invocation order.
type Node struct {
	Strategy string  `json:"strategy"` // full id, "identifier:version"
	Values   []any   `json:"values"`
	Nested   []*Node `json:"nested"`
}

// Empty reports whether the node contributed neither values nor nested nodes.
func (n *Node) Empty() bool { return len(n.Values) == 0 && len(n.Nested) == 0 }

// MarshalJSON encodes missing values or nested nodes as empty lists, never null.
func (n *Node) MarshalJSON() ([]byte, error) {
	type plain Node
	out := plain(*n)
	if out.Values == nil {
		out.Values = []any{}
	}
	if out.Nested == nil {
		out.Nested = []*Node{}
	}
	return json.Marshal(out)
}

// String renders the tree canonically, e.g. `exception:1.0{"ValueError"}[stacktrace:1.0{"main.go"}]`.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	sb.WriteString(n.Strategy)
	sb.WriteString("{")
	sb.WriteString(format.Values(n.Values))
	sb.WriteString("}")
	if len(n.Nested) == 0 {
		return
	}
	sb.WriteString("[")
	for i, c := range n.Nested {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.write(sb)
	}
	sb.WriteString("]")
}
