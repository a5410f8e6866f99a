package eval

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Cache holds compiled condition programs keyed by source. One cache is shared
// by every strategy registered on a registry, so identical conditions compile once.
type Cache struct {
	mu   sync.Mutex
	prog map[string]*vm.Program
}

func NewCache() *Cache {
	return &Cache{prog: make(map[string]*vm.Program, 16)}
}

func (c *Cache) getOrCompile(src string) (*vm.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.prog[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	c.prog[src] = p
	return p, nil
}

// Len reports how many distinct sources have been compiled.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prog)
}
