package eval

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Compile checks that src is a boolean expression and caches the program.
func Compile(src string, cache *Cache) error {
	if src == "" {
		return fmt.Errorf("empty condition")
	}
	_, err := cache.getOrCompile(src)
	return err
}

// Bool runs the cached program for src against env.
// A nil result (e.g. an undefined variable in a plain reference) counts as false.
func Bool(src string, env map[string]any, cache *Cache) (bool, error) {
	p, err := cache.getOrCompile(src)
	if err != nil {
		return false, err
	}
	v, err := expr.Run(p, env)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}
