package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aqilarik/grouping/grouping"
	"github.com/aqilarik/grouping/internal/config"
	"github.com/aqilarik/grouping/lineage"
)

const manifest = `
strategies:
  - id: message
    version: "1.0"
    applicable: 'message != nil'
  - id: exception
    version: "1.0"
    flavors: [platform:python, platform:generic]
    applicable: 'exception != nil'
  - id: stacktrace
    version: "1.0"
  - id: stacktrace
    version: "2.0"
    behavior: stacktrace-v2
lineage:
  platform:python: [stacktrace:1.0]
`

func behaviors() map[string]grouping.Strategy {
	return map[string]grouping.Strategy{
		"message": grouping.StrategyFunc(func(in grouping.Interfaces, _ string, h *grouping.Hasher) error {
			if m, ok := in["message"].(string); ok {
				h.ContributeValue(m)
			}
			return nil
		}),
		"exception": grouping.StrategyFunc(func(in grouping.Interfaces, _ string, h *grouping.Hasher) error {
			exc, _ := in["exception"].(map[string]any)
			if t, ok := exc["type"].(string); ok {
				h.ContributeValue(t)
			}
			return h.ContributeNested("stacktrace", grouping.Interfaces{"frames": exc["frames"]}, "")
		}),
		"stacktrace": grouping.StrategyFunc(func(in grouping.Interfaces, _ string, h *grouping.Hasher) error {
			h.ContributeValue(in["frames"])
			return nil
		}),
		"stacktrace-v2": grouping.StrategyFunc(func(in grouping.Interfaces, platform string, h *grouping.Hasher) error {
			h.ContributeValue(platform)
			h.ContributeValue(in["frames"])
			return nil
		}),
	}
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// An optional argument names a manifest file to use instead of the built-in one.
	var m *config.Manifest
	var err error
	if len(os.Args) > 1 {
		m, err = config.Load(os.Args[1])
	} else {
		m, err = config.Parse([]byte(manifest))
	}
	if err != nil {
		panic(err)
	}
	r := grouping.NewRegistry(grouping.WithLogger(logger))
	if err := m.Apply(r, behaviors()); err != nil {
		panic(err)
	}

	dir, err := os.MkdirTemp("", "grouping-playground")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	store, err := lineage.Open(ctx, filepath.Join(dir, "lineage.db"), logger)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	// Seed the project's lineage from the manifest before any event is seen.
	seed, err := m.LineageLock()
	if err != nil {
		panic(err)
	}
	if _, err := store.CommitLock(ctx, "demo", seed); err != nil {
		panic(err)
	}

	event := grouping.Event{
		"platform":  "python",
		"message":   "division by zero",
		"exception": map[string]any{"type": "ZeroDivisionError"},
	}
	interfaces := grouping.Interfaces{
		"message": "division by zero",
		"exception": map[string]any{
			"type":   "ZeroDivisionError",
			"frames": []string{"app.py:divide", "app.py:main"},
		},
	}

	lock, err := store.Lock(ctx, "demo", grouping.DefaultFlavorKeys(event))
	if err != nil {
		panic(err)
	}
	pick := r.Resolve(event, lock)
	fmt.Println("FLAVOR KEYS:", pick.FlavorKeys())
	fmt.Println("OLD:", pick.Old())
	fmt.Println("NEW:", pick.New())

	nodes, err := pick.EvaluateAll(interfaces)
	if err != nil {
		panic(err)
	}

	fmt.Println("\nNODES:")
	for _, n := range nodes {
		out, _ := json.Marshal(n)
		fmt.Printf("- %s\n  fp=%s\n  json=%s\n", n, grouping.Fingerprint(n), out)
	}

	fmt.Println("\nDISPATCHES:")
	for _, d := range pick.Dispatches() {
		fmt.Printf("- %s:%s flavor=%s outcome=%s\n", d.Identifier, d.Version, d.FlavorKey, d.Outcome)
	}

	written, err := store.CommitPick(ctx, "demo", pick)
	if err != nil {
		panic(err)
	}
	fmt.Println("\nCOMMITTED:", written)
}
