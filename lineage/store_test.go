package lineage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqilarik/grouping/grouping"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "lineage.db"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EmptyLock(t *testing.T) {
	s := tempStore(t)
	lock, err := s.Lock(context.Background(), "proj", []string{"platform:python", grouping.GenericFlavor})
	require.NoError(t, err)
	assert.Empty(t, lock)

	lock, err = s.Lock(context.Background(), "proj", nil)
	require.NoError(t, err)
	assert.Empty(t, lock)
}

func TestStore_CommitFirstWriteWins(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	wrote, err := s.Commit(ctx, "proj", "platform:python", "stacktrace", "1.0")
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = s.Commit(ctx, "proj", "platform:python", "stacktrace", "2.0")
	require.NoError(t, err)
	assert.False(t, wrote)

	lock, err := s.Lock(ctx, "proj", []string{"platform:python"})
	require.NoError(t, err)
	v, ok := lock.Version("platform:python", "stacktrace")
	require.True(t, ok)
	assert.Equal(t, "1.0", v)
}

func TestStore_LockScopedByProjectAndFlavor(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	_, err := s.Commit(ctx, "proj", "platform:python", "stacktrace", "1.0")
	require.NoError(t, err)
	_, err = s.Commit(ctx, "proj", "platform:java", "stacktrace", "3.0")
	require.NoError(t, err)
	_, err = s.Commit(ctx, "other", "platform:python", "stacktrace", "9.0")
	require.NoError(t, err)

	lock, err := s.Lock(ctx, "proj", []string{"platform:python", grouping.GenericFlavor})
	require.NoError(t, err)
	assert.Equal(t, grouping.LineageLock{"platform:python": {"stacktrace": "1.0"}}, lock)
}

func TestStore_CommitRejectsMalformedVersion(t *testing.T) {
	s := tempStore(t)
	_, err := s.Commit(context.Background(), "proj", grouping.GenericFlavor, "msg", "v1")
	assert.ErrorIs(t, err, grouping.ErrMalformedVersion)
}

func quietRegistry() *grouping.Registry {
	return grouping.NewRegistry(grouping.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

var always = grouping.WithPredicate(func(grouping.Event) bool { return true })

func contribute(values ...any) grouping.Strategy {
	return grouping.StrategyFunc(func(_ grouping.Interfaces, _ string, h *grouping.Hasher) error {
		for _, v := range values {
			h.ContributeValue(v)
		}
		return nil
	})
}

// evaluateAndCommit runs one event through r with the project's stored lock
// and commits what was used.
func evaluateAndCommit(t *testing.T, s *Store, r *grouping.Registry, event grouping.Event) (*grouping.Node, int) {
	t.Helper()
	ctx := context.Background()
	lock, err := s.Lock(ctx, "proj", grouping.DefaultFlavorKeys(event))
	require.NoError(t, err)
	p := r.Resolve(event, lock)
	node, err := p.Evaluate(nil)
	require.NoError(t, err)
	written, err := s.CommitPick(ctx, "proj", p)
	require.NoError(t, err)
	return node, written
}

func TestStore_CommitPickLocksContributingVersion(t *testing.T) {
	s := tempStore(t)
	r := quietRegistry()
	r.MustRegister("msg", "1.0", contribute(), always)
	r.MustRegister("msg", "2.0", contribute("v2"), always)
	event := grouping.Event{}

	node, written := evaluateAndCommit(t, s, r, event)
	require.NotNil(t, node)
	assert.Equal(t, `msg:2.0{"v2"}`, node.String())
	assert.Equal(t, 1, written)

	lock, err := s.Lock(context.Background(), "proj", grouping.DefaultFlavorKeys(event))
	require.NoError(t, err)
	assert.Equal(t, grouping.LineageLock{grouping.GenericFlavor: {"msg": "2.0"}}, lock)

	again, written := evaluateAndCommit(t, s, r, event)
	require.NotNil(t, again)
	assert.Equal(t, node.String(), again.String(), "re-evaluation keeps the same grouping")
	assert.Equal(t, 0, written)
}

func TestStore_CommitPickLocksNestedVersions(t *testing.T) {
	s := tempStore(t)
	r := quietRegistry()
	r.MustRegister("exception", "1.0", grouping.StrategyFunc(func(in grouping.Interfaces, _ string, h *grouping.Hasher) error {
		return h.ContributeNested("stacktrace", in, "")
	}), always)
	r.MustRegister("stacktrace", "1.0", contribute("v1"))
	event := grouping.Event{}

	node, written := evaluateAndCommit(t, s, r, event)
	require.NotNil(t, node)
	assert.Equal(t, `exception:1.0{}[stacktrace:1.0{"v1"}]`, node.String())
	assert.Equal(t, 2, written)

	// A newer nested version appears; the committed lineage keeps 1.0.
	r.MustRegister("stacktrace", "2.0", contribute("v2"))
	again, written := evaluateAndCommit(t, s, r, event)
	require.NotNil(t, again)
	assert.Equal(t, node.String(), again.String())
	assert.Equal(t, 0, written)
}

func TestStore_CommitPickBeforeEvaluate(t *testing.T) {
	s := tempStore(t)
	r := quietRegistry()
	r.MustRegister("msg", "1.0", contribute("v1"), always)

	written, err := s.CommitPick(context.Background(), "proj", r.Resolve(grouping.Event{}, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, written, "nothing has run yet")
}

func TestStore_CommitLock(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	seed := grouping.LineageLock{
		"platform:python":      {"stacktrace": "1.0"},
		grouping.GenericFlavor: {"message": "2.0"},
	}

	written, err := s.CommitLock(ctx, "proj", seed)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	lock, err := s.Lock(ctx, "proj", []string{"platform:python", grouping.GenericFlavor})
	require.NoError(t, err)
	assert.Equal(t, seed, lock)

	_, err = s.CommitLock(ctx, "proj", grouping.LineageLock{grouping.GenericFlavor: {"message": "x"}})
	assert.ErrorIs(t, err, grouping.ErrMalformedVersion)
}
