package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/metrics"
	"github.com/asakaida/eurocore/pkg/cache/memorycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNames is an in-memory name table that counts lookups.
type fakeNames struct {
	ids     map[string]int64
	calls   atomic.Int32
	release chan struct{} // when set, lookups block until closed
	err     error
}

func newFakeNames(ids map[string]int64) *fakeNames {
	return &fakeNames{ids: ids}
}

func (f *fakeNames) lookup(ctx context.Context, kind, name string) (int64, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	id, ok := f.ids[name]
	if !ok {
		return 0, entities.NewNotFoundByName(kind, name)
	}
	return id, nil
}

type fakeTags struct{ *fakeNames }

func (f fakeTags) GetByName(ctx context.Context, name string) (*entities.Tag, error) {
	id, err := f.lookup(ctx, entities.KindTag, name)
	if err != nil {
		return nil, err
	}
	return &entities.Tag{ID: id, Name: name}, nil
}

type fakeRelationTypes struct{ *fakeNames }

func (f fakeRelationTypes) GetByName(ctx context.Context, name string) (*entities.RelationType, error) {
	id, err := f.lookup(ctx, entities.KindRelationType, name)
	if err != nil {
		return nil, err
	}
	return &entities.RelationType{ID: id, Name: name}, nil
}

func TestResolver_CachesHits(t *testing.T) {
	tags := newFakeNames(map[string]int64{"Team": 3})
	types := newFakeNames(map[string]int64{"uses": 1})
	r := New(fakeTags{tags}, fakeRelationTypes{types}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := r.ResolveTagID(ctx, "Team")
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)

		id, err = r.ResolveRelationTypeID(ctx, "uses")
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	}

	assert.Equal(t, int32(1), tags.calls.Load())
	assert.Equal(t, int32(1), types.calls.Load())
}

func TestResolver_NamespacesKinds(t *testing.T) {
	// a tag and a relation type may share a name
	tags := newFakeNames(map[string]int64{"member": 10})
	types := newFakeNames(map[string]int64{"member": 20})
	r := New(fakeTags{tags}, fakeRelationTypes{types}, nil)
	ctx := context.Background()

	tagID, err := r.ResolveTagID(ctx, "member")
	require.NoError(t, err)
	typeID, err := r.ResolveRelationTypeID(ctx, "member")
	require.NoError(t, err)

	assert.Equal(t, int64(10), tagID)
	assert.Equal(t, int64(20), typeID)
}

func TestResolver_MissesAreNotCached(t *testing.T) {
	tags := newFakeNames(map[string]int64{})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, nil)
	ctx := context.Background()

	_, err := r.ResolveTagID(ctx, "Robot")
	require.Error(t, err)
	assert.True(t, entities.IsNotFound(err))
	assert.EqualError(t, err, "no Tag row found with name: Robot")

	tags.ids["Robot"] = 5
	id, err := r.ResolveTagID(ctx, "Robot")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.Equal(t, int32(2), tags.calls.Load())
}

func TestResolver_StoreErrorsPropagate(t *testing.T) {
	types := newFakeNames(nil)
	types.err = errors.New("connection refused")
	r := New(fakeTags{newFakeNames(nil)}, fakeRelationTypes{types}, nil)

	_, err := r.ResolveRelationTypeID(context.Background(), "uses")
	assert.EqualError(t, err, "connection refused")
}

func TestResolver_Forget(t *testing.T) {
	tags := newFakeNames(map[string]int64{"Team": 3})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, nil)
	ctx := context.Background()

	_, err := r.ResolveTagID(ctx, "Team")
	require.NoError(t, err)

	tags.ids["Team"] = 9
	require.NoError(t, r.ForgetTag(ctx, "Team"))

	id, err := r.ResolveTagID(ctx, "Team")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	require.NoError(t, r.ForgetRelationType(ctx, "unknown"))
}

func TestResolver_TTL(t *testing.T) {
	tags := newFakeNames(map[string]int64{"Team": 3})
	c := memorycache.New(&memorycache.Config{TTL: 10 * time.Millisecond})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, c)
	ctx := context.Background()

	_, err := r.ResolveTagID(ctx, "Team")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = r.ResolveTagID(ctx, "Team")
	require.NoError(t, err)

	assert.Equal(t, int32(2), tags.calls.Load())
}

func TestResolver_CoalescesConcurrentMisses(t *testing.T) {
	tags := newFakeNames(map[string]int64{"Team": 3})
	tags.release = make(chan struct{})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, nil)
	ctx := context.Background()

	const callers = 10
	var wg sync.WaitGroup
	ids := make([]int64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = r.ResolveTagID(ctx, "Team")
		}(i)
	}

	require.Eventually(t, func() bool { return tags.calls.Load() == 1 }, time.Second, time.Millisecond)
	// let the other callers join the in-flight lookup
	time.Sleep(50 * time.Millisecond)
	close(tags.release)
	wg.Wait()

	assert.Equal(t, int32(1), tags.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(3), ids[i])
	}
}

func TestResolver_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	tags := newFakeNames(map[string]int64{"Team": 3})
	tags.release = make(chan struct{})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.ResolveTagID(firstCtx, "Team")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return tags.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		id  int64
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := r.ResolveTagID(context.Background(), "Team")
		second <- result{id, err}
	}()
	// let the second caller join the in-flight lookup
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(tags.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, int64(3), got.id)

	// the flight finished and cached its result
	id, err := r.ResolveTagID(context.Background(), "Team")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, int32(1), tags.calls.Load())
}

func TestResolver_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	tags := newFakeNames(map[string]int64{"Team": 3})
	r := New(fakeTags{tags}, fakeRelationTypes{newFakeNames(nil)}, nil,
		WithRecorder(metrics.NewRecorder(collector, nil)))
	ctx := context.Background()

	r.ResolveTagID(ctx, "Team")
	r.ResolveTagID(ctx, "Team")

	m := collector.GetResolverMetrics()
	assert.Equal(t, uint64(1), m.Misses[KindTag])
	assert.Equal(t, uint64(1), m.Hits[KindTag])
}
