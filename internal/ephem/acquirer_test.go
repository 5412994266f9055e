package ephem

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/cache"
	"github.com/litescript/ls-rise/internal/state"
	"github.com/litescript/ls-rise/internal/weather"
)

var errOffline = errors.New("offline")

type fakeSnapshots struct {
	name  string
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeSnapshots) Name() string { return f.name }

func (f *fakeSnapshots) Snapshot(ctx context.Context, day time.Time, _ astro.Observer) (astro.PositionSnapshot, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return astro.PositionSnapshot{}, ctx.Err()
	}
	if f.err != nil {
		return astro.PositionSnapshot{}, f.err
	}
	snap := astro.DefaultSnapshot(day)
	snap.Sun.Coefficient = 70
	snap.Source = f.name
	return snap, nil
}

type fakeNewMoons struct {
	err   error
	calls atomic.Int32
}

func (f *fakeNewMoons) Name() string { return "fake" }

func (f *fakeNewMoons) NewMoons(_ context.Context, year int) (astro.NewMoonTable, error) {
	f.calls.Add(1)
	if f.err != nil {
		return astro.NewMoonTable{}, f.err
	}
	return astro.NewMoonTable{
		Year: year,
		Epochs: []time.Time{
			time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, 1, 30, 12, 0, 0, 0, time.UTC),
		},
		Source: astro.SourceRemote,
	}, nil
}

type fakeWeather struct{}

func (fakeWeather) Enabled() bool { return true }

func (fakeWeather) Current(context.Context, float64, float64) (weather.Conditions, error) {
	return weather.Conditions{TempF: 55, Summary: "Mist"}, nil
}

var day = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func TestAcquirer_FallsThroughSources(t *testing.T) {
	failing := &fakeSnapshots{name: "remote", err: errOffline}
	working := &fakeSnapshots{name: "local"}
	store := cache.NewMemory()

	a := NewAcquirer(WithSnapshotSources(failing, working), WithStore(store))

	snap, err := a.Snapshot(context.Background(), day, newYork)
	require.NoError(t, err)
	assert.Equal(t, "local", snap.Source)
	assert.Equal(t, 70.0, snap.Sun.Coefficient)

	// Second call is served from the cache.
	snap, err = a.Snapshot(context.Background(), day, newYork)
	require.NoError(t, err)
	assert.Equal(t, astro.SourceCache, snap.Source)
	assert.Equal(t, int32(1), working.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestAcquirer_DefaultsWhenAllFail(t *testing.T) {
	a := NewAcquirer(WithSnapshotSources(&fakeSnapshots{name: "a", err: errOffline}))

	snap, err := a.Snapshot(context.Background(), day, newYork)
	assert.True(t, errors.Is(err, errOffline), "err = %v", err)
	assert.Equal(t, astro.SourceDefault, snap.Source)
	assert.Equal(t, astro.DefaultSun, snap.Sun)
	assert.True(t, snap.ValidFor(day))

	_, err = NewAcquirer().Snapshot(context.Background(), day, newYork)
	assert.Error(t, err)
}

func TestAcquirer_SourceTimeout(t *testing.T) {
	slow := &fakeSnapshots{name: "slow", block: true}
	fast := &fakeSnapshots{name: "fast"}
	a := NewAcquirer(WithSnapshotSources(slow, fast), WithSourceTimeout(20*time.Millisecond))

	start := time.Now()
	snap, err := a.Snapshot(context.Background(), day, newYork)
	require.NoError(t, err)
	assert.Equal(t, "fast", snap.Source)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquirer_IgnoresStaleCache(t *testing.T) {
	store := cache.NewMemory()
	old := astro.DefaultSnapshot(day)
	old.Date = "2024-03-14"
	require.NoError(t, store.PutSnapshot(context.Background(), newYork.Key(), old))

	src := &fakeSnapshots{name: "remote"}
	a := NewAcquirer(WithSnapshotSources(src), WithStore(store))
	snap, err := a.Snapshot(context.Background(), day, newYork)
	require.NoError(t, err)
	assert.Equal(t, "remote", snap.Source)
}

func TestAcquirer_NewMoons(t *testing.T) {
	bad := &fakeNewMoons{err: errOffline}
	good := &fakeNewMoons{}
	store := cache.NewMemory()
	a := NewAcquirer(WithNewMoonSources(bad, good), WithStore(store))

	table, err := a.NewMoons(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, table.Year)

	_, err = a.NewMoons(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, int32(1), good.calls.Load(), "second lookup should hit the cache")

	_, err = NewAcquirer(WithNewMoonSources(bad)).NewMoons(context.Background(), 2024)
	assert.True(t, errors.Is(err, errOffline))
}

func TestAcquirer_Refresh(t *testing.T) {
	st := state.NewManager(state.DefaultConfig())
	st.SetObserver(newYork)

	src := &fakeSnapshots{name: "remote"}
	moons := &fakeNewMoons{}
	a := NewAcquirer(WithSnapshotSources(src), WithNewMoonSources(moons))

	a.Refresh(context.Background(), st, day)
	snap := st.Snapshot()
	require.NotNil(t, snap.Position)
	require.NotNil(t, snap.NewMoons)
	assert.Equal(t, "remote", snap.Position.Source)

	// Nothing is refetched while data is fresh.
	a.Refresh(context.Background(), st, day.Add(time.Hour))
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, int32(1), moons.calls.Load())

	// Day rollover refetches the snapshot only.
	a.Refresh(context.Background(), st, day.AddDate(0, 0, 1))
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, int32(1), moons.calls.Load())
}

func TestAcquirer_UnsetObserverUsesDefaults(t *testing.T) {
	src := &fakeSnapshots{name: "local"}
	store := cache.NewMemory()
	a := NewAcquirer(WithSnapshotSources(src), WithStore(store))

	snap, err := a.Snapshot(context.Background(), day, astro.Observer{})
	assert.True(t, errors.Is(err, ErrNoLocation), "err = %v", err)
	assert.Equal(t, astro.SourceDefault, snap.Source)
	assert.Zero(t, src.calls.Load(), "sources should not be asked without a location")

	_, err = store.GetSnapshot(context.Background(), astro.DateKey(day), astro.Observer{}.Key())
	assert.True(t, errors.Is(err, cache.ErrNotFound), "defaults must not be cached")

	// Refresh stores the default, so the scene renders degraded.
	st := state.NewManager(state.DefaultConfig())
	a.Refresh(context.Background(), st, day)
	held := st.Snapshot().Position
	require.NotNil(t, held)
	assert.Equal(t, astro.SourceDefault, held.Source)
}

func TestAcquirer_RefreshWeatherWithoutLocation(t *testing.T) {
	st := state.NewManager(state.DefaultConfig())
	NewAcquirer(WithWeather(fakeWeather{}, time.Minute)).RefreshWeather(context.Background(), st)

	assert.Nil(t, st.Snapshot().Weather)
	events := st.RecentEvents(1)
	require.Len(t, events, 1)
	assert.Equal(t, state.EventFetchFailed, events[0].Type)
}

func TestAcquirer_RefreshWeather(t *testing.T) {
	st := state.NewManager(state.DefaultConfig())
	st.SetObserver(newYork)
	a := NewAcquirer(WithWeather(fakeWeather{}, time.Minute))

	a.RefreshWeather(context.Background(), st)
	w := st.Snapshot().Weather
	require.NotNil(t, w)
	assert.Equal(t, "Mist", w.Summary)

	// A disabled client leaves state untouched.
	st2 := state.NewManager(state.DefaultConfig())
	NewAcquirer(WithWeather(weather.NewClient(), time.Minute)).RefreshWeather(context.Background(), st2)
	assert.Nil(t, st2.Snapshot().Weather)
}

func TestAcquirer_RunStopsOnCancel(t *testing.T) {
	st := state.NewManager(state.DefaultConfig())
	st.SetObserver(newYork)
	a := NewAcquirer(WithSnapshotSources(&fakeSnapshots{name: "remote"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx, st, nil)
		close(done)
	}()

	require.Eventually(t, st.HasData, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestChain(t *testing.T) {
	keyed := NewAstronomyAPI(WithAPIKey("k"))
	unkeyed := NewAstronomyAPI()
	usno := NewUSNOPhases()

	tests := []struct {
		name      string
		mode      Mode
		api       *AstronomyAPI
		snapNames []string
		moonNames []string
	}{
		{"auto", ModeAuto, keyed, []string{"astronomy-api", "local"}, []string{"usno", "local"}},
		{"auto without key", ModeAuto, unkeyed, []string{"local"}, []string{"usno", "local"}},
		{"remote", ModeRemote, keyed, []string{"astronomy-api"}, []string{"usno"}},
		{"local", ModeLocal, keyed, []string{"local"}, []string{"local"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, moons := Chain(tt.mode, tt.api, usno)
			var sn, mn []string
			for _, s := range snaps {
				sn = append(sn, s.Name())
			}
			for _, m := range moons {
				mn = append(mn, m.Name())
			}
			assert.Equal(t, tt.snapNames, sn)
			assert.Equal(t, tt.moonNames, mn)
		})
	}
}
