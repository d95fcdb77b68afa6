package widget

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-by-city/internal/geo"
	"github.com/i474232898/weather-by-city/internal/notify"
	"github.com/i474232898/weather-by-city/internal/weather"
)

// scriptedLookup answers per query string. Queries listed in block wait until
// released or cancelled.
type scriptedLookup struct {
	mu      sync.Mutex
	answers map[string]weather.Snapshot
	errs    map[string]error
	block   map[string]chan struct{}
	calls   []string
}

func newScriptedLookup() *scriptedLookup {
	return &scriptedLookup{
		answers: map[string]weather.Snapshot{},
		errs:    map[string]error{},
		block:   map[string]chan struct{}{},
	}
}

func (l *scriptedLookup) Lookup(ctx context.Context, q weather.Query) (weather.Snapshot, error) {
	key := q.String()
	l.mu.Lock()
	l.calls = append(l.calls, key)
	gate := l.block[key]
	snap, err := l.answers[key], l.errs[key]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return weather.Snapshot{}, weather.NewTransportError(ctx.Err())
		}
	}
	return snap, err
}

func (l *scriptedLookup) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (r *recordingNotifier) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for _, n := range r.seen {
		out = append(out, string(n.Level)+": "+n.Message)
	}
	return out
}

func (r *recordingNotifier) has(msg string) bool {
	for _, m := range r.messages() {
		if m == msg {
			return true
		}
	}
	return false
}

type fakeGauge struct {
	mu sync.Mutex
	n  int
}

func (g *fakeGauge) Inc() { g.mu.Lock(); g.n++; g.mu.Unlock() }
func (g *fakeGauge) Dec() { g.mu.Lock(); g.n--; g.mu.Unlock() }
func (g *fakeGauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func startRuntime(t *testing.T, lookup Lookuper, locator geo.Locator, opts ...RuntimeOption) (*Runtime, *recordingNotifier) {
	t.Helper()
	rec := &recordingNotifier{}
	rt := NewRuntime(lookup, locator, rec, nil, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return rt, rec
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestRuntime_MountLooksUpCurrentLocation(t *testing.T) {
	lookup := newScriptedLookup()
	here := weather.Coordinates{Lat: 23.8103, Lon: 90.4125}
	lookup.answers[here.String()] = dhakaSnapshot
	locator, err := geo.NewStatic(here)
	require.NoError(t, err)

	rt, rec := startRuntime(t, lookup, locator)

	eventually(t, func() bool { return rt.State().Snapshot != nil }, "snapshot after mount")
	assert.Equal(t, "Dhaka", rt.State().Snapshot.Location)
	assert.False(t, rt.State().IsLoading)
	eventually(t, func() bool { return rec.has("success: Weather updated for Dhaka") }, "success toast")
}

func TestRuntime_MountWithoutLocationShowsError(t *testing.T) {
	lookup := newScriptedLookup()
	rt, rec := startRuntime(t, lookup, nil)

	eventually(t, func() bool { return rec.has("error: " + MsgLocationUnsupported) }, "unsupported toast")
	assert.Nil(t, rt.State().Snapshot)
	assert.Zero(t, lookup.callCount())
}

func TestRuntime_SearchCityFlow(t *testing.T) {
	lookup := newScriptedLookup()
	lookup.answers["Dhaka"] = dhakaSnapshot
	rt, rec := startRuntime(t, lookup, nil)
	ctx := context.Background()

	s, err := rt.Dispatch(ctx, CityInputChanged{Text: "Dhaka"})
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", s.CityInput)

	s, err = rt.Dispatch(ctx, SearchCity{Name: s.CityInput})
	require.NoError(t, err)
	assert.True(t, s.IsLoading)

	eventually(t, func() bool { return !rt.State().IsLoading }, "fetch completes")
	final := rt.State()
	require.NotNil(t, final.Snapshot)
	assert.Equal(t, dhakaSnapshot, *final.Snapshot)
	assert.Empty(t, final.CityInput)
	assert.True(t, rec.has("success: Weather updated for Dhaka"))
}

func TestRuntime_BlankSearchMakesNoCall(t *testing.T) {
	lookup := newScriptedLookup()
	rt, rec := startRuntime(t, lookup, nil)

	s, err := rt.Dispatch(context.Background(), SearchCity{Name: "   "})
	require.NoError(t, err)
	assert.False(t, s.IsLoading)

	eventually(t, func() bool { return rec.has("warning: " + MsgBlankCity) }, "warning toast")
	assert.Zero(t, lookup.callCount())
}

func TestRuntime_ProviderErrorMessageIsShownVerbatim(t *testing.T) {
	lookup := newScriptedLookup()
	lookup.errs["Atlantis"] = &weather.ProviderError{Code: 404, Message: "city not found"}
	rt, rec := startRuntime(t, lookup, nil)

	_, err := rt.Dispatch(context.Background(), SearchCity{Name: "Atlantis"})
	require.NoError(t, err)

	eventually(t, func() bool { return rec.has("error: city not found") }, "provider toast")
	assert.Nil(t, rt.State().Snapshot)
	assert.False(t, rt.State().IsLoading)
}

func TestRuntime_NewSearchCancelsPrevious(t *testing.T) {
	lookup := newScriptedLookup()
	paris := dhakaSnapshot
	paris.Location = "Paris"
	lookup.answers["Paris"] = paris
	lookup.block["Paris"] = make(chan struct{}) // never released
	lookup.answers["Dhaka"] = dhakaSnapshot
	gauge := &fakeGauge{}
	rt, rec := startRuntime(t, lookup, nil, WithInFlightGauge(gauge))
	ctx := context.Background()

	_, err := rt.Dispatch(ctx, SearchCity{Name: "Paris"})
	require.NoError(t, err)
	_, err = rt.Dispatch(ctx, SearchCity{Name: "Dhaka"})
	require.NoError(t, err)

	eventually(t, func() bool { return !rt.State().IsLoading }, "second fetch completes")
	assert.Equal(t, "Dhaka", rt.State().Snapshot.Location)
	eventually(t, func() bool { return gauge.value() == 0 }, "cancelled fetch released")

	for _, m := range rec.messages() {
		assert.False(t, strings.HasPrefix(m, "error: "+MsgFetchFailed), "superseded fetch must stay silent: %s", m)
	}
}

func TestRuntime_RefreshRepeatsLastQuery(t *testing.T) {
	lookup := newScriptedLookup()
	lookup.answers["Dhaka"] = dhakaSnapshot
	rt, _ := startRuntime(t, lookup, nil)
	ctx := context.Background()

	_, err := rt.Dispatch(ctx, SearchCity{Name: "Dhaka"})
	require.NoError(t, err)
	eventually(t, func() bool { return rt.State().Snapshot != nil }, "first fetch")

	_, err = rt.Dispatch(ctx, CityInputChanged{Text: "Lon"})
	require.NoError(t, err)
	_, err = rt.Dispatch(ctx, Refresh{})
	require.NoError(t, err)

	eventually(t, func() bool { return lookup.callCount() == 2 && !rt.State().IsLoading }, "refresh fetch")
	assert.Equal(t, "Lon", rt.State().CityInput)
}

func TestRuntime_DispatchAfterStop(t *testing.T) {
	rt := NewRuntime(newScriptedLookup(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	_, err := rt.Dispatch(context.Background(), CityInputChanged{Text: "x"})
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)

	_, err = rt.Dispatch(context.Background(), CityInputChanged{Text: "y"})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Error(t, rt.Run(context.Background()), "second Run is rejected")
}
