package suggest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrelsoft/glint/internal/item"
	"github.com/kestrelsoft/glint/internal/prefs"
)

// stubProvider counts fetch triggers and optionally reacts to them.
type stubProvider struct {
	fetches atomic.Int32
	onFetch func()
}

func (p *stubProvider) RequestDataFetch() {
	p.fetches.Add(1)
	if p.onFetch != nil {
		p.onFetch()
	}
}

// stubClient serves one stubProvider per provider slot. Nil slots behave
// like a client without that provider.
type stubClient struct {
	calendar *stubProvider
	files    *stubProvider
	tabs     *stubProvider
	weather  *stubProvider
	relnotes *stubProvider
}

func newStubClient() *stubClient {
	return &stubClient{
		calendar: &stubProvider{},
		files:    &stubProvider{},
		tabs:     &stubProvider{},
		weather:  &stubProvider{},
		relnotes: &stubProvider{},
	}
}

func (c *stubClient) CalendarProvider() DataProvider {
	if c.calendar == nil {
		return nil
	}
	return c.calendar
}

func (c *stubClient) FileSuggestProvider() DataProvider {
	if c.files == nil {
		return nil
	}
	return c.files
}

func (c *stubClient) RecentTabsProvider() DataProvider {
	if c.tabs == nil {
		return nil
	}
	return c.tabs
}

func (c *stubClient) WeatherProvider() DataProvider {
	if c.weather == nil {
		return nil
	}
	return c.weather
}

func (c *stubClient) ReleaseNotesProvider() DataProvider {
	if c.relnotes == nil {
		return nil
	}
	return c.relnotes
}

// stubRemovalStore holds the ready signal until the test releases it.
type stubRemovalStore struct {
	mu      sync.Mutex
	removed map[string]struct{}
	ready   func()
}

func newStubStore() *stubRemovalStore {
	return &stubRemovalStore{removed: make(map[string]struct{})}
}

func (s *stubRemovalStore) Init(onReady func()) {
	s.mu.Lock()
	s.ready = onReady
	s.mu.Unlock()
}

func (s *stubRemovalStore) finishInit() {
	s.mu.Lock()
	ready := s.ready
	s.ready = nil
	s.mu.Unlock()
	if ready != nil {
		ready()
	}
}

func (s *stubRemovalStore) IsRemoved(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.removed[key]
	return ok
}

func (s *stubRemovalStore) RecordRemoved(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[key] = struct{}{}
}

// prefsWith returns a store with only the given categories enabled.
func prefsWith(enabled ...item.Category) *prefs.Store {
	s := prefs.New()
	for _, c := range item.Categories() {
		s.SetEnabled(c, false)
	}
	for _, c := range enabled {
		s.SetEnabled(c, true)
	}
	return s
}

// newReadyModel builds a model with an attached client and a finished
// removal index.
func newReadyModel(t *testing.T, p *prefs.Store, opts ...Option) (*Model, *stubClient, *stubRemovalStore) {
	t.Helper()
	store := newStubStore()
	m := New(p, store, opts...)
	t.Cleanup(m.Close)

	client := newStubClient()
	if err := m.SetClientAndInit(client); err != nil {
		t.Fatalf("SetClientAndInit: %v", err)
	}
	store.finishInit()
	return m, client, store
}

func calItem(id string) *item.CalendarItem {
	start := time.Now().Add(time.Hour)
	return item.NewCalendarItem("Event "+id, id, start, start.Add(time.Hour), false)
}

func weatherItem(desc string) *item.WeatherItem {
	return item.NewWeatherItem(desc, 68, "")
}

func TestRequestDataFetch_ResolvesWhenAllFresh(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryCalendar, item.CategoryWeather),
		WithNormalTimeout(500*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})
	if calls.Load() != 0 {
		t.Fatal("callback fired before all gated categories delivered")
	}

	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Sunny")})
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 after final delivery", calls.Load())
	}
	if m.PendingRequestCount() != 0 {
		t.Errorf("pending = %d, want 0", m.PendingRequestCount())
	}

	// The stopped timer must not fire a second completion.
	time.Sleep(600 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d after deadline passed, want 1", calls.Load())
	}
}

func TestRequestDataFetch_TimeoutDeliversOnce(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryCalendar, item.CategoryWeather),
		WithNormalTimeout(80*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	// Calendar delivers; weather never does.
	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})

	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("callback fired before the deadline")
	}

	time.Sleep(120 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 at deadline", calls.Load())
	}
	if m.PendingRequestCount() != 0 {
		t.Errorf("pending = %d, want 0 after timeout", m.PendingRequestCount())
	}

	// Partial data stays available for best-effort reads.
	if n := len(m.ItemsForCategory(item.CategoryCalendar)); n != 1 {
		t.Errorf("calendar buffer has %d items, want 1", n)
	}
}

func TestRequestDataFetch_LateDeliveryAfterTimeoutDoesNotRefire(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(50*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Rain")})

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1", calls.Load())
	}
}

func TestRequestDataFetch_IndependentRequests(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryCalendar, item.CategoryWeather),
		WithNormalTimeout(80*time.Millisecond), WithPostLoginTimeout(400*time.Millisecond))

	var short, long atomic.Int32
	m.RequestDataFetch(false, func() { short.Add(1) })
	m.RequestDataFetch(true, func() { long.Add(1) })

	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})

	// The short request times out; the long one must stay pending.
	time.Sleep(150 * time.Millisecond)
	if short.Load() != 1 {
		t.Fatalf("short calls = %d, want 1", short.Load())
	}
	if long.Load() != 0 {
		t.Fatal("long request resolved by the short request's timeout")
	}
	if m.PendingRequestCount() != 1 {
		t.Fatalf("pending = %d, want 1", m.PendingRequestCount())
	}

	// Weather arrives within the long deadline and resolves it by freshness.
	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Fog")})
	if long.Load() != 1 {
		t.Fatalf("long calls = %d, want 1 after delivery", long.Load())
	}

	time.Sleep(400 * time.Millisecond)
	if short.Load() != 1 || long.Load() != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", short.Load(), long.Load())
	}
}

func TestRequestDataFetch_SecondRequestJoinsCycle(t *testing.T) {
	m, client, _ := newReadyModel(t, prefsWith(item.CategoryCalendar),
		WithNormalTimeout(300*time.Millisecond))

	var first, second atomic.Int32
	m.RequestDataFetch(false, func() { first.Add(1) })
	m.RequestDataFetch(false, func() { second.Add(1) })

	// Only the cycle-starting request triggers providers.
	if n := client.calendar.fetches.Load(); n != 1 {
		t.Fatalf("calendar provider triggered %d times, want 1", n)
	}

	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})
	if first.Load() != 1 || second.Load() != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", first.Load(), second.Load())
	}
}

func TestRequestDataFetch_NewCycleMarksDataNotFresh(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(100*time.Millisecond))

	done := make(chan struct{})
	m.RequestDataFetch(false, func() { close(done) })
	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Sunny")})
	<-done

	if !m.IsDataFresh() {
		t.Fatal("data should be fresh after delivery")
	}

	m.RequestDataFetch(false, nil)
	if m.IsDataFresh() {
		t.Error("starting a new cycle should clear freshness")
	}
}

func TestRequestDataFetch_ProvidersTriggeredOnlyForEnabled(t *testing.T) {
	m, client, _ := newReadyModel(t, prefsWith(item.CategoryCalendar, item.CategoryWeather),
		WithNormalTimeout(50*time.Millisecond))

	m.RequestDataFetch(false, nil)

	if client.calendar.fetches.Load() != 1 {
		t.Errorf("calendar fetches = %d, want 1", client.calendar.fetches.Load())
	}
	if client.weather.fetches.Load() != 1 {
		t.Errorf("weather fetches = %d, want 1", client.weather.fetches.Load())
	}
	if client.files.fetches.Load() != 0 || client.tabs.fetches.Load() != 0 || client.relnotes.fetches.Load() != 0 {
		t.Error("disabled categories must not trigger their providers")
	}
}

func TestRequestDataFetch_AttachmentRidesCalendarProvider(t *testing.T) {
	m, client, _ := newReadyModel(t, prefsWith(item.CategoryCalendar, item.CategoryAttachment),
		WithNormalTimeout(50*time.Millisecond))

	m.RequestDataFetch(false, nil)

	// One trigger serves both categories.
	if n := client.calendar.fetches.Load(); n != 1 {
		t.Errorf("calendar provider triggered %d times, want 1", n)
	}
}

func TestRequestDataFetch_AttachmentOnlyStillTriggersCalendarProvider(t *testing.T) {
	m, client, _ := newReadyModel(t, prefsWith(item.CategoryAttachment),
		WithNormalTimeout(50*time.Millisecond))

	m.RequestDataFetch(false, nil)

	if n := client.calendar.fetches.Load(); n != 1 {
		t.Errorf("calendar provider triggered %d times, want 1", n)
	}
}

func TestRequestDataFetch_AllDisabledResolvesImmediately(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(), WithNormalTimeout(5*time.Second))

	released := make(chan struct{})
	done := make(chan struct{})
	m.RequestDataFetch(false, func() {
		<-released // proves the callback is off the caller's stack
		close(done)
	})
	close(released)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("empty-gate request did not resolve promptly")
	}
	if m.PendingRequestCount() != 0 {
		t.Errorf("pending = %d, want 0", m.PendingRequestCount())
	}
}

func TestRequestDataFetch_NoClientResolvesByTimeoutOnly(t *testing.T) {
	store := newStubStore()
	m := New(prefsWith(item.CategoryCalendar), store, WithNormalTimeout(80*time.Millisecond))
	defer m.Close()

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("callback fired early with no client attached")
	}

	time.Sleep(120 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRequestDataFetch_CallbacksFireInRequestOrder(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(300*time.Millisecond))

	var mu sync.Mutex
	var order []int
	for i := 0; i < 4; i++ {
		i := i
		m.RequestDataFetch(false, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Clear")})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 4 {
		t.Fatalf("resolved %d requests, want 4", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want requests resolved in registration order", order)
		}
	}
}

func TestRequestDataFetch_ReentrantFetchFromCallback(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(200*time.Millisecond))

	second := make(chan struct{})
	m.RequestDataFetch(false, func() {
		// Reentering the model from a completion callback must not
		// deadlock or double-fire.
		m.RequestDataFetch(false, func() { close(second) })
		m.SetWeatherItems([]*item.WeatherItem{weatherItem("Inner")})
	})

	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Outer")})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("reentrant request never resolved")
	}
}

func TestRequestDataFetch_DuplicateDeliveryReplacesBuffer(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(200*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	m.SetWeatherItems([]*item.WeatherItem{weatherItem("First")})
	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Second")})

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}

	buf := m.ItemsForCategory(item.CategoryWeather)
	if len(buf) != 1 || buf[0].Title() != "Second" {
		t.Errorf("buffer = %v, want the second delivery only", buf)
	}
}

func TestPrefDisable_UnblocksPendingRequest(t *testing.T) {
	p := prefsWith(item.CategoryCalendar, item.CategoryWeather)
	m, _, _ := newReadyModel(t, p, WithNormalTimeout(500*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })
	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})

	if calls.Load() != 0 {
		t.Fatal("request resolved before weather delivered or was disabled")
	}

	// Disabling weather prunes it from the gate: the request resolves
	// without weather ever delivering, and freshness holds.
	p.SetEnabled(item.CategoryWeather, false)

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 after disable", calls.Load())
	}
	if !m.IsDataFresh() {
		t.Error("IsDataFresh should be true once the stalled category is disabled")
	}
	if n := len(m.ItemsForCategory(item.CategoryWeather)); n != 0 {
		t.Errorf("weather buffer has %d items after disable, want 0", n)
	}
}

func TestPrefDisable_ClearsBufferedItems(t *testing.T) {
	p := prefsWith(item.CategoryRecentTab)
	m, _, _ := newReadyModel(t, p, WithNormalTimeout(50*time.Millisecond))

	m.SetRecentTabItems([]*item.TabItem{item.NewTabItem("Docs", "https://d", time.Now())})
	if len(m.ItemsForCategory(item.CategoryRecentTab)) != 1 {
		t.Fatal("tab item should be buffered")
	}

	p.SetEnabled(item.CategoryRecentTab, false)
	if len(m.ItemsForCategory(item.CategoryRecentTab)) != 0 {
		t.Error("disable should clear the category buffer")
	}
}

func TestPrefEnable_DoesNotGateExistingRequests(t *testing.T) {
	p := prefsWith(item.CategoryCalendar)
	m, client, _ := newReadyModel(t, p, WithNormalTimeout(500*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })

	// Weather joins mid-cycle: the in-flight request must not start
	// waiting on it, but its provider is fetched for future requests.
	p.SetEnabled(item.CategoryWeather, true)
	if n := client.weather.fetches.Load(); n != 1 {
		t.Errorf("weather fetches = %d, want 1 after mid-cycle enable", n)
	}

	m.SetCalendarItems([]*item.CalendarItem{calItem("c1")})
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1; enable must not grow the pending gate", calls.Load())
	}

	// The newly enabled category is not fresh until it delivers.
	if m.IsDataFresh() {
		t.Error("IsDataFresh should be false until weather delivers")
	}
	m.SetWeatherItems([]*item.WeatherItem{weatherItem("Hail")})
	if !m.IsDataFresh() {
		t.Error("IsDataFresh should be true after weather delivers")
	}
}

func TestPrefEnable_NoCycleNoProviderTrigger(t *testing.T) {
	p := prefsWith(item.CategoryCalendar)
	m, client, _ := newReadyModel(t, p, WithNormalTimeout(50*time.Millisecond))

	p.SetEnabled(item.CategoryWeather, true)
	if n := client.weather.fetches.Load(); n != 0 {
		t.Errorf("weather fetches = %d, want 0 with no cycle in flight", n)
	}
	if m.PendingRequestCount() != 0 {
		t.Errorf("pending = %d, want 0", m.PendingRequestCount())
	}
}

func TestClose_DropsPendingCallbacks(t *testing.T) {
	m, _, _ := newReadyModel(t, prefsWith(item.CategoryCalendar),
		WithNormalTimeout(80*time.Millisecond))

	var calls atomic.Int32
	m.RequestDataFetch(false, func() { calls.Add(1) })
	m.RequestDataFetch(false, func() { calls.Add(1) })

	m.Close()

	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d after Close, want 0", calls.Load())
	}

	// A closed model ignores new requests and deliveries.
	m.RequestDataFetch(false, func() { calls.Add(1) })
	m.SetCalendarItems([]*item.CalendarItem{calItem("late")})
	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d after post-close request, want 0", calls.Load())
	}
	if m.GetAllItems() != nil {
		t.Error("closed model reads should return nothing")
	}
}

func TestClose_Idempotent(t *testing.T) {
	m := New(prefs.New(), newStubStore())
	m.Close()
	m.Close()
}

func TestWeatherProviderOverride(t *testing.T) {
	override := &stubProvider{}
	m, client, _ := newReadyModel(t, prefsWith(item.CategoryWeather),
		WithNormalTimeout(50*time.Millisecond), WithWeatherProvider(override))

	m.RequestDataFetch(false, nil)

	if override.fetches.Load() != 1 {
		t.Errorf("override fetches = %d, want 1", override.fetches.Load())
	}
	if client.weather.fetches.Load() != 0 {
		t.Error("client weather provider must not be triggered when overridden")
	}
}
