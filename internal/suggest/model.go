package suggest

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
	"github.com/kestrelsoft/glint/internal/prefs"
	"github.com/kestrelsoft/glint/internal/removal"
)

const (
	// defaultNormalTimeout bounds an ordinary fetch request.
	defaultNormalTimeout = 1 * time.Second

	// defaultPostLoginTimeout bounds the first fetch after login, when
	// providers are cold and allowed extra time.
	defaultPostLoginTimeout = 3 * time.Second

	// defaultDisplayBudget caps GetItemsForDisplay.
	defaultDisplayBudget = 8
)

// Model aggregates suggestion items from the attached client's providers
// and answers ranked, filtered reads. All methods are safe for concurrent
// use, and callbacks delivered by the model may call back into it.
type Model struct {
	prefs  *prefs.Store
	store  removal.Store
	logger *zap.Logger
	ranker Ranker

	normalTimeout    time.Duration
	postLoginTimeout time.Duration
	displayBudget    int

	mu              sync.Mutex
	sources         [item.NumCategories]sourceRecord
	pending         map[uint64]*pendingRequest
	nextRequestID   uint64
	client          Client
	weatherProvider DataProvider
	removalReady    bool
	closed          bool
	lastFetchStart  time.Time
	sawAccountSwap  bool

	clientObservers map[uint64]func()
	nextObserverID  uint64

	prefSub *prefs.Subscription
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the model's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithRanker sets the ranker applied by GetItemsForDisplay. Without one,
// display items pass through unranked in buffer order.
func WithRanker(r Ranker) Option {
	return func(m *Model) {
		m.ranker = r
	}
}

// WithDisplayBudget caps the number of items GetItemsForDisplay returns.
// Zero or negative means no cap.
func WithDisplayBudget(n int) Option {
	return func(m *Model) {
		m.displayBudget = n
	}
}

// WithNormalTimeout sets the deadline for ordinary fetch requests.
func WithNormalTimeout(d time.Duration) Option {
	return func(m *Model) {
		m.normalTimeout = d
	}
}

// WithPostLoginTimeout sets the deadline for post-login fetch requests.
func WithPostLoginTimeout(d time.Duration) Option {
	return func(m *Model) {
		m.postLoginTimeout = d
	}
}

// WithWeatherProvider routes weather fetches to p instead of the client's
// weather provider.
func WithWeatherProvider(p DataProvider) Option {
	return func(m *Model) {
		m.weatherProvider = p
	}
}

// New creates a Model reading preferences from prefStore and removal state
// from store. A nil prefStore defaults to an in-memory store with every
// category enabled; a nil store defaults to an in-memory removal index.
func New(prefStore *prefs.Store, store removal.Store, opts ...Option) *Model {
	if prefStore == nil {
		prefStore = prefs.New()
	}
	if store == nil {
		store = removal.NewMemory()
	}

	m := &Model{
		prefs:            prefStore,
		store:            store,
		logger:           zap.NewNop(),
		normalTimeout:    defaultNormalTimeout,
		postLoginTimeout: defaultPostLoginTimeout,
		displayBudget:    defaultDisplayBudget,
		pending:          make(map[uint64]*pendingRequest),
		clientObservers:  make(map[uint64]func()),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.prefSub = prefStore.Subscribe(m.onPrefChanged)
	return m
}

// SetClientAndInit attaches the provider client and begins loading the
// removal index. Client-set observers are notified before this returns.
// The client can be attached once for the model's lifetime.
func (m *Model) SetClientAndInit(client Client) error {
	if client == nil {
		return ErrNilClient
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrModelClosed
	}
	if m.client != nil {
		m.mu.Unlock()
		return ErrClientAlreadySet
	}
	m.client = client
	observers := m.clientObserversLocked()
	m.mu.Unlock()

	m.store.Init(m.onRemovalReady)
	m.logger.Info("provider client attached")

	for _, fn := range observers {
		fn()
	}
	return nil
}

func (m *Model) onRemovalReady() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.removalReady = true
	m.mu.Unlock()
	m.logger.Info("removal index initialized")
}

// ClientSetRegistration is an active ObserveClientSet registration.
type ClientSetRegistration struct {
	id    uint64
	model *Model
}

// Cancel removes the registration.
func (r *ClientSetRegistration) Cancel() {
	if r.model != nil {
		r.model.mu.Lock()
		delete(r.model.clientObservers, r.id)
		r.model.mu.Unlock()
	}
}

// ObserveClientSet registers fn to run once when a client attaches.
// Registrations made after the client is already attached are never
// notified.
func (m *Model) ObserveClientSet(fn func()) *ClientSetRegistration {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextObserverID
	m.nextObserverID++
	m.clientObservers[id] = fn
	return &ClientSetRegistration{id: id, model: m}
}

// clientObserversLocked snapshots the observers in registration order.
func (m *Model) clientObserversLocked() []func() {
	ids := make([]uint64, 0, len(m.clientObservers))
	for id := range m.clientObservers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.clientObservers[id])
	}
	return out
}

// SetCalendarItems replaces the calendar buffer and marks it fresh. The
// model takes ownership of the items.
func (m *Model) SetCalendarItems(items []*item.CalendarItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryCalendar, converted)
}

// SetAttachmentItems replaces the attachment buffer and marks it fresh.
func (m *Model) SetAttachmentItems(items []*item.AttachmentItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryAttachment, converted)
}

// SetFileSuggestItems replaces the file suggestion buffer and marks it fresh.
func (m *Model) SetFileSuggestItems(items []*item.FileItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryFileSuggestion, converted)
}

// SetRecentTabItems replaces the recent tab buffer and marks it fresh.
func (m *Model) SetRecentTabItems(items []*item.TabItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryRecentTab, converted)
}

// SetWeatherItems replaces the weather buffer and marks it fresh.
func (m *Model) SetWeatherItems(items []*item.WeatherItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryWeather, converted)
}

// SetReleaseNotesItems replaces the release notes buffer and marks it fresh.
func (m *Model) SetReleaseNotesItems(items []*item.ReleaseNotesItem) {
	converted := make([]item.Item, len(items))
	for i, it := range items {
		converted[i] = it
	}
	m.setItems(item.CategoryReleaseNotes, converted)
}

// setItems is the shared delivery path: replace the buffer, mark fresh,
// then resolve every pending request whose gate is now satisfied. A second
// delivery within one cycle replaces the buffer again; that is not an
// error.
func (m *Model) setItems(cat item.Category, items []item.Item) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.sources[cat] = sourceRecord{items: items, fresh: true}
	done := m.takeSatisfiedLocked()
	m.mu.Unlock()

	m.logger.Debug("items delivered",
		zap.Stringer("category", cat),
		zap.Int("count", len(items)),
		zap.Int("resolved", len(done)))

	m.resolveAll(done, "fresh")
}

// onPrefChanged reacts to a category toggle. Disabling clears the buffer,
// prunes the category from every pending gate and may resolve requests on
// the spot. Enabling marks the category not fresh and, when a cycle is in
// flight, triggers its provider so later requests see data promptly.
func (m *Model) onPrefChanged(cat item.Category, enabled bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	if !enabled {
		m.sources[cat] = sourceRecord{}
		for _, req := range m.pending {
			req.gate = req.gate.Without(cat)
		}
		done := m.takeSatisfiedLocked()
		m.mu.Unlock()
		m.resolveAll(done, "category disabled")
		return
	}

	m.sources[cat].fresh = false
	var trigger DataProvider
	if len(m.pending) > 0 {
		trigger = m.providerForLocked(cat)
	}
	m.mu.Unlock()

	if trigger != nil {
		trigger.RequestDataFetch()
	}
}

// GetAllItems returns every buffered item not matching the removal index,
// regardless of category preferences, in no particular order. It returns
// nothing until the removal index is initialized.
func (m *Model) GetAllItems() []item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.removalReady {
		return nil
	}

	var out []item.Item
	for _, c := range item.Categories() {
		for _, it := range m.sources[c].items {
			if !m.store.IsRemoved(it.Key()) {
				out = append(out, it)
			}
		}
	}
	return out
}

// GetItemsForDisplay returns the ranked display list: items from enabled
// categories, minus removed keys, ranked, sorted ascending, deduplicated
// by key and truncated to the display budget. Items the ranker leaves
// unranked are dropped. It returns nothing until the removal index is
// initialized.
func (m *Model) GetItemsForDisplay() []item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.removalReady {
		return nil
	}

	enabled := m.prefs.EnabledSet()
	var items []item.Item
	for _, c := range item.Categories() {
		if !enabled.Has(c) {
			continue
		}
		for _, it := range m.sources[c].items {
			if !m.store.IsRemoved(it.Key()) {
				items = append(items, it)
			}
		}
	}

	if m.ranker != nil {
		// Buffers outlive display passes, so stale rankings must not
		// survive into this one.
		for _, it := range items {
			it.SetRanking(item.RankingNone)
		}
		m.ranker.Rank(items)
		ranked := items[:0]
		for _, it := range items {
			if it.Ranking() != item.RankingNone {
				ranked = append(ranked, it)
			}
		}
		items = ranked
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Ranking() < items[j].Ranking()
		})
	}

	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}

	if m.displayBudget > 0 && len(out) > m.displayBudget {
		out = out[:m.displayBudget]
	}
	return out
}

// ItemsForCategory returns a copy of one category's buffer, unfiltered.
func (m *Model) ItemsForCategory(c item.Category) []item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !c.Valid() || m.closed {
		return nil
	}
	out := make([]item.Item, len(m.sources[c].items))
	copy(out, m.sources[c].items)
	return out
}

// IsDataFresh reports whether every currently enabled category is fresh,
// independent of any pending request.
func (m *Model) IsDataFresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	return m.allFreshLocked(m.prefs.EnabledSet())
}

// RemoveItem records the item's key in the removal index and strips it
// from its category buffer so a concurrent read cannot re-expose it.
func (m *Model) RemoveItem(it item.Item) {
	if it == nil {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.removeKeyLocked(it.Category(), it.Key())
	m.mu.Unlock()

	m.logger.Debug("item removed", zap.String("key", it.Key()))
}

// RemoveItemByKey removes the buffered item with the given key. It returns
// ErrNoSuchItem when nothing in the buffers matches.
func (m *Model) RemoveItemByKey(key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrModelClosed
	}

	for _, c := range item.Categories() {
		for _, it := range m.sources[c].items {
			if it.Key() == key {
				m.removeKeyLocked(c, key)
				m.mu.Unlock()
				m.logger.Debug("item removed", zap.String("key", key))
				return nil
			}
		}
	}
	m.mu.Unlock()
	return ErrNoSuchItem
}

func (m *Model) removeKeyLocked(cat item.Category, key string) {
	m.store.RecordRemoved(key)

	buf := m.sources[cat].items
	kept := buf[:0]
	for _, b := range buf {
		if b.Key() != key {
			kept = append(kept, b)
		}
	}
	m.sources[cat].items = kept
}

// HandleActiveAccountChanged clears all buffered items when the active
// account switches. The first notification is the initial signin and is
// ignored.
func (m *Model) HandleActiveAccountChanged() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if !m.sawAccountSwap {
		m.sawAccountSwap = true
		m.mu.Unlock()
		return
	}
	m.clearAllLocked()
	m.mu.Unlock()

	m.logger.Info("active account changed, cleared all items")
}

// LastFetchStart returns when the current or most recent fetch cycle began.
func (m *Model) LastFetchStart() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFetchStart
}

// PendingRequestCount returns the number of unresolved fetch requests.
func (m *Model) PendingRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close stops all request timers and drops their callbacks without
// invoking them. Subsequent mutations are ignored and reads return
// nothing. Close is idempotent.
func (m *Model) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, req := range m.pending {
		req.timer.Stop()
		delete(m.pending, id)
	}
	sub := m.prefSub
	m.prefSub = nil
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.logger.Debug("model closed")
}
