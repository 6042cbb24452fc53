package suggest

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// pendingRequest is one in-flight fetch request. The callback runs exactly
// once, either when every category in gate is fresh or when the timer
// fires. Ownership of the callback transfers by deleting the entry from
// the pending map; whichever path deletes it invokes it.
type pendingRequest struct {
	id         uint64
	onComplete func()
	timer      *time.Timer
	created    time.Time

	// gate is the enabled categories snapshotted at creation. Disabling
	// a category removes it from every pending gate; the gate never
	// grows back.
	gate item.CategorySet

	postLogin bool
}

// RequestDataFetch registers a fetch request. onComplete runs exactly once,
// off the caller's stack, when every enabled category has delivered fresh
// data or when the request's deadline elapses, whichever comes first.
//
// The first request of a cycle clears all freshness flags and triggers the
// enabled providers. Requests made while others are pending ride the
// in-flight cycle rather than forcing a re-fetch.
//
// postLogin selects the longer deadline used for the burst of work right
// after login. A closed model ignores the request and never runs the
// callback.
func (m *Model) RequestDataFetch(postLogin bool, onComplete func()) {
	if onComplete == nil {
		onComplete = func() {}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	enabled := m.prefs.EnabledSet()
	timeout := m.normalTimeout
	if postLogin {
		timeout = m.postLoginTimeout
	}

	cycleStart := len(m.pending) == 0
	if cycleStart {
		m.markAllNotFreshLocked()
		m.lastFetchStart = time.Now()
	}

	id := m.nextRequestID
	m.nextRequestID++

	req := &pendingRequest{
		id:         id,
		onComplete: onComplete,
		created:    time.Now(),
		gate:       enabled,
		postLogin:  postLogin,
	}
	m.pending[id] = req
	req.timer = time.AfterFunc(timeout, func() {
		m.handleRequestTimeout(id)
	})

	// A request joining an in-flight cycle may already be satisfied; an
	// all-disabled gate is satisfied trivially. Resolve it off this stack.
	var fire *pendingRequest
	if m.gateSatisfiedLocked(req) {
		req.timer.Stop()
		delete(m.pending, id)
		fire = req
	}

	var trigger []DataProvider
	if cycleStart {
		trigger = m.providersLocked(enabled)
	}
	m.mu.Unlock()

	m.logger.Debug("fetch requested",
		zap.Uint64("request_id", id),
		zap.Bool("post_login", postLogin),
		zap.Duration("timeout", timeout),
		zap.Stringer("gate", req.gate),
		zap.Bool("cycle_start", cycleStart))

	for _, p := range trigger {
		p.RequestDataFetch()
	}
	if fire != nil {
		go m.resolve(fire, "immediate")
	}
}

// handleRequestTimeout resolves the request with whatever data has arrived.
// A request already resolved by delivery is gone from the map and the late
// timer does nothing.
func (m *Model) handleRequestTimeout(id uint64) {
	m.mu.Lock()
	req, ok := m.pending[id]
	if !ok || m.closed {
		m.mu.Unlock()
		return
	}
	delete(m.pending, id)
	m.mu.Unlock()

	m.resolve(req, "timeout")
}

// takeSatisfiedLocked removes every pending request whose gate is fully
// fresh and returns them in request-id order. Callers invoke the callbacks
// after releasing the model's lock.
func (m *Model) takeSatisfiedLocked() []*pendingRequest {
	var done []*pendingRequest
	for id, req := range m.pending {
		if m.gateSatisfiedLocked(req) {
			req.timer.Stop()
			delete(m.pending, id)
			done = append(done, req)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].id < done[j].id })
	return done
}

func (m *Model) gateSatisfiedLocked(req *pendingRequest) bool {
	return m.allFreshLocked(req.gate)
}

// resolve runs a request's completion callback. The model's lock must not
// be held.
func (m *Model) resolve(req *pendingRequest, reason string) {
	m.logger.Debug("fetch request resolved",
		zap.Uint64("request_id", req.id),
		zap.String("reason", reason),
		zap.Duration("elapsed", time.Since(req.created)))
	req.onComplete()
}

// resolveAll runs completion callbacks in request-id order.
func (m *Model) resolveAll(reqs []*pendingRequest, reason string) {
	for _, req := range reqs {
		m.resolve(req, reason)
	}
}

// providersLocked returns the providers to trigger for the enabled set.
func (m *Model) providersLocked(enabled item.CategorySet) []DataProvider {
	var out []DataProvider
	for _, c := range enabled.Categories() {
		if c == item.CategoryAttachment && enabled.Has(item.CategoryCalendar) {
			continue // the calendar provider delivers both
		}
		if p := m.providerForLocked(c); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// providerForLocked maps a category to its provider, honoring the weather
// override. Returns nil when no client is attached or the client has no
// provider for the category.
func (m *Model) providerForLocked(c item.Category) DataProvider {
	switch c {
	case item.CategoryCalendar, item.CategoryAttachment:
		if m.client != nil {
			return m.client.CalendarProvider()
		}
	case item.CategoryFileSuggestion:
		if m.client != nil {
			return m.client.FileSuggestProvider()
		}
	case item.CategoryRecentTab:
		if m.client != nil {
			return m.client.RecentTabsProvider()
		}
	case item.CategoryWeather:
		if m.weatherProvider != nil {
			return m.weatherProvider
		}
		if m.client != nil {
			return m.client.WeatherProvider()
		}
	case item.CategoryReleaseNotes:
		if m.client != nil {
			return m.client.ReleaseNotesProvider()
		}
	}
	return nil
}
