// Package suggest aggregates suggestion items from asynchronous data
// providers into a single ranked, filtered list.
//
// The Model is the package's center: it owns one buffer per item category,
// tracks which categories the current fetch cycle has refreshed, and
// resolves fetch requests exactly once: either when every gated category
// has delivered fresh data or when the request's deadline elapses. All
// reads pass through a fail-closed removal filter that hides items until
// the persisted removal index finishes loading.
//
// # Fetch Lifecycle
//
// A fetch request joins the in-flight cycle when one exists; otherwise it
// starts a new cycle by clearing every freshness flag and triggering the
// enabled providers:
//
//	model.RequestDataFetch(false, func() {
//	    items := model.GetItemsForDisplay()
//	    // render items
//	})
//
// Providers deliver on their own goroutines:
//
//	model.SetCalendarItems(events)
//	model.SetWeatherItems(conditions)
//
// Each delivery re-evaluates every pending request. A request whose gated
// categories are all fresh resolves immediately; one that never fills its
// gate resolves at its deadline with whatever data has arrived. Completion
// callbacks are always invoked outside the model's lock, so they may call
// back into the Model freely.
//
// # Preferences
//
// The Model subscribes to a prefs.Store. Disabling a category clears its
// buffer, drops it from every pending request's gate (possibly resolving
// requests on the spot) and removes it from display output. Re-enabling
// marks the category not fresh; it gates future requests only.
//
// # Removal
//
// RemoveItem records the item's key in the removal store and strips it
// from the buffers synchronously. Until the store signals ready, GetAllItems
// and GetItemsForDisplay return nothing rather than risk showing an item
// the user already dismissed.
//
// # Concurrency
//
// One mutex guards the buffers, the freshness flags and the pending-request
// map, preserving the invariant that a request gate is evaluated atomically
// with the delivery that might satisfy it. Rankers run under that lock and
// must not call back into the Model; every other callback (completion,
// preference, client-set) runs outside it.
package suggest
