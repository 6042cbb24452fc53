package rank

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// ErrNoRankFunction is returned when a policy script does not define a
// global rank function.
var ErrNoRankFunction = errors.New("rank script does not define rank()")

// Script entry point and batch-time global.
const (
	rankFunction = "rank"
	globalNow    = "now"
)

// Lua ranks items with a user-provided policy script. The script defines
//
//	function rank(item)
//	  ...
//	end
//
// called once per item. Returning a number assigns that ranking (lower is
// better); returning nil, or nothing, leaves the item unranked so it is
// dropped from display. The item argument is a read-only table carrying
// category, key, and title plus per-category fields (see itemTable);
// timestamps are unix seconds, and the global now holds the batch time in
// the same form.
//
// Script errors leave the affected item unranked and are logged, never
// propagated. The underlying lua.LState is not goroutine-safe, so ranking
// runs under an internal mutex.
type Lua struct {
	mu     sync.Mutex
	L      *lua.LState
	logger *zap.Logger
	now    func() time.Time
	closed bool
}

// LuaOption configures a Lua ranker.
type LuaOption func(*Lua)

// WithLuaLogger sets the logger for script failures.
func WithLuaLogger(l *zap.Logger) LuaOption {
	return func(r *Lua) {
		r.logger = l
	}
}

// WithLuaClock sets the time source for the now global.
func WithLuaClock(now func() time.Time) LuaOption {
	return func(r *Lua) {
		r.now = now
	}
}

// NewLua loads the policy script at path.
func NewLua(path string, opts ...LuaOption) (*Lua, error) {
	return newLua(func(L *lua.LState) error { return L.DoFile(path) }, opts)
}

// NewLuaString loads the policy from source. Embedded policies and tests
// use this form.
func NewLuaString(src string, opts ...LuaOption) (*Lua, error) {
	return newLua(func(L *lua.LState) error { return L.DoString(src) }, opts)
}

func newLua(load func(*lua.LState) error, opts []LuaOption) (*Lua, error) {
	r := &Lua{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	if err := load(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("load rank script: %w", err)
	}
	if fn := L.GetGlobal(rankFunction); fn.Type() != lua.LTFunction {
		L.Close()
		return nil, ErrNoRankFunction
	}

	r.L = L
	return r, nil
}

// openSafeLibraries opens the script-visible stdlib subset. io, os, and
// debug stay closed, and the load family is removed from base.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Rank implements Ranker. Items whose rank call fails are skipped.
func (r *Lua) Rank(items []item.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	now := r.now()
	r.L.SetGlobal(globalNow, lua.LNumber(now.Unix()))

	for _, it := range items {
		score, ok, err := r.rankOne(it, now)
		if err != nil {
			r.logger.Warn("rank script failed",
				zap.String("key", it.Key()),
				zap.Error(err))
			continue
		}
		if ok {
			it.SetRanking(score)
		}
	}
}

// rankOne calls rank(item) and interprets the single result.
func (r *Lua) rankOne(it item.Item, now time.Time) (score float64, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	top := r.L.GetTop()
	defer r.L.SetTop(top)

	r.L.Push(r.L.GetGlobal(rankFunction))
	r.L.Push(r.itemTable(it, now))
	if err := r.L.PCall(1, 1, nil); err != nil {
		return 0, false, err
	}

	switch v := r.L.Get(-1).(type) {
	case lua.LNumber:
		return float64(v), true, nil
	case *lua.LNilType:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("rank returned %s, want number or nil", v.Type())
	}
}

// itemTable builds the script-facing view of one item. Every table carries
// category, key, and title; the rest depends on the category.
func (r *Lua) itemTable(it item.Item, now time.Time) *lua.LTable {
	t := r.L.NewTable()
	t.RawSetString("category", lua.LString(it.Category().String()))
	t.RawSetString("key", lua.LString(it.Key()))
	t.RawSetString("title", lua.LString(it.Title()))

	switch v := it.(type) {
	case *item.CalendarItem:
		t.RawSetString("start_time", lua.LNumber(v.StartTime.Unix()))
		t.RawSetString("end_time", lua.LNumber(v.EndTime.Unix()))
		t.RawSetString("all_day", lua.LBool(v.AllDay))
		t.RawSetString("ongoing", lua.LBool(v.Ongoing(now)))
	case *item.AttachmentItem:
		t.RawSetString("start_time", lua.LNumber(v.StartTime.Unix()))
		t.RawSetString("end_time", lua.LNumber(v.EndTime.Unix()))
		t.RawSetString("file_id", lua.LString(v.FileID))
	case *item.FileItem:
		t.RawSetString("path", lua.LString(v.Path))
		t.RawSetString("timestamp", lua.LNumber(v.Timestamp.Unix()))
	case *item.TabItem:
		t.RawSetString("url", lua.LString(v.URL))
		t.RawSetString("timestamp", lua.LNumber(v.Timestamp.Unix()))
	case *item.WeatherItem:
		t.RawSetString("temperature", lua.LNumber(v.Temperature))
	case *item.ReleaseNotesItem:
		t.RawSetString("url", lua.LString(v.URL))
		t.RawSetString("first_seen", lua.LNumber(v.FirstSeen.Unix()))
	}

	return readonly(r.L, t)
}

// readonly wraps t in a proxy whose metatable rejects writes.
func readonly(L *lua.LState, t *lua.LTable) *lua.LTable {
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", t)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("item table is read-only")
		return 0
	}))
	L.SetMetatable(proxy, mt)
	return proxy
}

// Close releases the Lua state. Rank becomes a no-op afterwards.
func (r *Lua) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.L.Close()
	return nil
}
