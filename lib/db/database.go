package db

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/lib/value"
)

// Database is one named, in-memory key/value mapping backed by a single property
// of the store. Instances are created and owned by a DatabaseManager.
//
// Every data operation (Get, GetStrict, Has, GetAll, Entries, Keys, Values, Size,
// Set, Delete, Clear, Flush, Save) refreshes the last access time before it runs.
// Changes stay in memory until the database is flushed: explicitly, by the
// CacheCleaner, or when the manager shuts down.
//
// Thread-safety: all methods are safe for concurrent use.
type Database struct {
	name       string
	storageKey string
	store      store.IPropertyStore
	now        func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element // key -> element holding *value.Entry
	order *list.List               // insertion order

	lastAccessed atomic.Int64 // unix nanoseconds

	// writeMu serializes flushes; it is taken before mu.
	writeMu sync.Mutex
	evicted atomic.Bool
}

// newDatabase hydrates the database with the given name from st.
// A missing record is created as an empty document first.
func newDatabase(name string, st store.IPropertyStore, now func() time.Time) (*Database, error) {
	d := &Database{
		name:       name,
		storageKey: StorageKey(name),
		store:      st,
		now:        now,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}

	text, found, err := st.ReadProperty(d.storageKey)
	if err != nil {
		return nil, fmt.Errorf("hydrate database '%s': %w", name, err)
	}

	if !found {
		Logger.Warningf("database '%s' has no record under '%s', initializing it with %s",
			name, d.storageKey, value.EmptyDocument)
		if err := st.WriteProperty(d.storageKey, value.EmptyDocument); err != nil {
			return nil, fmt.Errorf("initialize database '%s': %w", name, err)
		}
		text = value.EmptyDocument
	}

	entries, err := value.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("hydrate database '%s': %w", name, err)
	}
	for _, e := range entries {
		d.items[e.Key] = d.order.PushBack(&value.Entry{Key: e.Key, Value: e.Value})
	}

	d.touch()
	hydratedTotal.Inc()
	Logger.Debugf("hydrated database '%s' with %d entries", name, len(entries))

	return d, nil
}

// --------------------------------------------------------------------------
// Metadata
// --------------------------------------------------------------------------

func (d *Database) Name() string { return d.name }

func (d *Database) StorageKey() string { return d.storageKey }

// LastAccessed returns the time of the last data operation. It does not count as an access.
func (d *Database) LastAccessed() time.Time {
	return time.Unix(0, d.lastAccessed.Load())
}

// Info returns a snapshot of the database metadata. It does not count as an access.
func (d *Database) Info() DatabaseInfo {
	d.mu.Lock()
	size := len(d.items)
	d.mu.Unlock()

	return DatabaseInfo{
		Name:         d.name,
		StorageKey:   d.storageKey,
		Size:         size,
		LastAccessed: d.LastAccessed(),
		Evicted:      d.evicted.Load(),
	}
}

func (d *Database) touch() {
	d.lastAccessed.Store(d.now().UnixNano())
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Get returns the value stored under key. A missing key yields an absent value and false.
func (d *Database) Get(key string) (value.Value, bool) {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.items[key]; ok {
		return el.Value.(*value.Entry).Value, true
	}
	return value.Absent(), false
}

// GetStrict is Get, but a missing key fails with RetCKeyNotFound.
func (d *Database) GetStrict(key string) (value.Value, error) {
	v, ok := d.Get(key)
	if !ok {
		return value.Value{}, store.NewError(store.RetCKeyNotFound,
			fmt.Sprintf("key '%s' not found in database '%s'", key, d.name))
	}
	return v, nil
}

func (d *Database) Has(key string) bool {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.items[key]
	return ok
}

// GetAll returns a copy of all entries. Changing the map does not change the database.
func (d *Database) GetAll() map[string]value.Value {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]value.Value, len(d.items))
	for k, el := range d.items {
		out[k] = el.Value.(*value.Entry).Value
	}
	return out
}

// Entries returns a copy of all entries in insertion order.
func (d *Database) Entries() []value.Entry {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.entriesLocked()
}

func (d *Database) Keys() []string {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.items))
	for el := d.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*value.Entry).Key)
	}
	return out
}

func (d *Database) Values() []value.Value {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]value.Value, 0, len(d.items))
	for el := d.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*value.Entry).Value)
	}
	return out
}

func (d *Database) Size() int {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.items)
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or replaces the value under key. A replaced key keeps its position.
func (d *Database) Set(key string, v value.Value) {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.items[key]; ok {
		el.Value.(*value.Entry).Value = v
		return
	}
	d.items[key] = d.order.PushBack(&value.Entry{Key: key, Value: v})
}

// Delete removes key and reports whether it was present.
func (d *Database) Delete(key string) bool {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.items[key]
	if !ok {
		return false
	}
	d.order.Remove(el)
	delete(d.items, key)
	return true
}

func (d *Database) Clear() {
	d.touch()
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items = make(map[string]*list.Element)
	d.order.Init()
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Flush writes all entries to the store. A failed write is returned and the
// in-memory state is kept. After the instance was evicted Flush fails with RetCEvicted.
func (d *Database) Flush() error {
	d.touch()
	return d.flush()
}

// Save is an alias for Flush.
func (d *Database) Save() error {
	return d.Flush()
}

// flush is Flush without refreshing the access time.
func (d *Database) flush() error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.evicted.Load() {
		return store.NewError(store.RetCEvicted,
			fmt.Sprintf("database '%s' was evicted, fetch it again from the manager", d.name))
	}

	d.mu.Lock()
	text, err := value.Encode(d.entriesLocked())
	d.mu.Unlock()
	if err != nil {
		flushErrorsTotal.Inc()
		return fmt.Errorf("flush database '%s': %w", d.name, err)
	}

	return d.write(text)
}

// retire flushes the database and marks it evicted if it has been idle for at
// least idleFor (idleFor <= 0 skips the check). The check, the flush and the
// marking happen while all operations on the instance are blocked.
// It reports whether the instance was retired.
func (d *Database) retire(now time.Time, idleFor time.Duration) (bool, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.evicted.Load() {
		return true, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if idleFor > 0 && now.Sub(d.LastAccessed()) < idleFor {
		return false, nil
	}

	text, err := value.Encode(d.entriesLocked())
	if err != nil {
		flushErrorsTotal.Inc()
		return false, fmt.Errorf("flush database '%s': %w", d.name, err)
	}
	if err := d.write(text); err != nil {
		return false, err
	}

	d.evicted.Store(true)
	return true, nil
}

func (d *Database) write(text string) error {
	if err := d.store.WriteProperty(d.storageKey, text); err != nil {
		flushErrorsTotal.Inc()
		return fmt.Errorf("flush database '%s': %w", d.name, err)
	}
	flushesTotal.Inc()
	return nil
}

func (d *Database) entriesLocked() []value.Entry {
	out := make([]value.Entry, 0, len(d.items))
	for el := d.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*value.Entry))
	}
	return out
}
