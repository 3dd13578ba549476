package lstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/propdb/lib/store"
)

// DefaultMaxValueBytes is the per-property size cap of the host property storage.
const DefaultMaxValueBytes = 32767

// StoreOptions configures the local store.
type StoreOptions struct {
	MaxValueBytes int // Maximum length of a single value in bytes (0 = unbounded)
	MaxTotalBytes int // Maximum summed length of all keys and values in bytes (0 = unbounded)
}

// DefaultOptions returns the default local store options
func DefaultOptions() *StoreOptions {
	return &StoreOptions{
		MaxValueBytes: DefaultMaxValueBytes,
		MaxTotalBytes: 0,
	}
}

type storeImpl struct {
	mu         sync.RWMutex
	props      map[string]string
	totalBytes int
	opts       StoreOptions

	failWrites atomic.Bool
}

// LocalStore is the in-memory property store.
// Besides store.IPropertyStore it exposes fault injection for tests.
type LocalStore interface {
	store.IPropertyStore
	// FailWrites makes every following WriteProperty call fail (true) or succeed (false).
	FailWrites(fail bool)
}

// NewLocalStore creates a new local store instance (options are optional).
// This store is not persistent: all properties are lost when the process exits.
func NewLocalStore(opts *StoreOptions) LocalStore {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &storeImpl{
		props: make(map[string]string),
		opts:  *opts,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) ReadProperty(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.props[key]
	return val, ok, nil
}

func (s *storeImpl) WriteProperty(key, value string) error {
	if s.failWrites.Load() {
		return store.NewError(store.RetCStorageWrite, fmt.Sprintf("write of property '%s' rejected", key))
	}

	// check the per value quota
	if s.opts.MaxValueBytes > 0 && len(value) > s.opts.MaxValueBytes {
		return store.NewError(store.RetCStorageWrite, fmt.Sprintf("property '%s' exceeds the size limit (%d > %d bytes)", key, len(value), s.opts.MaxValueBytes))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// compute the total size after this write
	newTotal := s.totalBytes + len(key) + len(value)
	if old, ok := s.props[key]; ok {
		newTotal -= len(key) + len(old)
	}

	// check the total quota
	if s.opts.MaxTotalBytes > 0 && newTotal > s.opts.MaxTotalBytes {
		return store.NewError(store.RetCStorageWrite, fmt.Sprintf("property '%s' exceeds the storage quota (%d > %d bytes)", key, newTotal, s.opts.MaxTotalBytes))
	}

	s.props[key] = value
	s.totalBytes = newTotal
	return nil
}

func (s *storeImpl) ClearAllProperties() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.props = make(map[string]string)
	s.totalBytes = 0
	return nil
}

func (s *storeImpl) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.props {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *storeImpl) Close() error {
	return nil
}

func (s *storeImpl) FailWrites(fail bool) {
	s.failWrites.Store(fail)
}
