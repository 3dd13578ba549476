package lstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/propdb/lib/store"
	storetesting "github.com/ValentinKolb/propdb/lib/store/testing"
)

func Test(t *testing.T) {
	storetesting.RunPropertyStoreTests(t, "LocalStore", func() store.IPropertyStore {
		return NewLocalStore(nil)
	})
}

func TestValueQuota(t *testing.T) {
	s := NewLocalStore(&StoreOptions{MaxValueBytes: 8})

	if err := s.WriteProperty("k", "12345678"); err != nil {
		t.Fatalf("Expected write at the limit to succeed: %v", err)
	}

	err := s.WriteProperty("k", "123456789")
	if !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("Expected StorageWrite error, got %v", err)
	}

	// the old value stays in place
	if v, _, _ := s.ReadProperty("k"); v != "12345678" {
		t.Errorf("Expected previous value to survive a failed write, got %q", v)
	}
}

func TestTotalQuota(t *testing.T) {
	s := NewLocalStore(&StoreOptions{MaxTotalBytes: 10})

	// 1 + 4 bytes
	if err := s.WriteProperty("a", "aaaa"); err != nil {
		t.Fatalf("write a: %v", err)
	}
	// 1 + 5 bytes => 11 > 10
	if err := s.WriteProperty("b", "bbbbb"); !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("Expected quota error, got %v", err)
	}
	// replacing a value frees its old size
	if err := s.WriteProperty("a", strings.Repeat("x", 9)); err != nil {
		t.Fatalf("Expected overwrite within quota to succeed: %v", err)
	}
	// clearing resets the accounting
	if err := s.ClearAllProperties(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.WriteProperty("b", "bbbbb"); err != nil {
		t.Fatalf("Expected write after clear to succeed: %v", err)
	}
}

func TestFailWrites(t *testing.T) {
	s := NewLocalStore(nil)
	s.FailWrites(true)

	if err := s.WriteProperty("k", "v"); !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("Expected injected write failure, got %v", err)
	}
	if _, found, _ := s.ReadProperty("k"); found {
		t.Errorf("Expected failed write to leave no property behind")
	}

	s.FailWrites(false)
	if err := s.WriteProperty("k", "v"); err != nil {
		t.Fatalf("Expected write to succeed again: %v", err)
	}
}
