package testing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/propdb/lib/store"
)

// RunPropertyStoreTests runs a comprehensive test suite for a store.IPropertyStore implementation.
// The factory must return a new, empty store on every call.
func RunPropertyStoreTests(t *testing.T, name string, factory store.StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, factory())
		})

		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, factory())
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory())
		})

		t.Run("EmptyValue", func(t *testing.T) {
			testEmptyValue(t, factory())
		})

		t.Run("ClearAll", func(t *testing.T) {
			testClearAll(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("SpecialCharacters", func(t *testing.T) {
			testSpecialCharacters(t, factory())
		})

		t.Run("ConcurrentWrites", func(t *testing.T) {
			testConcurrentWrites(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustWrite(t testing.TB, s store.IPropertyStore, key, value string) {
	t.Helper()
	if err := s.WriteProperty(key, value); err != nil {
		t.Fatalf("WriteProperty(%q) failed: %v", key, err)
	}
}

func mustRead(t testing.TB, s store.IPropertyStore, key string) (string, bool) {
	t.Helper()
	value, found, err := s.ReadProperty(key)
	if err != nil {
		t.Fatalf("ReadProperty(%q) failed: %v", key, err)
	}
	return value, found
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	mustWrite(t, s, "database:db_test", `{"foo":"bar"}`)

	value, found := mustRead(t, s, "database:db_test")
	if !found {
		t.Fatalf("Expected property to exist after write")
	}
	if value != `{"foo":"bar"}` {
		t.Errorf("Expected value %s, got %s", `{"foo":"bar"}`, value)
	}
}

func testReadMissing(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	value, found := mustRead(t, s, "does-not-exist")
	if found {
		t.Errorf("Expected missing property to return found=false")
	}
	if value != "" {
		t.Errorf("Expected empty value for missing property, got %q", value)
	}
}

func testOverwrite(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	mustWrite(t, s, "k", "v1")
	mustWrite(t, s, "k", "v2")

	value, _ := mustRead(t, s, "k")
	if value != "v2" {
		t.Errorf("Expected overwritten value v2, got %s", value)
	}

	keys, err := s.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected exactly one key after overwrite, got %v", keys)
	}
}

func testEmptyValue(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	mustWrite(t, s, "empty", "")

	value, found := mustRead(t, s, "empty")
	if !found {
		t.Errorf("Expected empty property to exist")
	}
	if value != "" {
		t.Errorf("Expected empty value, got %q", value)
	}
}

func testClearAll(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	for i := 0; i < 10; i++ {
		mustWrite(t, s, fmt.Sprintf("key-%d", i), "value")
	}

	if err := s.ClearAllProperties(); err != nil {
		t.Fatalf("ClearAllProperties failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, found := mustRead(t, s, fmt.Sprintf("key-%d", i)); found {
			t.Errorf("Expected key-%d to be gone after ClearAllProperties", i)
		}
	}

	// clearing twice is fine
	if err := s.ClearAllProperties(); err != nil {
		t.Fatalf("second ClearAllProperties failed: %v", err)
	}

	// the store is still usable
	mustWrite(t, s, "after", "clear")
	if value, _ := mustRead(t, s, "after"); value != "clear" {
		t.Errorf("Expected store to be writable after clear, got %q", value)
	}
}

func testKeys(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	mustWrite(t, s, "database:db_b", "{}")
	mustWrite(t, s, "database:db_a", "{}")
	mustWrite(t, s, "other", "{}")
	mustWrite(t, s, "database%db_x", "{}")

	keys, err := s.Keys("database:db_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}

	expected := []string{"database:db_a", "database:db_b"}
	if strings.Join(keys, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected keys %v, got %v", expected, keys)
	}

	all, err := s.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 keys without prefix, got %v", all)
	}
}

func testSpecialCharacters(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	cases := map[string]string{
		"database:db_ünïcödé": `{"k":"välue"}`,
		"quote'key":           `it's "quoted"`,
		"newline\nkey":        "line1\nline2",
		"database:db_%_":      "percent",
	}

	for k, v := range cases {
		mustWrite(t, s, k, v)
	}
	for k, v := range cases {
		got, found := mustRead(t, s, k)
		if !found || got != v {
			t.Errorf("Expected %q => %q, got %q (found=%v)", k, v, got, found)
		}
	}
}

func testConcurrentWrites(t *testing.T, s store.IPropertyStore) {
	defer s.Close()

	const (
		workers = 8
		writes  = 50
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				if err := s.WriteProperty(fmt.Sprintf("w%d", w), fmt.Sprintf("%d", i)); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		t.Fatalf("concurrent writes failed: %v", err)
	}

	for w := 0; w < workers; w++ {
		value, _ := mustRead(t, s, fmt.Sprintf("w%d", w))
		if value != fmt.Sprintf("%d", writes-1) {
			t.Errorf("Expected last write %d for worker %d, got %s", writes-1, w, value)
		}
	}
}
