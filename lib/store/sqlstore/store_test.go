package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/propdb/lib/store"
	storetesting "github.com/ValentinKolb/propdb/lib/store/testing"
)

func Test(t *testing.T) {
	storetesting.RunPropertyStoreTests(t, "SQLiteStore(memory)", func() store.IPropertyStore {
		s, err := Open(":memory:")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("Expected error for empty path")
	}
}

func TestReopenKeepsProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.WriteProperty("database:db_persist", `{"a":1}`); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	value, found, err := s.ReadProperty("database:db_persist")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !found || value != `{"a":1}` {
		t.Errorf("Expected property to survive reopen, got %q (found=%v)", value, found)
	}
}
