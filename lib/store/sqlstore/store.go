package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

var Logger = logger.GetLogger("store")

// defaultTimeout bounds every single statement. The store interface is synchronous,
// so this is the only place where a hanging database could block a caller.
const defaultTimeout = 10 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

type storeImpl struct {
	sqlDB   *sql.DB
	timeout time.Duration
}

// Open opens (or creates) a SQLite backed property store.
// Use ":memory:" for an in-memory database.
func Open(path string) (store.IPropertyStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// every connection of ":memory:" would be a separate database
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	Logger.Infof("opened sqlite property store at %s", path)

	return &storeImpl{
		sqlDB:   sqlDB,
		timeout: defaultTimeout,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) ReadProperty(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM properties WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.WrapError(store.RetCInternalError, fmt.Sprintf("read property '%s'", key), err)
	}
	return value, true, nil
}

func (s *storeImpl) WriteProperty(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO properties (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return store.WrapError(store.RetCStorageWrite, fmt.Sprintf("write property '%s'", key), err)
	}
	return nil
}

func (s *storeImpl) ClearAllProperties() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM properties`); err != nil {
		return store.WrapError(store.RetCStorageWrite, "clear properties", err)
	}
	return nil
}

func (s *storeImpl) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// substr instead of LIKE so '%' and '_' in the prefix are matched literally.
	// substr counts characters on TEXT values, not bytes.
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT key FROM properties WHERE substr(key, 1, ?) = ? ORDER BY key`,
		utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "list properties", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, store.WrapError(store.RetCInternalError, "scan property key", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(store.RetCInternalError, "list properties", err)
	}
	return keys, nil
}

func (s *storeImpl) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
