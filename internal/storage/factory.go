package storage

import "fmt"

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

func DefaultStoreKind() string {
	return KindMemory
}

// NewStore builds a backend by name. path is the sqlite database file or the
// badger directory; an empty badger path keeps the data in memory.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(path)
	case KindBadger:
		return NewBadgerStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
