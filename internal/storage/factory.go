package storage

import "fmt"

const (
	KindMemory = "memory"
	KindDir    = "dir"
	KindSQLite = "sqlite"
)

func DefaultStoreKind() string {
	return KindDir
}

// NewStore builds a backend; path is the checkpoint root for "dir" and the
// database file for "sqlite".
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindDir:
		return NewDirStore(path), nil
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(path)
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
