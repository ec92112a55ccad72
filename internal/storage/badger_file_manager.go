package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/standardbeagle/xref/internal/debug"
)

// BadgerConfig holds configuration for the embedded BadgerDB backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM; used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// badgerLogger adapts the debug package to BadgerDB's Logger interface.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	debug.LogError("BADGER", errors.New(fmt.Sprintf(format, args...)), "badger")
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	debug.Log("BADGER", "WARN "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	debug.Log("BADGER", format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	debug.Log("BADGER", format, args...)
}

// blobPrefix namespaces node blobs inside the database.
var blobPrefix = []byte("blob/")

// BadgerFileManager stores blobs as values of an embedded BadgerDB.
type BadgerFileManager struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerFileManager opens (or creates) a database for blobs.
func OpenBadgerFileManager(cfg BadgerConfig) (*BadgerFileManager, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerFileManager{db: db, owned: true}, nil
}

// NewBadgerFileManager uses an already opened database. Close leaves db open.
func NewBadgerFileManager(db *badger.DB) *BadgerFileManager {
	return &BadgerFileManager{db: db}
}

func blobKey(name string) []byte {
	key := make([]byte, 0, len(blobPrefix)+len(name))
	key = append(key, blobPrefix...)
	return append(key, name...)
}

// Read implements FileManager.
func (m *BadgerFileManager) Read(name string) ([]byte, error) {
	var data []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("blob %s: %w", name, os.ErrNotExist)
	}
	return data, err
}

// Write implements FileManager.
func (m *BadgerFileManager) Write(name string, data []byte) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(name), data)
	})
}

// Delete implements FileManager.
func (m *BadgerFileManager) Delete(name string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blobKey(name))
	})
}

// Names implements FileManager.
func (m *BadgerFileManager) Names() ([]string, error) {
	var names []string
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = blobPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(blobPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Clear implements FileManager.
func (m *BadgerFileManager) Clear() error {
	return m.db.DropPrefix(blobPrefix)
}

// Close implements FileManager.
func (m *BadgerFileManager) Close() error {
	if !m.owned {
		return nil
	}
	return m.db.Close()
}
