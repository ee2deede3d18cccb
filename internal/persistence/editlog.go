package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"voxelworld/internal/world"

	"github.com/dgraph-io/badger/v3"
)

var errClosed = errors.New("edit log closed")

const editPrefix = "edit:"

// BadgerEditLog is a world.EditLog journaled in BadgerDB. Keys are
// "edit:<cx>:<cz>:<index>" and values hold the block ID, so rewriting a
// cell replaces its previous edit.
type BadgerEditLog struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// OpenEditLog opens or creates the journal in dir. An empty dir keeps the
// database in memory.
func OpenEditLog(dir string) (*BadgerEditLog, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open edit log: %w", err)
	}
	return &BadgerEditLog{db: db}, nil
}

func columnPrefix(cc world.ColumnCoord) []byte {
	return []byte(editPrefix + strconv.Itoa(cc.X) + ":" + strconv.Itoa(cc.Z) + ":")
}

func editKey(cc world.ColumnCoord, idx int) []byte {
	return strconv.AppendInt(columnPrefix(cc), int64(idx), 10)
}

func (l *BadgerEditLog) Record(cc world.ColumnCoord, e world.Edit) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return errClosed
	}
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(editKey(cc, e.Index), []byte{byte(e.Block)})
	})
	if err != nil {
		return fmt.Errorf("record edit %v/%d: %w", cc, e.Index, err)
	}
	return nil
}

// Edits returns the column's edits ordered by key.
func (l *BadgerEditLog) Edits(cc world.ColumnCoord) ([]world.Edit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, errClosed
	}

	prefix := columnPrefix(cc)
	var out []world.Edit
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			idx, err := strconv.Atoi(string(bytes.TrimPrefix(item.Key(), prefix)))
			if err != nil {
				return fmt.Errorf("bad edit key %q: %w", item.Key(), err)
			}
			err = item.Value(func(val []byte) error {
				if len(val) != 1 {
					return fmt.Errorf("bad edit value for %q", item.Key())
				}
				out = append(out, world.Edit{Index: idx, Block: world.BlockType(val[0])})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read edits for %v: %w", cc, err)
	}
	return out, nil
}

// Reset drops every recorded edit.
func (l *BadgerEditLog) Reset() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return errClosed
	}

	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(editPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan edits: %w", err)
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("drop edits: %w", err)
		}
	}
	return wb.Flush()
}

// Len counts recorded edits.
func (l *BadgerEditLog) Len() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, errClosed
	}
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(editPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the database. Further calls fail.
func (l *BadgerEditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
