package store

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/errors"
	"github.com/mirage-net/mirage/internal/files"
)

var _ Store = (*BadgerStore)(nil)

// BadgerStore is a Store backed by BadgerDB, using Badger's native per-entry TTL for expiry.
// NewBadgerStore should be used to create instances of BadgerStore.
type BadgerStore struct {
	db     *badger.DB
	logger hclog.Logger
	opts   Options

	stopGC chan struct{}
	gcWg   sync.WaitGroup
	once   sync.Once
}

// NewBadgerStore opens a BadgerDB, on disk when a directory is configured and in memory otherwise.
func NewBadgerStore(logger hclog.Logger, opt ...Option) (*BadgerStore, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	logger = logger.Named("store")

	var badgerOpts badger.Options
	if opts.Dir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := files.EnsureSecureDir(opts.Dir); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrBackendUnavailable, err)
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger store: %w", errors.ErrBackendUnavailable, err)
	}

	s := &BadgerStore{
		db:     db,
		logger: logger,
		opts:   opts,
		stopGC: make(chan struct{}),
	}

	// Value log GC is not supported for in-memory databases.
	if opts.Dir != "" {
		s.startGC()
	}

	logger.Info("Opened key-value store", "dir", opts.Dir, "in_memory", opts.Dir == "")

	return s, nil
}

func (s *BadgerStore) Set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, value, ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", errors.ErrBackendUnavailable, key, err)
	}

	return nil
}

func (s *BadgerStore) Replace(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.SetEntry(newEntry(key, value, ttl))
	})
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	default:
		return fmt.Errorf("%w: replace %s: %w", errors.ErrBackendUnavailable, key, err)
	}
}

func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return value, nil
	case stdErrors.Is(err, badger.ErrKeyNotFound):
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	default:
		return nil, fmt.Errorf("%w: get %s: %w", errors.ErrBackendUnavailable, key, err)
	}
}

func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", errors.ErrBackendUnavailable, key, err)
	}

	return nil
}

func (s *BadgerStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(prefix)

		// Expired and deleted entries are skipped by the iterator.
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: keys %s: %w", errors.ErrBackendUnavailable, prefix, err)
	}

	// Badger iterates in byte order, which is already sorted.
	return keys, nil
}

// Close stops garbage collection and closes the database, it is safe to call more than once.
func (s *BadgerStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopGC)
		s.gcWg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *BadgerStore) startGC() {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()

		ticker := time.NewTicker(s.opts.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopGC:
				return
			case <-ticker.C:
				s.runGC()
			}
		}
	}()
}

// runGC rewrites value log files until there is nothing left worth collecting.
func (s *BadgerStore) runGC() {
	for {
		if err := s.db.RunValueLogGC(s.opts.GCDiscardRatio); err != nil {
			if !stdErrors.Is(err, badger.ErrNoRewrite) {
				s.logger.Debug("Value log GC stopped", "error", err)
			}
			return
		}
	}
}

func newEntry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

// badgerLogger adapts an hclog.Logger to badger.Logger.
type badgerLogger struct {
	logger hclog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Trace(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
