// Package store persists analysis results in BadgerDB, msgpack-encoded and
// expiring after a configurable TTL.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/logging"
)

// ErrNotFound is returned for unknown or expired ids
var ErrNotFound = errors.New("analysis not found")

const resultPrefix = "analysis/"

// Options configures the result store
type Options struct {
	// Dir holds the database files; ignored in memory mode
	Dir      string
	InMemory bool
	// TTL is how long a result is kept; zero keeps it forever
	TTL time.Duration
}

// Store keeps analysis results by id
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates the store
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logging.WithFields(logging.Fields{"component": "badger"})})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Store{db: db, ttl: opts.TTL}, nil
}

// Put stores a result under its id
func (s *Store) Put(_ context.Context, r *analysis.Result) error {
	if r == nil || r.ID == "" {
		return errors.New("store: result has no id")
	}
	data, err := encode(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(resultPrefix+r.ID), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get loads a result
func (s *Store) Get(_ context.Context, id string) (*analysis.Result, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(resultPrefix + id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var r analysis.Result
	if err := decode(val, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &r, nil
}

// Delete removes a result; unknown ids are not an error
func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(resultPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Count returns the number of live results
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Results reuse their JSON field names on the wire
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// badgerLogger routes badger output into the structured logger, dropping
// its info and debug chatter
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(nil, fmt.Sprintf(f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
