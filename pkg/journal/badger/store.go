// Package badger implements the pipeline journal on BadgerDB.
//
// The journal holds the pipeline's pending work (queued references, queued
// upload items, buffered tokens and the history ring) so a restart resumes
// where the previous process stopped.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Metrics observes journal operations. A nil Metrics records nothing.
type Metrics interface {
	ObserveSave(duration time.Duration, records int, err error)
	ObserveLoad(duration time.Duration, err error)
	SetSize(lsm, vlog int64)
}

// Options configures the journal database.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory. Tests only.
	InMemory bool

	// GCInterval is the period of value log garbage collection.
	// Zero disables the background collector.
	GCInterval time.Duration
}

// Store is a BadgerDB-backed pipeline.Journal.
type Store struct {
	db      *badgerdb.DB
	metrics Metrics

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ pipeline.Journal = (*Store)(nil)

// Open opens or creates the journal database.
func Open(opts Options, m Metrics) (*Store, error) {
	var bopts badgerdb.Options
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("journal path is required")
		}
		bopts = badgerdb.DefaultOptions(opts.Path)
	}
	// Badger's own logger is noisy at INFO
	bopts = bopts.WithLogger(nil)

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	s := &Store{
		db:      db,
		metrics: m,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if opts.GCInterval > 0 && !opts.InMemory {
		go s.runGC(opts.GCInterval)
	} else {
		close(s.done)
	}

	logger.Debug("Journal opened", logger.KeyPath, opts.Path, "in_memory", opts.InMemory)
	return s, nil
}

// Save replaces the stored snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snap *pipeline.Snapshot) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("nil snapshot")
	}

	start := time.Now()
	records := 0
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSave(time.Since(start), records, err)
		}
	}()

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if err := deletePrefixes(txn, dataPrefixes); err != nil {
			return err
		}

		set := func(key []byte, v any) error {
			data, err := encode(v)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("failed to store %s: %w", key, err)
			}
			records++
			return nil
		}

		for i, ref := range snap.Downloads {
			if err := set(keySeq(prefixDownload, i), ref); err != nil {
				return err
			}
		}
		for i, item := range snap.Uploads {
			if err := set(keySeq(prefixUpload, i), item); err != nil {
				return err
			}
		}
		for dest, tokens := range snap.Tokens {
			if len(tokens) == 0 {
				continue
			}
			if err := set(keyTokens(dest), tokens); err != nil {
				return err
			}
		}
		for i, entry := range snap.History {
			if err := set(keySeq(prefixHistory, i), entry); err != nil {
				return err
			}
		}

		return set(keyHeader(), snapshotHeader{
			Version:   schemaVersion,
			SavedAt:   snap.SavedAt,
			Downloads: len(snap.Downloads),
			Uploads:   len(snap.Uploads),
			History:   len(snap.History),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// deletePrefixes removes every key under the given prefixes within txn.
func deletePrefixes(txn *badgerdb.Txn, prefixes []string) error {
	var keys [][]byte
	for _, prefix := range prefixes {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
	}
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// Load returns the stored snapshot, or nil if none was saved.
func (s *Store) Load(ctx context.Context) (snap *pipeline.Snapshot, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveLoad(time.Since(start), err)
		}
	}()

	err = s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyHeader())
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var header snapshotHeader
		if err := item.Value(func(val []byte) error { return decode(val, &header) }); err != nil {
			return err
		}
		if header.Version != schemaVersion {
			return fmt.Errorf("unsupported journal schema version %d", header.Version)
		}

		out := &pipeline.Snapshot{
			Tokens:  make(map[string][]string),
			SavedAt: header.SavedAt,
		}

		err = scan(txn, prefixDownload, func(_ string, val []byte) error {
			var ref pipeline.ContentReference
			if err := decode(val, &ref); err != nil {
				return err
			}
			out.Downloads = append(out.Downloads, ref)
			return nil
		})
		if err != nil {
			return err
		}

		err = scan(txn, prefixUpload, func(_ string, val []byte) error {
			var si pipeline.SnapshotItem
			if err := decode(val, &si); err != nil {
				return err
			}
			out.Uploads = append(out.Uploads, si)
			return nil
		})
		if err != nil {
			return err
		}

		err = scan(txn, prefixTokens, func(key string, val []byte) error {
			var tokens []string
			if err := decode(val, &tokens); err != nil {
				return err
			}
			out.Tokens[strings.TrimPrefix(key, prefixTokens)] = tokens
			return nil
		})
		if err != nil {
			return err
		}

		err = scan(txn, prefixHistory, func(_ string, val []byte) error {
			var e pipeline.SnapshotEntry
			if err := decode(val, &e); err != nil {
				return err
			}
			out.History = append(out.History, e)
			return nil
		})
		if err != nil {
			return err
		}

		snap = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// scan calls fn for every record under prefix in key order.
func scan(txn *badgerdb.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.Key())
		if err := item.Value(func(val []byte) error { return fn(key, val) }); err != nil {
			return err
		}
	}
	return nil
}

// Healthcheck verifies the database can serve a read transaction.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(func(txn *badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// runGC reclaims value log space until Close.
func (s *Store) runGC(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// RunValueLogGC rewrites at most one file per call
			for s.db.RunValueLogGC(0.5) == nil {
			}
			if s.metrics != nil {
				lsm, vlog := s.db.Size()
				s.metrics.SetSize(lsm, vlog)
			}
		}
	}
}

// Close stops the collector and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		if closeErr := s.db.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close journal: %w", closeErr)
		}
	})
	return err
}
