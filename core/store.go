package core

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

// Store is a persistent string key-value store over a segment log.
//
// A Store is not safe for concurrent use and must be the only one open on
// its directory; Open enforces the latter with a lock file.
type Store struct {
	lockFile  *os.File
	log       *segment.Log
	keyDir    *KeyDir
	threshold int

	compactions int
	closed      bool

	dir    string
	opts   *options
	logger *zap.Logger
}

// Stats is a point-in-time view of the store's on-disk shape.
type Stats struct {
	Segments      int
	ActiveRecords int
	LiveKeys      int
	Threshold     int
	Compactions   int
}

// Open opens the store kept in dir, creating the directory if needed, and
// rebuilds the index by replaying every segment.
func Open(dir string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger.With(zap.String("dir", dir))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	lf, err := lock.LockDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	keyDir := NewKeyDir()
	l, err := segment.Open(dir, func(payload []byte, pos segment.Position) error {
		return applyRecord(keyDir, payload, pos)
	}, segment.Options{MaxRecords: o.maxSegmentRecords, Logger: o.logger})
	if err != nil {
		lock.UnlockDirectory(lf)
		if errors.Is(err, segment.ErrCorrupt) && !errors.Is(err, ErrCorrupt) {
			err = fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	s := &Store{
		lockFile:  lf,
		log:       l,
		keyDir:    keyDir,
		threshold: compactionThreshold(l.RecordCount(), o.compactionBase),
		dir:       dir,
		opts:      o,
		logger:    logger,
	}

	logger.Info("store opened",
		zap.Int("keys", keyDir.Len()),
		zap.Int("segments", l.SegmentCount()),
		zap.Int("active_records", l.RecordCount()),
		zap.Int("compaction_threshold", s.threshold),
	)

	return s, nil
}

// applyRecord replays one payload into the index.
func applyRecord(keyDir *KeyDir, payload []byte, pos segment.Position) error {
	rec, err := record.Decode(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	switch rec.Kind {
	case record.KindSet:
		keyDir.Set(rec.Key, pos)
	case record.KindRemove:
		keyDir.Delete(rec.Key)
	}

	return nil
}

// Set stores value under key, replacing any previous value. An error
// matching ErrCompaction means the value was stored but the compaction it
// triggered failed.
func (s *Store) Set(key, value string) error {
	if s.closed {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}

	pos, err := s.append(record.Set(key, value))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.keyDir.Set(key, pos)

	return s.maybeCompact()
}

// Get returns the value stored under key. A missing key is not an error: ok
// is false.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	if s.closed {
		return "", false, ErrClosed
	}
	if key == "" {
		return "", false, ErrInvalidKey
	}

	pos, ok := s.keyDir.Get(key)
	if !ok {
		return "", false, nil
	}

	payload, err := s.log.Read(pos)
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}

	rec, err := record.Decode(payload)
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w: %w", key, ErrCorrupt, err)
	}
	if rec.Key != key {
		return "", false, fmt.Errorf("get %q: %w: index points at record for %q", key, ErrCorrupt, rec.Key)
	}

	// The index never points at a tombstone; if it does, there is no value.
	if rec.Kind != record.KindSet {
		s.logger.Warn("index entry points at a tombstone", zap.String("key", key))
		return "", false, nil
	}

	return rec.Value, true, nil
}

// Remove deletes key. Removing a key that has no value returns ErrKeyNotFound.
// As with Set, an ErrCompaction error leaves the removal applied.
func (s *Store) Remove(key string) error {
	if s.closed {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}

	if _, ok := s.keyDir.Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if _, err := s.append(record.Remove(key)); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	s.keyDir.Delete(key)

	return s.maybeCompact()
}

func (s *Store) append(rec record.Record) (segment.Position, error) {
	payload, err := record.Encode(rec)
	if err != nil {
		return segment.Position{}, err
	}
	return s.log.Append(payload)
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	return s.keyDir.Len()
}

// Keys returns every live key in ascending order.
func (s *Store) Keys() []string {
	return s.keyDir.Keys()
}

func (s *Store) Stats() Stats {
	return Stats{
		Segments:      s.log.SegmentCount(),
		ActiveRecords: s.log.RecordCount(),
		LiveKeys:      s.keyDir.Len(),
		Threshold:     s.threshold,
		Compactions:   s.compactions,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// Close flushes and closes every segment and releases the directory lock.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	logErr := s.log.Close()
	lockErr := lock.UnlockDirectory(s.lockFile)

	s.logger.Info("store closed")

	return errors.Join(logErr, lockErr)
}
