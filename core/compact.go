package core

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

func (s *Store) maybeCompact() error {
	if s.log.RecordCount() < s.threshold {
		return nil
	}
	if err := s.Compact(); err != nil {
		return fmt.Errorf("%w: %w", ErrCompaction, err)
	}
	return nil
}

// Compact rewrites every live record into a fresh log and swaps it in for
// the current one. Its cost depends on the number of live keys only, not on
// how many overwritten or removed records have piled up.
//
// If copying fails the current log and index stay in use. If the swap
// fails, the segment log restores its previous files before returning.
func (s *Store) Compact() error {
	if s.closed {
		return ErrClosed
	}

	before := s.log.SegmentCount()
	beforeRecords := s.log.RecordCount()

	tmp, err := os.MkdirTemp("", compactDirPattern)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			s.logger.Warn("failed to remove compaction directory", zap.String("tmp", tmp), zap.Error(err))
		}
	}()

	fresh, err := segment.Open(tmp, nil, segment.Options{
		MaxRecords: s.opts.maxSegmentRecords,
		Logger:     s.opts.logger,
	})
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	defer fresh.Close()

	keyDir := NewKeyDir()
	var copyErr error

	s.keyDir.Ascend(func(key string, pos segment.Position) bool {
		payload, err := s.log.Read(pos)
		if err != nil {
			copyErr = fmt.Errorf("read %q: %w", key, err)
			return false
		}

		newPos, err := fresh.Append(payload)
		if err != nil {
			copyErr = fmt.Errorf("write %q: %w", key, err)
			return false
		}

		keyDir.Set(key, newPos)
		return true
	})
	if copyErr != nil {
		return fmt.Errorf("compact: %w", copyErr)
	}

	if err := s.log.Replace(fresh); err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	s.keyDir = keyDir
	s.threshold = compactionThreshold(s.log.RecordCount(), s.opts.compactionBase)
	s.compactions++

	s.logger.Info("compaction finished",
		zap.Int("live_keys", keyDir.Len()),
		zap.Int("segments_before", before),
		zap.Int("segments_after", s.log.SegmentCount()),
		zap.Int("active_records_before", beforeRecords),
		zap.Int("active_records_after", s.log.RecordCount()),
		zap.Int("compaction_threshold", s.threshold),
	)

	return nil
}
