package segment

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Replace swaps the segment files of l for those of other.
//
// The live files are first copied to a temporary backup directory, then
// deleted and replaced by copies of other's files. If copying other's files
// or reopening the result fails, whatever reached the live directory is
// deleted and the backup is restored before the error is returned; a
// failure of that rollback is joined to the original error. On success l
// adopts other's record count. other is left untouched and still owned by
// the caller.
func (l *Log) Replace(other *Log) error {
	if l.closed || other.closed {
		return ErrClosed
	}

	if err := l.Sync(); err != nil {
		return fmt.Errorf("segment: replace: %w", err)
	}
	if err := other.Sync(); err != nil {
		return fmt.Errorf("segment: replace: %w", err)
	}

	backup, err := os.MkdirTemp("", "kvs-backup-*")
	if err != nil {
		return fmt.Errorf("segment: replace: create backup directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(backup); err != nil {
			l.log.Warn("failed to remove replace backup", zap.String("backup", backup), zap.Error(err))
		}
	}()

	if err := copySegments(l.dir, backup, l.log); err != nil {
		return fmt.Errorf("segment: replace: backup: %w", err)
	}

	if err := l.closeFiles(); err != nil {
		return l.rollback(backup, fmt.Errorf("segment: replace: %w", err))
	}

	if err := removeSegments(l.dir, l.log); err != nil {
		return l.rollback(backup, fmt.Errorf("segment: replace: %w", err))
	}

	if err := copySegments(other.dir, l.dir, l.log); err != nil {
		return l.rollback(backup, fmt.Errorf("segment: replace: %w", err))
	}

	if err := l.reopen(); err != nil {
		return l.rollback(backup, fmt.Errorf("segment: replace: %w", err))
	}

	l.recordCount = other.recordCount

	l.log.Info("replaced segment log",
		zap.String("source", other.dir),
		zap.Int("segments", len(l.segments)),
		zap.Int("active_records", l.recordCount),
	)

	return nil
}

// rollback restores the live directory from backup and reopens it. cause is
// always part of the returned error.
func (l *Log) rollback(backup string, cause error) error {
	l.log.Warn("rolling back segment replace", zap.Error(cause))

	err := errors.Join(
		l.closeFiles(),
		removeSegments(l.dir, l.log),
	)
	if err == nil {
		err = copySegments(backup, l.dir, l.log)
	}
	if err == nil {
		err = l.reopen()
	}

	if err != nil {
		l.log.Error("segment replace rollback failed", zap.Error(err))
		return errors.Join(cause, fmt.Errorf("segment: rollback: %w", err))
	}

	return cause
}

// reopen opens the segment files currently in the directory without
// replaying them. The record count is left as is.
func (l *Log) reopen() error {
	if err := l.openSegmentFiles(); err != nil {
		l.closeFiles()
		return err
	}

	active := l.segments[len(l.segments)-1]
	info, err := active.file.Stat()
	if err != nil {
		l.closeFiles()
		return fmt.Errorf("segment: stat %d: %w", active.id, err)
	}
	l.activeOffset = info.Size()

	return nil
}
