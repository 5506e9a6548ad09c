// Package segment implements the append-only segment log underneath the
// key-value store.
//
// A log is a directory of numbered files ("0.kv", "1.kv", ...). Each file is
// a flat run of records framed as
//
//	<length:uint64 big-endian><payload:length bytes>
//
// with no header, footer or checksum at this level. Only the highest
// numbered segment accepts appends; once it holds MaxRecords records it is
// synced and a new segment is started. Payloads are opaque here: the log
// hands them back on replay together with their Position and never
// interprets their contents.
package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

const (
	// PrefixSize is the width of the length prefix in front of every payload.
	PrefixSize = 8

	// DefaultMaxRecords is the number of records after which a segment is rolled.
	DefaultMaxRecords = 1000

	Ext = ".kv"
)

var (
	// ErrCorrupt is returned when a segment cannot be replayed.
	ErrCorrupt = errors.New("corrupt segment")

	// ErrUnknownSegment is returned when a Position names a segment this log does not hold.
	ErrUnknownSegment = errors.New("unknown segment")

	ErrClosed = errors.New("segment log is closed")

	// ErrNoActiveSegment is returned after a failed Replace left no segment open.
	ErrNoActiveSegment = errors.New("segment log has no active segment")
)

// Position locates one record inside a Log. Offset is the start of the
// length prefix and Length is the payload size.
type Position struct {
	Segment int
	Offset  int64
	Length  int
}

// Visitor receives every record found while a Log is opened, in log order.
type Visitor func(payload []byte, pos Position) error

type Options struct {
	MaxRecords int
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRecords <= 0 {
		o.MaxRecords = DefaultMaxRecords
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type segmentFile struct {
	id   int
	file *os.File
}

// Log is an ordered set of segment files. It owns every file handle it
// opens; none of them leave the Log.
type Log struct {
	dir      string
	segments []segmentFile // ascending by id, last one is active
	byID     map[int]*os.File

	activeOffset int64
	recordCount  int
	closed       bool

	opts Options
	log  *zap.Logger
}

// Open opens (creating if needed) the segment log stored in dir and replays
// every record through visit. visit may be nil.
func Open(dir string, visit Visitor, opts Options) (*Log, error) {
	opts = opts.withDefaults()

	l := &Log{
		dir:  dir,
		byID: make(map[int]*os.File),
		opts: opts,
		log:  opts.Logger.With(zap.String("dir", dir)),
	}

	if err := ensureDirectory(dir, l.log); err != nil {
		return nil, fmt.Errorf("segment: open directory: %w", err)
	}

	if err := l.openSegmentFiles(); err != nil {
		l.closeFiles()
		return nil, err
	}

	if err := l.replay(visit); err != nil {
		l.closeFiles()
		return nil, err
	}

	return l, nil
}

func (l *Log) openSegmentFiles() error {
	ids, err := scanSegments(l.dir, l.log)
	if err != nil {
		return fmt.Errorf("segment: scan: %w", err)
	}

	if len(ids) == 0 {
		ids = []int{0}
	}

	for _, id := range ids {
		f, err := os.OpenFile(segmentPath(l.dir, id), os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return fmt.Errorf("segment: open %d: %w", id, err)
		}
		l.segments = append(l.segments, segmentFile{id: id, file: f})
		l.byID[id] = f
	}

	return nil
}

// replay walks every segment in id order. Only records of the last segment
// count toward recordCount: older segments were rolled when they filled up.
func (l *Log) replay(visit Visitor) error {
	total := 0
	l.recordCount = 0

	for i, seg := range l.segments {
		isLast := i == len(l.segments)-1

		data, err := io.ReadAll(seg.file)
		if err != nil {
			return fmt.Errorf("segment: read %d: %w", seg.id, err)
		}

		var cursor int64
		size := int64(len(data))
		for cursor < size {
			if size-cursor < PrefixSize {
				return fmt.Errorf("%w: segment %d offset %d: truncated length prefix", ErrCorrupt, seg.id, cursor)
			}

			length := binary.BigEndian.Uint64(data[cursor : cursor+PrefixSize])
			if length > uint64(size-cursor-PrefixSize) {
				return fmt.Errorf("%w: segment %d offset %d: payload of %d bytes exceeds file", ErrCorrupt, seg.id, cursor, length)
			}

			pos := Position{Segment: seg.id, Offset: cursor, Length: int(length)}
			start := cursor + PrefixSize
			end := start + int64(length)

			if visit != nil {
				if err := visit(data[start:end], pos); err != nil {
					return fmt.Errorf("segment %d offset %d: %w", seg.id, cursor, err)
				}
			}

			cursor = end
			total++
			if isLast {
				l.recordCount++
			}
		}

		if isLast {
			l.activeOffset = size
		}
	}

	l.log.Debug("replayed segment log",
		zap.Int("segments", len(l.segments)),
		zap.Int("records", total),
		zap.Int("active_records", l.recordCount),
	)

	return nil
}

// Append writes payload to the end of the active segment and returns where
// it landed. When the active segment reaches MaxRecords a fresh segment
// takes its place. A record that reached the file is never reported as
// failed: if starting the next segment fails, Append retries it before the
// next write and returns that error instead, with nothing written.
func (l *Log) Append(payload []byte) (Position, error) {
	if l.closed {
		return Position{}, ErrClosed
	}
	if len(l.segments) == 0 {
		return Position{}, ErrNoActiveSegment
	}

	if l.recordCount >= l.opts.MaxRecords {
		if err := l.rotate(); err != nil {
			return Position{}, err
		}
	}

	active := l.segments[len(l.segments)-1]

	buf := make([]byte, PrefixSize+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(len(payload)))
	copy(buf[PrefixSize:], payload)

	n, err := active.file.WriteAt(buf, l.activeOffset)
	if err != nil {
		// Drop whatever part of the record made it out so replay never sees it.
		if n > 0 {
			if terr := active.file.Truncate(l.activeOffset); terr != nil {
				err = errors.Join(err, terr)
			}
		}
		return Position{}, fmt.Errorf("segment: append to %d: %w", active.id, err)
	}

	pos := Position{Segment: active.id, Offset: l.activeOffset, Length: len(payload)}
	l.activeOffset += int64(n)
	l.recordCount++

	if l.recordCount >= l.opts.MaxRecords {
		if err := l.rotate(); err != nil {
			l.log.Warn("deferring segment rotation", zap.Int("active", active.id), zap.Error(err))
		}
	}

	return pos, nil
}

func (l *Log) rotate() error {
	active := l.segments[len(l.segments)-1]

	if err := active.file.Sync(); err != nil {
		return fmt.Errorf("segment: sync %d on rotation: %w", active.id, err)
	}

	nextID := active.id + 1
	f, err := os.OpenFile(segmentPath(l.dir, nextID), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("segment: create %d: %w", nextID, err)
	}

	l.segments = append(l.segments, segmentFile{id: nextID, file: f})
	l.byID[nextID] = f
	l.activeOffset = 0
	l.recordCount = 0

	l.log.Debug("rotated active segment", zap.Int("closed", active.id), zap.Int("active", nextID))

	return nil
}

// Read returns the payload stored at pos.
func (l *Log) Read(pos Position) ([]byte, error) {
	if l.closed {
		return nil, ErrClosed
	}

	f, ok := l.byID[pos.Segment]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSegment, pos.Segment)
	}

	buf := make([]byte, pos.Length)
	if _, err := f.ReadAt(buf, pos.Offset+PrefixSize); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: segment %d offset %d: short read", ErrCorrupt, pos.Segment, pos.Offset)
		}
		return nil, fmt.Errorf("segment: read %d: %w", pos.Segment, err)
	}

	return buf, nil
}

// RecordCount is the number of records in the active segment.
func (l *Log) RecordCount() int {
	return l.recordCount
}

func (l *Log) SegmentCount() int {
	return len(l.segments)
}

func (l *Log) Dir() string {
	return l.dir
}

// Sync flushes every open segment to stable storage.
func (l *Log) Sync() error {
	if l.closed {
		return ErrClosed
	}
	for _, seg := range l.segments {
		if err := seg.file.Sync(); err != nil {
			return fmt.Errorf("segment: sync %d: %w", seg.id, err)
		}
	}
	return nil
}

// Close syncs and closes every segment. Calling Close more than once is a no-op.
func (l *Log) Close() error {
	if l.closed {
		return nil
	}

	syncErr := l.Sync()
	closeErr := l.closeFiles()
	l.closed = true

	return errors.Join(syncErr, closeErr)
}

func (l *Log) closeFiles() error {
	var errs []error
	for _, seg := range l.segments {
		if err := seg.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("segment: close %d: %w", seg.id, err))
		}
	}
	l.segments = nil
	l.byID = make(map[int]*os.File)
	return errors.Join(errs...)
}
