package core

import (
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

type options struct {
	logger            *zap.Logger
	maxSegmentRecords int
	compactionBase    int
}

func defaultOptions() *options {
	return &options{
		logger:            zap.NewNop(),
		maxSegmentRecords: segment.DefaultMaxRecords,
		compactionBase:    DefaultCompactionBase,
	}
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxSegmentRecords sets how many records a segment holds before a new
// one is started.
func WithMaxSegmentRecords(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSegmentRecords = n
		}
	}
}

// WithCompactionBase sets the additive term of the compaction threshold.
func WithCompactionBase(base int) Option {
	return func(o *options) {
		if base > 0 {
			o.compactionBase = base
		}
	}
}

// WithConfig applies the storage settings of a loaded config file.
func WithConfig(cfg *internal.Config) Option {
	return func(o *options) {
		WithMaxSegmentRecords(cfg.MaxSegmentRecords)(o)
		WithCompactionBase(cfg.CompactionBase)(o)
	}
}
