package supplier

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option is used to override defaults when creating a new Supplier.
type Option func(*Supplier)

// WithLogger overrides the default logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Supplier) {
		s.logger = logger
	}
}

// WithRecordsPerFetch overrides the max records requested per tick.
func WithRecordsPerFetch(n int) Option {
	return func(s *Supplier) {
		s.cfg.RecordsPerFetch = n
	}
}

// WithFetchDelay overrides the delay between successful ticks.
func WithFetchDelay(d time.Duration) Option {
	return func(s *Supplier) {
		s.cfg.FetchDelay = d
	}
}

// WithFetchThreads overrides the scheduler pool size.
func WithFetchThreads(n int) Option {
	return func(s *Supplier) {
		s.cfg.FetchThreads = n
	}
}

// WithDecoder enables decoding through the named registered Decoder.
// Construction fails with a ConfigurationError if name is not registered
// (see RegisterDecoder).
func WithDecoder(name string) Option {
	return func(s *Supplier) {
		s.cfg.DecoderEnabled = true
		s.cfg.DecoderName = name
	}
}

// WithBufferSize overrides the bounded buffer capacity.
func WithBufferSize(n int) Option {
	return func(s *Supplier) {
		s.cfg.BufferSize = n
	}
}

// WithOfferTimeout overrides the max wait when enqueueing one record.
func WithOfferTimeout(d time.Duration) Option {
	return func(s *Supplier) {
		s.cfg.OfferTimeout = d
	}
}

// WithBufferFullWait overrides the rearm delay after an offer timeout.
func WithBufferFullWait(d time.Duration) Option {
	return func(s *Supplier) {
		s.cfg.BufferFullWait = d
	}
}

// WithProbeTimeout overrides the max wall time for earliest/latest
// sequence number discovery.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Supplier) {
		s.cfg.ProbeTimeout = d
	}
}

// WithMaxRecordsPerPoll overrides the cap on one Poll call's result.
func WithMaxRecordsPerPoll(n int) Option {
	return func(s *Supplier) {
		s.cfg.MaxRecordsPerPoll = n
	}
}

func applyOptions(s *Supplier, opts ...Option) {
	for _, opt := range opts {
		opt(s)
	}
}
