package supplier

import "time"

// Tunable constants, deliberately not exposed as options.
const (
	// ThrottleBackoff is the minimum rearm delay after a Throttled error.
	ThrottleBackoff = 3 * time.Second
	// ExceptionRetryDelay is the rearm delay after a recoverable transport
	// error or an interrupt during offer, and the bound used for graceful
	// scheduler shutdown.
	ExceptionRetryDelay = 10 * time.Second
)

// Config holds every user-tunable knob for a Supplier.
type Config struct {
	RecordsPerFetch   int
	FetchDelay        time.Duration
	FetchThreads      int
	DecoderEnabled    bool
	DecoderName       string
	BufferSize        int
	OfferTimeout      time.Duration
	BufferFullWait    time.Duration
	ProbeTimeout      time.Duration
	MaxRecordsPerPoll int
}

// defaultConfig returns the stock tuning: 250ms between ticks, up to 10000
// records per fetch.
func defaultConfig() Config {
	return Config{
		RecordsPerFetch:   10000,
		FetchDelay:        250 * time.Millisecond,
		FetchThreads:      4,
		DecoderEnabled:    false,
		BufferSize:        10000,
		OfferTimeout:      5 * time.Second,
		BufferFullWait:    5 * time.Second,
		ProbeTimeout:      10 * time.Second,
		MaxRecordsPerPoll: 1000,
	}
}
