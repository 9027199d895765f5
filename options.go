package anchor

import (
	"log/slog"
	"time"

	"github.com/chainproof/anchor/internal/replica"
)

// Timeout defaults for the external submitter. The soft timeout only
// produces a log warning; the hard timeout kills the process.
const (
	DefaultSoftTimeout = 60 * time.Second
	DefaultHardTimeout = 120 * time.Second
)

const (
	DefaultSubmitterBin = "kaspa-broadcaster"
	DefaultCacheSize    = 256
)

// Authenticator provides registry credentials for replication.
// Re-exported from internal/replica for convenience.
type Authenticator = replica.Authenticator

// Options configures a Service.
type Options struct {
	SubmitterBin string
	Policy       Policy
	SoftTimeout  time.Duration
	HardTimeout  time.Duration

	CacheSize          int
	CompressionLevel   int
	CompressionEnabled bool

	ReplicaRef  string
	Auth        Authenticator
	Concurrency int

	Logger *slog.Logger
}

// Option is a functional option for configuring Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		SubmitterBin:     DefaultSubmitterBin,
		SoftTimeout:      DefaultSoftTimeout,
		HardTimeout:      DefaultHardTimeout,
		CacheSize:        DefaultCacheSize,
		CompressionLevel: 2,
	}
}

// WithSubmitter sets the external submitter binary path.
func WithSubmitter(path string) Option {
	return func(o *Options) { o.SubmitterBin = path }
}

// WithPolicy sets the inline threshold and hard ceiling.
func WithPolicy(p Policy) Option {
	return func(o *Options) { o.Policy = p }
}

// WithTimeouts sets the soft-warning and hard-kill windows for
// submitter invocations.
func WithTimeouts(soft, hard time.Duration) Option {
	return func(o *Options) {
		if soft > 0 {
			o.SoftTimeout = soft
		}
		if hard > 0 {
			o.HardTimeout = hard
		}
	}
}

// WithCacheSize sets how many decoded payloads the store keeps in
// memory. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(o *Options) { o.CacheSize = n }
}

// WithCompression enables zstd at-rest compression of stored objects.
func WithCompression(level int) Option {
	return func(o *Options) {
		o.CompressionEnabled = true
		if level > 0 {
			o.CompressionLevel = level
		}
	}
}

// WithReplica sets the OCI ref the store replicates to.
func WithReplica(imageRef string) Option {
	return func(o *Options) { o.ReplicaRef = imageRef }
}

// WithAuth sets custom registry authentication for replication.
func WithAuth(auth Authenticator) Option {
	return func(o *Options) { o.Auth = auth }
}

// WithConcurrency sets the parallelism for replica push/pull.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithLogger sets the observability sink. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
