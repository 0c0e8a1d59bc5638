package ecgset

import (
	"log/slog"
	"math/rand"

	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/generator"
)

type options struct {
	task         Task
	frameSize    int
	startOffset  int
	stopOffset   int
	normalize    bool
	filterEnable bool
	compression  container.Compression
	numWorkers   int
	force        bool
	archiveURL   string
	logger       *Logger
	rand         *rand.Rand
}

// Option configures Dataset behavior.
type Option func(*options)

// WithTask selects the generator task. Defaults to TaskSegmentation.
func WithTask(task Task) Option {
	return func(o *options) {
		o.task = task
	}
}

// WithFrameSize sets the training window length in samples.
func WithFrameSize(frameSize int) Option {
	return func(o *options) {
		o.frameSize = frameSize
	}
}

// WithStartOffset excludes the first startOffset samples of every record
// from the sampling range. The source annotations do not cover the record
// edges.
func WithStartOffset(startOffset int) Option {
	return func(o *options) {
		o.startOffset = startOffset
	}
}

// WithStopOffset excludes the last stopOffset samples of every record
// from the sampling range (in addition to the frame length itself).
func WithStopOffset(stopOffset int) Option {
	return func(o *options) {
		o.stopOffset = stopOffset
	}
}

// WithNormalize toggles zero-mean/unit-variance standardization of each
// emitted window. Enabled by default.
func WithNormalize(normalize bool) Option {
	return func(o *options) {
		o.normalize = normalize
	}
}

// WithBandPassFilter toggles band-pass filtering of each emitted window
// before standardization. Enabled by default; disable to train on raw
// standardized signal.
func WithBandPassFilter(enable bool) Option {
	return func(o *options) {
		o.filterEnable = enable
	}
}

// WithCompression selects the container codec used by Download.
// Defaults to zstd.
func WithCompression(compression container.Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithNumWorkers bounds the conversion worker pool used by Download.
// Defaults to the available parallelism.
func WithNumWorkers(numWorkers int) Option {
	return func(o *options) {
		o.numWorkers = numWorkers
	}
}

// WithForce makes Download re-fetch the archive and re-convert records
// whose containers already exist.
func WithForce(force bool) Option {
	return func(o *options) {
		o.force = force
	}
}

// WithArchiveURL overrides the source archive URL. Useful for mirrors
// and tests.
func WithArchiveURL(url string) Option {
	return func(o *options) {
		o.archiveURL = url
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := ecgset.NewJSONLogger(slog.LevelInfo)
//	ds := ecgset.New("./data/ludb", ecgset.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRand sets the random source for shuffling and window sampling.
// Nil uses the process-level source; set it explicitly for
// reproducibility.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		task:         TaskSegmentation,
		frameSize:    generator.DefaultFrameSize,
		startOffset:  generator.DefaultStartOffset,
		stopOffset:   generator.DefaultStopOffset,
		normalize:    true,
		filterEnable: true,
		compression:  container.CompressionZSTD,
		archiveURL:   DefaultArchiveURL,
		logger:       NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
