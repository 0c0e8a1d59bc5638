// Package convert populates a record store from raw source records: a
// one-time, offline ETL step that fetches the dataset archive, extracts
// it to a scratch directory and converts records to containers on a
// bounded worker pool.
//
// Workers share nothing mutable: each operates on a disjoint patient id
// and writes a disjoint container file, and container writes are atomic,
// so the pool needs no locking. A failed record never aborts the batch;
// failures are collected per id and reported after the pool drains, which
// together with skip-if-exists makes interrupted jobs safely resumable.
package convert

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/internal/logging"
	"github.com/hupe1980/ecgset/signal"
	"github.com/hupe1980/ecgset/store"
)

// RawSource supplies raw record data keyed by patient id: the multi-lead
// signal matrix plus one ordered marker stream per lead. The wfdb package
// provides the implementation for PhysioNet records; tests substitute
// in-memory sources.
type RawSource interface {
	Read(patientID int) (sig *signal.Signal, samplingRate int, markers [][]annotation.Marker, err error)
}

// ConvertError is one patient's conversion failure.
//
// The original underlying error can be accessed via errors.Unwrap.
type ConvertError struct {
	PatientID int
	cause     error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("convert patient %d: %v", e.PatientID, e.cause)
}

func (e *ConvertError) Unwrap() error { return e.cause }

// Result reports a bulk conversion's outcome per id.
type Result struct {
	Converted []int
	Skipped   []int
	Failed    []*ConvertError
}

// Err joins all per-id failures into one error, or nil if every record
// converted or was skipped.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Options configures Records.
type Options struct {
	// NumWorkers bounds the conversion pool. Defaults to the available
	// parallelism.
	NumWorkers int
	// Force re-converts records whose containers already exist.
	Force bool
	// Compression selects the container codec. Defaults to zstd.
	Compression container.Compression
	// Logger receives per-record and progress events. Nil disables
	// logging.
	Logger *logging.Logger
}

// Records converts the given patient ids from src into the store on a
// fixed-size worker pool.
//
// Ids whose containers already exist are skipped unless Force is set.
// Per-id failures are collected into the result, not returned as the
// error; the error is non-nil only when the whole operation is aborted
// (context cancellation).
func Records(ctx context.Context, src RawSource, s *store.Store, ids []int, optFns ...func(*Options)) (*Result, error) {
	o := Options{
		NumWorkers:  runtime.NumCPU(),
		Compression: container.CompressionZSTD,
		Logger:      logging.Noop(),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = 1
	}

	result := &Result{}

	// Resolve skips up front so the pool only sees real work.
	var pending []int
	for _, id := range ids {
		if !o.Force && s.Exists(id) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		pending = append(pending, id)
	}

	// Each worker writes only its own slot; no shared mutable state.
	taskErrs := make([]error, len(pending))

	var completed atomic.Int64
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.NumWorkers)

	for i, id := range pending {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := convertOne(src, s, id, o.Compression)
			taskErrs[i] = err
			o.Logger.LogConvert(ctx, id, err)

			done := completed.Add(1)
			if progress.Allow() {
				o.Logger.InfoContext(ctx, "converting records",
					"completed", done,
					"total", len(pending),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, id := range pending {
		if taskErrs[i] != nil {
			result.Failed = append(result.Failed, &ConvertError{PatientID: id, cause: taskErrs[i]})
			continue
		}
		result.Converted = append(result.Converted, id)
	}

	o.Logger.LogConvertBatch(ctx, len(ids), len(result.Skipped), len(result.Failed))
	return result, nil
}

// convertOne runs the raw-format parse and container write for one id:
// read the raw record, reconstruct intervals and fiducials per lead, and
// persist the container atomically.
func convertOne(src RawSource, s *store.Store, id int, compression container.Compression) error {
	sig, samplingRate, markers, err := src.Read(id)
	if err != nil {
		return err
	}

	intervals, fiducials := annotation.ReconstructLeads(markers)

	rec := &container.Record{
		PatientID:    id,
		SamplingRate: samplingRate,
		Signal:       sig,
		Intervals:    intervals,
		Fiducials:    fiducials,
	}
	return s.Write(rec, compression)
}
