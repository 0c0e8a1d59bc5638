package generator

import (
	"fmt"
	"iter"
	"math/rand"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/signal"
)

// Default window geometry for LUDB-style records. The edge offsets
// exclude the regions where the source annotations are unreliable: leads
// are not labeled over roughly the first and last couple of seconds.
const (
	DefaultFrameSize   = 1250
	DefaultStartOffset = 600
	DefaultStopOffset  = 950
)

// FrameConfigError is returned when the window geometry leaves no valid
// frame start positions for a record.
type FrameConfigError struct {
	FrameSize   int
	StartOffset int
	StopOffset  int
	NumSamples  int
}

func (e *FrameConfigError) Error() string {
	return fmt.Sprintf("invalid frame configuration: frame_size=%d start_offset=%d stop_offset=%d leaves no valid start in record of %d samples",
		e.FrameSize, e.StartOffset, e.StopOffset, e.NumSamples)
}

// Window is one training example: a fixed-size single-lead signal slice
// and its per-sample labels over the same range. Both have FrameSize
// values, logically shaped (FrameSize, 1).
type Window struct {
	Signal    []float32
	Labels    []annotation.Class
	PatientID int
	Lead      int
	Start     int
}

// SampleCount determines how many windows are drawn from each visited
// patient. Use Uniform for a constant count or PerVisit for a positional
// list aligned with the patient stream's visit order (cycled when the
// stream outlives the list).
type SampleCount struct {
	uniform  int
	perVisit []int
}

// Uniform draws n windows from every patient.
func Uniform(n int) SampleCount {
	return SampleCount{uniform: n}
}

// PerVisit draws counts[i] windows from the i-th visited patient,
// cycling when the stream is longer than the list.
func PerVisit(counts []int) SampleCount {
	return SampleCount{perVisit: counts}
}

func (c SampleCount) at(visit int) int {
	if len(c.perVisit) > 0 {
		return c.perVisit[visit%len(c.perVisit)]
	}
	return c.uniform
}

// SegmentationOptions configures the window sampler.
type SegmentationOptions struct {
	// FrameSize is the window length in samples.
	FrameSize int
	// StartOffset and StopOffset exclude the record's unlabeled edges
	// from the sampling range. Different source datasets label their
	// edges differently, so both are tunable.
	StartOffset int
	StopOffset  int
	// Normalize standardizes each emitted window to zero mean and unit
	// variance.
	Normalize bool
	// FilterEnable additionally band-pass filters each window before
	// standardization. Only meaningful with Normalize set.
	FilterEnable bool
	// Rand is the random source for lead and frame-start selection. Nil
	// uses the process-level source.
	Rand *rand.Rand
}

// Segmentation consumes a patient stream and emits randomized fixed-size
// (signal window, label window) pairs, count windows per visited patient.
//
// Per window a lead is chosen uniformly at random, then a frame start
// uniformly in [StartOffset, NumSamples-FrameSize-StopOffset). A record
// too short for that range fails fast with FrameConfigError and ends the
// stream. Errors from the patient stream pass through and the stream
// continues with the next patient.
func Segmentation(patients iter.Seq2[Patient, error], count SampleCount, optFns ...func(*SegmentationOptions)) iter.Seq2[Window, error] {
	o := SegmentationOptions{
		FrameSize:   DefaultFrameSize,
		StartOffset: DefaultStartOffset,
		StopOffset:  DefaultStopOffset,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	return func(yield func(Window, error) bool) {
		visit := 0
		for pt, err := range patients {
			if err != nil {
				if !yield(Window{PatientID: pt.ID}, err) {
					return
				}
				visit++
				continue
			}

			rec := pt.Record
			sig := rec.Signal

			limit := sig.Samples - o.FrameSize - o.StopOffset
			if limit <= o.StartOffset {
				yield(Window{PatientID: pt.ID}, &FrameConfigError{
					FrameSize:   o.FrameSize,
					StartOffset: o.StartOffset,
					StopOffset:  o.StopOffset,
					NumSamples:  sig.Samples,
				})
				return
			}

			labels := rec.PaintLabels()

			n := count.at(visit)
			for i := 0; i < n; i++ {
				lead := intn(o.Rand, sig.Leads)
				start := o.StartOffset + intn(o.Rand, limit-o.StartOffset)

				x := sig.Frame(start, o.FrameSize, lead)
				if o.Normalize {
					signal.NormalizeFrame(x, rec.SamplingRate, o.FilterEnable)
				}
				y := labels.Frame(start, o.FrameSize, lead)

				w := Window{
					Signal:    x,
					Labels:    y,
					PatientID: pt.ID,
					Lead:      lead,
					Start:     start,
				}
				if !yield(w, nil) {
					return
				}
			}
			visit++
		}
	}
}
