package ecgset

import (
	"context"
	"iter"
	"path/filepath"

	"github.com/hupe1980/ecgset/convert"
	"github.com/hupe1980/ecgset/generator"
	"github.com/hupe1980/ecgset/store"
	"github.com/hupe1980/ecgset/wfdb"
)

// Dataset characteristics of the Lobachevsky University Electrocardiography
// Database (LUDB): 200 patients, 10-second 12-lead recordings at 500 Hz,
// annotated with P/QRS/T boundaries and peaks per lead.
const (
	// SamplingRate is the recording rate in Hz.
	SamplingRate = 500
	// NumLeads is the number of leads per record.
	NumLeads = 12
	// NumPatients is the number of records in the dataset (patient ids
	// 1 through NumPatients).
	NumPatients = 200

	numTrainPatients = 180
)

// DefaultArchiveURL is the PhysioNet download location of the dataset
// archive.
const DefaultArchiveURL = "https://physionet.org/static/published-projects/ludb/lobachevsky-university-electrocardiography-database-1.0.1.zip"

// archiveDataDir is the record directory inside the extracted archive.
const archiveDataDir = "lobachevsky-university-electrocardiography-database-1.0.1/data"

// Task selects which generator TaskDataGenerator dispatches to.
type Task string

const (
	// TaskSegmentation emits fixed-size windows with per-sample
	// P/QRS/T/other labels.
	TaskSegmentation Task = "segmentation"
)

// Patient is one step of the patient stream.
type Patient = generator.Patient

// Window is one training example emitted by TaskDataGenerator.
type Window = generator.Window

// Uniform draws n windows from every visited patient.
func Uniform(n int) generator.SampleCount { return generator.Uniform(n) }

// PerVisit draws counts[i] windows from the i-th visited patient,
// cycling when the stream is longer than the list.
func PerVisit(counts []int) generator.SampleCount { return generator.PerVisit(counts) }

// Dataset serves LUDB records from a local container store.
type Dataset struct {
	root  string
	store *store.Store
	opts  options
}

// New creates a Dataset rooted at the given directory. The directory
// holds one container file per patient; populate it with Download or by
// converting a raw source directly via the convert package.
func New(root string, optFns ...Option) *Dataset {
	return &Dataset{
		root:  root,
		store: store.New(root),
		opts:  applyOptions(optFns),
	}
}

// Root returns the dataset root directory.
func (d *Dataset) Root() string { return d.root }

// Store returns the underlying record store.
func (d *Dataset) Store() *store.Store { return d.store }

// Task returns the configured generator task.
func (d *Dataset) Task() Task { return d.opts.task }

// SamplingRate returns the recording rate in Hz.
func (d *Dataset) SamplingRate() int { return SamplingRate }

// FrameSize returns the configured training window length in samples.
func (d *Dataset) FrameSize() int { return d.opts.frameSize }

// Mean returns the target signal mean after normalization.
func (d *Dataset) Mean() float64 { return 0 }

// Std returns the target signal standard deviation after normalization.
func (d *Dataset) Std() float64 { return 1 }

// PatientIDs returns all patient ids in ascending order.
func (d *Dataset) PatientIDs() []int {
	return patientRange(1, NumPatients)
}

// TrainPatientIDs returns the training split: the first 180 patients, in
// ascending order.
func (d *Dataset) TrainPatientIDs() []int {
	return patientRange(1, numTrainPatients)
}

// TestPatientIDs returns the test split: the last 20 patients, in
// ascending order. Disjoint from the training split.
func (d *Dataset) TestPatientIDs() []int {
	return patientRange(numTrainPatients+1, NumPatients)
}

func patientRange(first, last int) []int {
	ids := make([]int, 0, last-first+1)
	for id := first; id <= last; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Patients streams (id, record) pairs from the store. The dataset's
// random source is used for shuffling unless the options override it.
func (d *Dataset) Patients(ids []int, optFns ...func(*generator.PatientOptions)) iter.Seq2[Patient, error] {
	return generator.Patients(d.store, ids, func(o *generator.PatientOptions) {
		o.Rand = d.opts.rand
		for _, fn := range optFns {
			fn(o)
		}
	})
}

// TaskDataGenerator turns a patient stream into the configured task's
// lazy training stream, drawing samplesPerPatient windows from each
// visited patient. Tasks without an implemented generator fail with
// UnsupportedTaskError.
func (d *Dataset) TaskDataGenerator(patients iter.Seq2[Patient, error], samplesPerPatient generator.SampleCount) (iter.Seq2[Window, error], error) {
	switch d.opts.task {
	case TaskSegmentation:
		return generator.Segmentation(patients, samplesPerPatient, func(o *generator.SegmentationOptions) {
			o.FrameSize = d.opts.frameSize
			o.StartOffset = d.opts.startOffset
			o.StopOffset = d.opts.stopOffset
			o.Normalize = d.opts.normalize
			o.FilterEnable = d.opts.filterEnable
			o.Rand = d.opts.rand
		}), nil
	default:
		return nil, &UnsupportedTaskError{Task: d.opts.task}
	}
}

// Download fetches the dataset archive, extracts it to a scratch
// directory and converts every patient record into the store on a worker
// pool.
//
// The archive is kept next to the store and the fetch is skipped while it
// exists; already-converted records are skipped too, so an interrupted
// Download can simply be re-run. Set WithForce to redo both. Per-record
// failures are collected in the result, not returned as the error.
func (d *Dataset) Download(ctx context.Context) (*convert.Result, error) {
	archive := filepath.Join(d.root, "ludb.zip")

	err := convert.Fetch(ctx, d.opts.archiveURL, archive, func(o *convert.FetchOptions) {
		o.Force = d.opts.force
		o.Logger = d.opts.logger
	})
	if err != nil {
		return nil, err
	}

	var result *convert.Result
	err = convert.WithScratchDir("ecgset-extract-*", func(dir string) error {
		if err := convert.ExtractArchive(archive, dir); err != nil {
			return err
		}

		src := wfdb.NewSource(filepath.Join(dir, filepath.FromSlash(archiveDataDir)))

		r, err := convert.Records(ctx, src, d.store, d.PatientIDs(), func(o *convert.Options) {
			if d.opts.numWorkers > 0 {
				o.NumWorkers = d.opts.numWorkers
			}
			o.Force = d.opts.force
			o.Compression = d.opts.compression
			o.Logger = d.opts.logger
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
