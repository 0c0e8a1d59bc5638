// Package ecgset provides a dataset layer for multi-lead ECG recordings
// with clinical segment annotations.
//
// It converts raw PhysioNet WFDB records into compact per-patient binary
// containers, stores them under a local root directory, and serves
// randomized, label-aligned training windows to a downstream learning
// process.
//
// # Quick Start
//
// Populate the store once, then stream training windows:
//
//	ctx := context.Background()
//	ds := ecgset.New("./data/ludb")
//
//	if _, err := ds.Download(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	patients := ds.Patients(ds.TrainPatientIDs(), func(o *generator.PatientOptions) {
//	    o.Repeat = true
//	    o.Shuffle = true
//	})
//	windows, err := ds.TaskDataGenerator(patients, ecgset.Uniform(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for w, err := range windows {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    train(w.Signal, w.Labels)
//	}
//
// # Layout
//
// Each patient record lives in its own container file (p00001.rec, ...)
// under the dataset root: a compressed binary holding the float32 signal
// matrix plus the reconstructed annotation intervals and fiducial points.
// Container writes are atomic and conversion skips existing files, so an
// interrupted Download can simply be re-run.
//
// # Subpackages
//
//   - annotation: marker-stream reconstruction into intervals/fiducials
//   - signal: signal matrix, band-pass filter, standardization, labels
//   - container: per-patient binary container codec (zstd/LZ4)
//   - store: patient id keyed container files under a root dir
//   - generator: patient iterator and window sampler
//   - convert: archive fetch, extraction and parallel bulk conversion
//   - wfdb: WFDB header/signal/annotation reader (the raw source)
package ecgset
