package ecgset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/signal"
	"github.com/hupe1980/ecgset/wfdb"
)

func TestDataset_Metadata(t *testing.T) {
	ds := New(t.TempDir())

	require.Equal(t, 500, ds.SamplingRate())
	require.Equal(t, 0.0, ds.Mean())
	require.Equal(t, 1.0, ds.Std())
	require.Equal(t, 1250, ds.FrameSize())
	require.Equal(t, TaskSegmentation, ds.Task())
}

func TestDataset_PatientSplits(t *testing.T) {
	ds := New(t.TempDir())

	all := ds.PatientIDs()
	require.Len(t, all, 200)
	require.Equal(t, 1, all[0])
	require.Equal(t, 200, all[199])

	train := ds.TrainPatientIDs()
	test := ds.TestPatientIDs()
	require.Len(t, train, 180)
	require.Len(t, test, 20)
	require.Equal(t, 1, train[0])
	require.Equal(t, 180, train[179])
	require.Equal(t, 181, test[0])
	require.Equal(t, 200, test[19])

	// Disjoint, and together they cover the full id range.
	seen := make(map[int]bool)
	for _, id := range train {
		seen[id] = true
	}
	for _, id := range test {
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, seen, 200)
}

func writeStoreRecord(t *testing.T, ds *Dataset, id, samples, leads int) {
	t.Helper()

	sig := signal.New(samples, leads)
	for i := range sig.Data {
		sig.Data[i] = float32(i % 7)
	}
	rec := &container.Record{
		PatientID:    id,
		SamplingRate: SamplingRate,
		Signal:       sig,
		Intervals: []annotation.Interval{
			{Lead: 0, Class: annotation.ClassQRS, Start: 20, Stop: 40},
		},
	}
	require.NoError(t, ds.Store().Write(rec, container.CompressionZSTD))
}

func TestDataset_TaskDataGenerator(t *testing.T) {
	ds := New(t.TempDir(),
		WithFrameSize(50),
		WithStartOffset(10),
		WithStopOffset(10),
		WithNormalize(false),
		WithRand(rand.New(rand.NewSource(1))),
	)
	writeStoreRecord(t, ds, 1, 100, 2)
	writeStoreRecord(t, ds, 2, 100, 2)

	windows, err := ds.TaskDataGenerator(ds.Patients([]int{1, 2}), Uniform(4))
	require.NoError(t, err)

	var count int
	for w, err := range windows {
		require.NoError(t, err)
		require.Len(t, w.Signal, 50)
		require.Len(t, w.Labels, 50)
		require.GreaterOrEqual(t, w.Start, 10)
		require.Less(t, w.Start, 40)
		require.Less(t, w.Lead, 2)
		count++
	}
	require.Equal(t, 8, count)
}

func TestDataset_TaskDataGenerator_UnsupportedTask(t *testing.T) {
	ds := New(t.TempDir(), WithTask("classification"))

	_, err := ds.TaskDataGenerator(ds.Patients([]int{1}), Uniform(1))
	require.Error(t, err)

	var ute *UnsupportedTaskError
	require.ErrorAs(t, err, &ute)
	require.Equal(t, Task("classification"), ute.Task)
}

// annWord encodes one MIT-format annotation word: code in the top six
// bits, sample interval in the bottom ten.
func annWord(code, interval int) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(code<<10|interval&0x3ff))
	return b
}

// buildFixtureArchive zips WFDB records for the given ids under the
// PhysioNet archive layout.
func buildFixtureArchive(t *testing.T, ids []int) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) {
		w, err := zw.Create("lobachevsky-university-electrocardiography-database-1.0.1/data/" + name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}

	const numSamples = 20
	for _, id := range ids {
		var hea bytes.Buffer
		fmt.Fprintf(&hea, "%d %d 500 %d\n", id, len(wfdb.LeadOrder), numSamples)
		for _, lead := range wfdb.LeadOrder {
			fmt.Fprintf(&hea, "%d.dat 16 1000/mV 16 0 0 0 0 %s\n", id, lead)
		}
		add(fmt.Sprintf("%d.hea", id), hea.Bytes())

		dat := make([]byte, numSamples*len(wfdb.LeadOrder)*2)
		for i := range numSamples * len(wfdb.LeadOrder) {
			binary.LittleEndian.PutUint16(dat[i*2:], uint16(int16(i)))
		}
		add(fmt.Sprintf("%d.dat", id), dat)

		var ann []byte
		ann = append(ann, annWord(39, 2)...) // '(' at 2
		ann = append(ann, annWord(1, 3)...)  // 'N' at 5
		ann = append(ann, annWord(40, 4)...) // ')' at 9
		ann = append(ann, annWord(0, 0)...)
		add(fmt.Sprintf("%d.ii", id), ann)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDataset_Download(t *testing.T) {
	archive := buildFixtureArchive(t, []int{1, 2})

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	ds := New(t.TempDir(),
		WithArchiveURL(srv.URL),
		WithNumWorkers(4),
	)

	result, err := ds.Download(context.Background())
	require.NoError(t, err)

	// The fixture archive only carries two of the 200 records; the rest
	// fail individually without aborting the batch.
	require.ElementsMatch(t, []int{1, 2}, result.Converted)
	require.Len(t, result.Failed, 198)
	require.Empty(t, result.Skipped)

	rec, err := ds.Store().Open(1)
	require.NoError(t, err)
	require.Equal(t, 500, rec.SamplingRate)
	require.Equal(t, 12, rec.Signal.Leads)
	require.Equal(t, []annotation.Interval{
		{Lead: 1, Class: annotation.ClassQRS, Start: 2, Stop: 9},
	}, rec.Intervals)

	// Re-run: the archive and converted records are both skipped.
	result, err = ds.Download(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), hits.Load())
	require.ElementsMatch(t, []int{1, 2}, result.Skipped)
	require.Empty(t, result.Converted)
}

func TestDataset_Download_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	ds := New(t.TempDir(), WithArchiveURL(srv.URL))

	_, err := ds.Download(context.Background())
	require.Error(t, err)

	var de *DownloadError
	require.ErrorAs(t, err, &de)
	require.Equal(t, http.StatusNotFound, de.StatusCode)
}
