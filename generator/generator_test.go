package generator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/signal"
	"github.com/hupe1980/ecgset/store"
)

func newTestStore(t *testing.T, ids []int, samples, leads int) *store.Store {
	t.Helper()

	s := store.New(t.TempDir())
	for _, id := range ids {
		rng := rand.New(rand.NewSource(int64(id)))
		sig := signal.New(samples, leads)
		for i := range sig.Data {
			sig.Data[i] = rng.Float32()*2 - 1
		}
		rec := &container.Record{
			PatientID:    id,
			SamplingRate: 500,
			Signal:       sig,
			Intervals: []annotation.Interval{
				{Lead: 0, Class: annotation.ClassPWave, Start: samples / 4, Stop: samples / 2},
				{Lead: 0, Class: annotation.ClassQRS, Start: samples / 2, Stop: 3 * samples / 4},
			},
		}
		require.NoError(t, s.Write(rec, container.CompressionLZ4))
	}
	return s
}

func TestPatients_SinglePass(t *testing.T) {
	ids := []int{1, 2, 3}
	s := newTestStore(t, ids, 100, 1)

	for _, shuffle := range []bool{false, true} {
		var seen []int
		for pt, err := range Patients(s, ids, func(o *PatientOptions) {
			o.Shuffle = shuffle
		}) {
			require.NoError(t, err)
			require.NotNil(t, pt.Record)
			seen = append(seen, pt.ID)
		}

		// Exactly one pass regardless of shuffling.
		require.Len(t, seen, 3)
		require.ElementsMatch(t, ids, seen)
	}
}

func TestPatients_OrderPreservedWithoutShuffle(t *testing.T) {
	ids := []int{3, 1, 2}
	s := newTestStore(t, ids, 100, 1)

	var seen []int
	for pt, err := range Patients(s, ids) {
		require.NoError(t, err)
		seen = append(seen, pt.ID)
	}
	require.Equal(t, []int{3, 1, 2}, seen)
}

func TestPatients_RepeatCycles(t *testing.T) {
	ids := []int{1, 2, 3}
	s := newTestStore(t, ids, 100, 1)

	var seen []int
	for pt, err := range Patients(s, ids, func(o *PatientOptions) {
		o.Repeat = true
		o.Shuffle = true
		o.Rand = rand.New(rand.NewSource(1))
	}) {
		require.NoError(t, err)
		seen = append(seen, pt.ID)
		if len(seen) == 9 {
			break
		}
	}

	require.Len(t, seen, 9)
	// Every full cycle contains each id exactly once.
	for cycle := 0; cycle < 3; cycle++ {
		require.ElementsMatch(t, ids, seen[cycle*3:(cycle+1)*3])
	}
}

func TestPatients_MissingRecordSurfacesError(t *testing.T) {
	s := newTestStore(t, []int{1, 3}, 100, 1)

	var (
		errs int
		ok   []int
	)
	for pt, err := range Patients(s, []int{1, 2, 3}) {
		if err != nil {
			errs++
			require.ErrorIs(t, err, store.ErrNotFound)
			require.Equal(t, 2, pt.ID)
			continue
		}
		ok = append(ok, pt.ID)
	}

	require.Equal(t, 1, errs)
	require.Equal(t, []int{1, 3}, ok)
}

func TestPatients_DoesNotMutateCallerIDs(t *testing.T) {
	ids := []int{1, 2, 3}
	s := newTestStore(t, ids, 100, 1)

	for range Patients(s, ids, func(o *PatientOptions) {
		o.Shuffle = true
		o.Rand = rand.New(rand.NewSource(7))
	}) {
	}

	require.Equal(t, []int{1, 2, 3}, ids)
}

func TestSegmentation_WindowsInRange(t *testing.T) {
	const (
		samples     = 100
		frameSize   = 50
		startOffset = 10
		stopOffset  = 10
	)
	ids := []int{1, 2}
	s := newTestStore(t, ids, samples, 3)

	patients := Patients(s, ids)
	windows := Segmentation(patients, Uniform(20), func(o *SegmentationOptions) {
		o.FrameSize = frameSize
		o.StartOffset = startOffset
		o.StopOffset = stopOffset
		o.Rand = rand.New(rand.NewSource(2))
	})

	count := 0
	for w, err := range windows {
		require.NoError(t, err)
		require.Len(t, w.Signal, frameSize)
		require.Len(t, w.Labels, frameSize)
		// Valid start range is [10, 40); the window lies within [10, 90).
		require.GreaterOrEqual(t, w.Start, startOffset)
		require.Less(t, w.Start, samples-frameSize-stopOffset)
		require.LessOrEqual(t, w.Start+frameSize, samples)
		count++
	}
	require.Equal(t, 40, count)
}

func TestSegmentation_LabelsMatchIndependentRepaint(t *testing.T) {
	ids := []int{5}
	s := newTestStore(t, ids, 400, 2)

	rec, err := s.Open(5)
	require.NoError(t, err)
	want := signal.PaintLabels(rec.Signal.Samples, rec.Signal.Leads, rec.Intervals)

	windows := Segmentation(Patients(s, ids), Uniform(25), func(o *SegmentationOptions) {
		o.FrameSize = 64
		o.StartOffset = 20
		o.StopOffset = 20
		o.Rand = rand.New(rand.NewSource(3))
	})

	for w, err := range windows {
		require.NoError(t, err)
		for i, c := range w.Labels {
			require.Equal(t, want.At(w.Start+i, w.Lead), c)
		}
	}
}

func TestSegmentation_SignalMatchesRecord(t *testing.T) {
	ids := []int{9}
	s := newTestStore(t, ids, 300, 2)

	rec, err := s.Open(9)
	require.NoError(t, err)

	windows := Segmentation(Patients(s, ids), Uniform(10), func(o *SegmentationOptions) {
		o.FrameSize = 32
		o.StartOffset = 5
		o.StopOffset = 5
		o.Rand = rand.New(rand.NewSource(4))
	})

	for w, err := range windows {
		require.NoError(t, err)
		require.Equal(t, rec.Signal.Frame(w.Start, 32, w.Lead), w.Signal)
	}
}

func TestSegmentation_InvalidFrameConfiguration(t *testing.T) {
	tests := []struct {
		name        string
		samples     int
		frameSize   int
		startOffset int
		stopOffset  int
	}{
		{name: "frame larger than record", samples: 100, frameSize: 200, startOffset: 0, stopOffset: 0},
		{name: "offsets consume record", samples: 100, frameSize: 50, startOffset: 40, stopOffset: 40},
		{name: "range exactly empty", samples: 100, frameSize: 80, startOffset: 10, stopOffset: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []int{1}
			s := newTestStore(t, ids, tt.samples, 1)

			windows := Segmentation(Patients(s, ids), Uniform(1), func(o *SegmentationOptions) {
				o.FrameSize = tt.frameSize
				o.StartOffset = tt.startOffset
				o.StopOffset = tt.stopOffset
			})

			var got error
			count := 0
			for _, err := range windows {
				if err != nil {
					got = err
					continue
				}
				count++
			}

			var fce *FrameConfigError
			require.ErrorAs(t, got, &fce)
			require.Equal(t, tt.frameSize, fce.FrameSize)
			require.Zero(t, count, "no windows may be emitted")
		})
	}
}

func TestSegmentation_PerVisitCounts(t *testing.T) {
	ids := []int{1, 2, 3}
	s := newTestStore(t, ids, 200, 1)

	perID := map[int]int{}
	windows := Segmentation(Patients(s, ids), PerVisit([]int{2, 0, 5}), func(o *SegmentationOptions) {
		o.FrameSize = 50
		o.StartOffset = 10
		o.StopOffset = 10
	})
	for w, err := range windows {
		require.NoError(t, err)
		perID[w.PatientID]++
	}

	require.Equal(t, map[int]int{1: 2, 3: 5}, perID)
}

func TestSegmentation_NormalizedWindows(t *testing.T) {
	ids := []int{1}
	s := newTestStore(t, ids, 500, 1)

	windows := Segmentation(Patients(s, ids), Uniform(5), func(o *SegmentationOptions) {
		o.FrameSize = 100
		o.StartOffset = 50
		o.StopOffset = 50
		o.Normalize = true
		o.Rand = rand.New(rand.NewSource(6))
	})

	for w, err := range windows {
		require.NoError(t, err)
		var sum float64
		for _, v := range w.Signal {
			sum += float64(v)
		}
		require.InDelta(t, 0, sum/float64(len(w.Signal)), 1e-4)
		require.False(t, math.IsNaN(sum))
	}
}

func TestSampleCount(t *testing.T) {
	require.Equal(t, 4, Uniform(4).at(0))
	require.Equal(t, 4, Uniform(4).at(99))

	c := PerVisit([]int{1, 2})
	require.Equal(t, 1, c.at(0))
	require.Equal(t, 2, c.at(1))
	require.Equal(t, 1, c.at(2)) // cycles
}
