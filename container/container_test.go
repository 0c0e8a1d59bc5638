package container

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/signal"
)

func testRecord(t *testing.T, samples, leads int) *Record {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	sig := signal.New(samples, leads)
	for i := range sig.Data {
		sig.Data[i] = rng.Float32()*2 - 1
	}

	return &Record{
		PatientID:    17,
		SamplingRate: 500,
		Signal:       sig,
		Intervals: []annotation.Interval{
			{Lead: 0, Class: annotation.ClassPWave, Start: 100, Stop: 150},
			{Lead: 0, Class: annotation.ClassQRS, Start: 160, Stop: 200},
			{Lead: 1, Class: annotation.ClassTWave, Start: 210, Stop: 280},
		},
		Fiducials: []annotation.Fiducial{
			{Lead: 0, Class: annotation.ClassPWave, Sample: 120},
			{Lead: 0, Class: annotation.ClassQRS, Sample: 180},
			{Lead: 1, Class: annotation.ClassTWave, Sample: 240},
		},
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
	}{
		{name: "none", compression: CompressionNone},
		{name: "lz4", compression: CompressionLZ4},
		{name: "zstd", compression: CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord(t, 1000, 3)

			var buf bytes.Buffer
			require.NoError(t, rec.Encode(&buf, tt.compression))

			got, err := Decode(buf.Bytes())
			require.NoError(t, err)

			// Signal values must survive bit-identically.
			require.Equal(t, rec.Signal.Data, got.Signal.Data)
			require.Equal(t, rec.Signal.Samples, got.Signal.Samples)
			require.Equal(t, rec.Signal.Leads, got.Signal.Leads)
			require.Equal(t, rec.Intervals, got.Intervals)
			require.Equal(t, rec.Fiducials, got.Fiducials)
			require.Equal(t, rec.PatientID, got.PatientID)
			require.Equal(t, rec.SamplingRate, got.SamplingRate)
		})
	}
}

func TestRecord_RoundTripEmptyAnnotations(t *testing.T) {
	rec := testRecord(t, 100, 2)
	rec.Intervals = nil
	rec.Fiducials = nil

	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf, CompressionZSTD))

	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Empty(t, got.Intervals)
	require.Empty(t, got.Fiducials)
	require.Equal(t, rec.Signal.Data, got.Signal.Data)
}

func TestDecode_InvalidMagic(t *testing.T) {
	rec := testRecord(t, 50, 1)
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf, CompressionNone))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[0:], 0xdeadbeef)

	_, err := Decode(data)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	rec := testRecord(t, 50, 1)
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf, CompressionNone))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[4:], 0x00990000)

	_, err := Decode(data)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecode_Truncated(t *testing.T) {
	rec := testRecord(t, 200, 2)
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf, CompressionZSTD))

	data := buf.Bytes()
	for _, cut := range []int{0, 10, len(data) / 2, len(data) - 1} {
		_, err := Decode(data[:cut])
		require.ErrorIs(t, err, ErrCorrupt, "cut at %d", cut)
	}
}

func TestDecode_ShapeMismatch(t *testing.T) {
	rec := testRecord(t, 50, 1)
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf, CompressionNone))

	// Claim more samples than the signal section holds.
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[20:], 9999) // NumSamples field

	_, err := Decode(data)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p00017.rec")

	rec := testRecord(t, 500, 12)
	require.NoError(t, Save(path, rec, CompressionZSTD))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, rec.Signal.Data, got.Signal.Data)
	require.Equal(t, rec.Intervals, got.Intervals)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.rec"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecord_PaintLabels(t *testing.T) {
	rec := testRecord(t, 300, 2)

	labels := rec.PaintLabels()

	require.Equal(t, rec.Signal.Samples, labels.Samples)
	require.Equal(t, rec.Signal.Leads, labels.Leads)
	require.Equal(t, annotation.ClassPWave, labels.At(120, 0))
	require.Equal(t, annotation.ClassQRS, labels.At(180, 0))
	require.Equal(t, annotation.ClassTWave, labels.At(250, 1))
	require.Equal(t, annotation.ClassOther, labels.At(0, 0))
}

func TestCompressionString(t *testing.T) {
	require.Equal(t, "zstd", CompressionZSTD.String())
	require.Equal(t, "lz4", CompressionLZ4.String())
	require.Equal(t, "none", CompressionNone.String())
}
