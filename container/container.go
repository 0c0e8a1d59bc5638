// Package container implements the per-patient binary record format.
//
// One file holds one patient's full recording: the raw multi-lead signal
// matrix plus the reconstructed interval and fiducial lists. Files are
// immutable after write; the bulk converter replaces them wholesale on a
// forced re-conversion.
//
// Layout:
//
//	FileHeader (fixed size, little endian)
//	signal section    (float32 matrix, row-major samples x leads)
//	interval section  (int32 rows [lead, class, start, stop])
//	fiducial section  (int32 rows [lead, class, sample])
//
// Each section is independently compressed (see Compression) and carries
// its own [rawLen][compLen] header, so a reader can skip sections it does
// not need.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/signal"
)

const (
	// MagicNumber identifies record container files (ASCII: "ECG0")
	MagicNumber = 0x45434730
	// Version is the current file format version (v1.0.0)
	Version = 0x00010000
)

var (
	// ErrCorrupt is returned when a container's encoded shapes or types
	// are inconsistent. Wrapped errors carry detail; match with errors.Is.
	ErrCorrupt = errors.New("corrupt container")
)

// FileHeader is the fixed header at the start of every container file.
type FileHeader struct {
	Magic        uint32
	Version      uint32
	Compression  uint8
	Padding      [3]byte
	PatientID    uint32
	SamplingRate uint32
	NumSamples   uint32
	NumLeads     uint32
	NumIntervals uint32
	NumFiducials uint32
	Reserved     [8]byte
}

const (
	intervalColumns = 4 // lead, class, start, stop
	fiducialColumns = 3 // lead, class, sample
)

// Record is one patient's full recording with its labels.
type Record struct {
	PatientID    int
	SamplingRate int
	Signal       *signal.Signal
	Intervals    []annotation.Interval
	Fiducials    []annotation.Fiducial
}

// PaintLabels derives the record's per-sample label matrix from its
// intervals. The result is not cached; callers materialize it once per
// record visit.
func (r *Record) PaintLabels() *signal.Labels {
	return signal.PaintLabels(r.Signal.Samples, r.Signal.Leads, r.Intervals)
}

// Encode writes the record to w using the given compression.
func (r *Record) Encode(w io.Writer, compression Compression) error {
	header := FileHeader{
		Magic:        MagicNumber,
		Version:      Version,
		Compression:  uint8(compression),
		PatientID:    uint32(r.PatientID),
		SamplingRate: uint32(r.SamplingRate),
		NumSamples:   uint32(r.Signal.Samples),
		NumLeads:     uint32(r.Signal.Leads),
		NumIntervals: uint32(len(r.Intervals)),
		NumFiducials: uint32(len(r.Fiducials)),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}

	if err := writeSection(w, float32Bytes(r.Signal.Data), compression); err != nil {
		return fmt.Errorf("signal section: %w", err)
	}
	if err := writeSection(w, int32Bytes(intervalRows(r.Intervals)), compression); err != nil {
		return fmt.Errorf("interval section: %w", err)
	}
	if err := writeSection(w, int32Bytes(fiducialRows(r.Fiducials)), compression); err != nil {
		return fmt.Errorf("fiducial section: %w", err)
	}

	return nil
}

// Decode parses a record from a fully loaded (or memory-mapped) byte
// slice. The returned record owns fresh buffers; data may be unmapped
// afterwards.
func Decode(data []byte) (*Record, error) {
	headerSize := binary.Size(FileHeader{})
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header", ErrCorrupt)
	}

	var header FileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: invalid magic number 0x%08x", ErrCorrupt, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version 0x%08x", ErrCorrupt, header.Version)
	}

	compression := Compression(header.Compression)
	rest := data[headerSize:]

	sigBytes, n, err := decompressSection(rest, compression)
	if err != nil {
		return nil, fmt.Errorf("%w: signal section: %w", ErrCorrupt, err)
	}
	rest = rest[n:]

	ivBytes, n, err := decompressSection(rest, compression)
	if err != nil {
		return nil, fmt.Errorf("%w: interval section: %w", ErrCorrupt, err)
	}
	rest = rest[n:]

	fidBytes, _, err := decompressSection(rest, compression)
	if err != nil {
		return nil, fmt.Errorf("%w: fiducial section: %w", ErrCorrupt, err)
	}

	samples, leads := int(header.NumSamples), int(header.NumLeads)
	if len(sigBytes) != samples*leads*4 {
		return nil, fmt.Errorf("%w: signal section has %d bytes, want %d (shape %dx%d)",
			ErrCorrupt, len(sigBytes), samples*leads*4, samples, leads)
	}
	if len(ivBytes) != int(header.NumIntervals)*intervalColumns*4 {
		return nil, fmt.Errorf("%w: interval section has %d bytes for %d intervals",
			ErrCorrupt, len(ivBytes), header.NumIntervals)
	}
	if len(fidBytes) != int(header.NumFiducials)*fiducialColumns*4 {
		return nil, fmt.Errorf("%w: fiducial section has %d bytes for %d fiducials",
			ErrCorrupt, len(fidBytes), header.NumFiducials)
	}

	sig, err := signal.FromData(samples, leads, bytesToFloat32(sigBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return &Record{
		PatientID:    int(header.PatientID),
		SamplingRate: int(header.SamplingRate),
		Signal:       sig,
		Intervals:    rowsToIntervals(bytesToInt32(ivBytes)),
		Fiducials:    rowsToFiducials(bytesToInt32(fidBytes)),
	}, nil
}

func writeSection(w io.Writer, raw []byte, compression Compression) error {
	section, err := compressSection(raw, compression)
	if err != nil {
		return err
	}
	_, err = w.Write(section)
	return err
}

func intervalRows(intervals []annotation.Interval) []int32 {
	rows := make([]int32, 0, len(intervals)*intervalColumns)
	for _, iv := range intervals {
		rows = append(rows, int32(iv.Lead), int32(iv.Class), int32(iv.Start), int32(iv.Stop))
	}
	return rows
}

func fiducialRows(fiducials []annotation.Fiducial) []int32 {
	rows := make([]int32, 0, len(fiducials)*fiducialColumns)
	for _, fd := range fiducials {
		rows = append(rows, int32(fd.Lead), int32(fd.Class), int32(fd.Sample))
	}
	return rows
}

func rowsToIntervals(rows []int32) []annotation.Interval {
	if len(rows) == 0 {
		return nil
	}
	intervals := make([]annotation.Interval, 0, len(rows)/intervalColumns)
	for i := 0; i+intervalColumns <= len(rows); i += intervalColumns {
		intervals = append(intervals, annotation.Interval{
			Lead:  int(rows[i]),
			Class: annotation.Class(rows[i+1]),
			Start: int(rows[i+2]),
			Stop:  int(rows[i+3]),
		})
	}
	return intervals
}

func rowsToFiducials(rows []int32) []annotation.Fiducial {
	if len(rows) == 0 {
		return nil
	}
	fiducials := make([]annotation.Fiducial, 0, len(rows)/fiducialColumns)
	for i := 0; i+fiducialColumns <= len(rows); i += fiducialColumns {
		fiducials = append(fiducials, annotation.Fiducial{
			Lead:   int(rows[i]),
			Class:  annotation.Class(rows[i+1]),
			Sample: int(rows[i+2]),
		})
	}
	return fiducials
}

// Raw byte views over numeric slices (no allocation). Safe here because
// the views never outlive the source slice.

func float32Bytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func int32Bytes(s []int32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	if len(out) > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*4), b)
	}
	return out
}

func bytesToInt32(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	if len(out) > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*4), b)
	}
	return out
}
