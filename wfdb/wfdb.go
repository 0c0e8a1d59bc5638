// Package wfdb reads the subset of the PhysioNet WFDB format needed to
// ingest LUDB-style records: text headers (.hea), format-16 signal files
// (.dat) and per-lead binary annotation files.
//
// It is deliberately not a general WFDB implementation; records using
// other signal formats are rejected rather than misread.
package wfdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/ecgset/signal"
)

// Header describes one WFDB record: its shape plus per-lead signal
// specifications.
type Header struct {
	Name         string
	SamplingRate int
	NumSamples   int
	Signals      []SignalSpec
}

// SignalSpec is one line of the header's signal section.
type SignalSpec struct {
	FileName    string
	Format      int
	Gain        float64 // ADC units per physical unit
	Baseline    int     // ADC value mapping to 0 physical units
	Description string  // lead name, e.g. "i", "avr", "v3"
}

// ReadHeader parses the .hea file at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	var h *Header
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if h == nil {
			rec, err := parseRecordLine(line)
			if err != nil {
				return nil, fmt.Errorf("wfdb: %s: %w", path, err)
			}
			h = rec
			continue
		}
		if len(h.Signals) == cap(h.Signals) {
			break
		}
		spec, err := parseSignalLine(line)
		if err != nil {
			return nil, fmt.Errorf("wfdb: %s: %w", path, err)
		}
		h.Signals = append(h.Signals, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("wfdb: %s: empty header", path)
	}
	if len(h.Signals) != cap(h.Signals) {
		return nil, fmt.Errorf("wfdb: %s: header declares %d signals, found %d", path, cap(h.Signals), len(h.Signals))
	}
	return h, nil
}

// parseRecordLine parses "name numSignals samplingRate numSamples".
func parseRecordLine(line string) (*Header, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("malformed record line %q", line)
	}

	numSignals, err := strconv.Atoi(fields[1])
	if err != nil || numSignals <= 0 {
		return nil, fmt.Errorf("bad signal count %q", fields[1])
	}
	// The sampling frequency field may carry counter info ("500/...").
	rateField, _, _ := strings.Cut(fields[2], "/")
	rate, err := strconv.Atoi(rateField)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("bad sampling rate %q", fields[2])
	}
	numSamples, err := strconv.Atoi(fields[3])
	if err != nil || numSamples <= 0 {
		return nil, fmt.Errorf("bad sample count %q", fields[3])
	}

	return &Header{
		Name:         fields[0],
		SamplingRate: rate,
		NumSamples:   numSamples,
		Signals:      make([]SignalSpec, 0, numSignals),
	}, nil
}

// parseSignalLine parses "file format gain(baseline)/units adcres adczero
// initval checksum blocksize description".
func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return SignalSpec{}, fmt.Errorf("malformed signal line %q", line)
	}

	// Format may carry a samples-per-frame suffix ("16x1"); reject
	// anything but plain format 16.
	formatField, _, _ := strings.Cut(fields[1], "x")
	formatField, _, _ = strings.Cut(formatField, ":")
	format, err := strconv.Atoi(formatField)
	if err != nil {
		return SignalSpec{}, fmt.Errorf("bad format %q", fields[1])
	}

	gain, baseline, err := parseGainField(fields[2])
	if err != nil {
		return SignalSpec{}, err
	}

	spec := SignalSpec{
		FileName: fields[0],
		Format:   format,
		Gain:     gain,
		Baseline: baseline,
	}
	if len(fields) >= 9 {
		spec.Description = fields[len(fields)-1]
	}
	return spec, nil
}

// parseGainField parses "gain(baseline)/units"; baseline and units are
// optional. A missing or zero gain defaults to 200 per the WFDB spec.
func parseGainField(field string) (float64, int, error) {
	field, _, _ = strings.Cut(field, "/")

	baseline := 0
	if open := strings.IndexByte(field, '('); open >= 0 {
		end := strings.IndexByte(field, ')')
		if end < open {
			return 0, 0, fmt.Errorf("malformed gain field %q", field)
		}
		b, err := strconv.Atoi(field[open+1 : end])
		if err != nil {
			return 0, 0, fmt.Errorf("malformed baseline in %q", field)
		}
		baseline = b
		field = field[:open]
	}

	gain := 200.0
	if field != "" {
		g, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed gain %q", field)
		}
		if g != 0 {
			gain = g
		}
	}
	return gain, baseline, nil
}

// ReadSignal decodes the record's signal file into a physical-units
// matrix of shape (NumSamples, len(Signals)).
//
// Only format 16 (16-bit two's complement, little endian, interleaved) is
// supported; all LUDB records use it.
func ReadSignal(dir string, h *Header) (*signal.Signal, error) {
	if len(h.Signals) == 0 {
		return nil, fmt.Errorf("wfdb: record %s has no signals", h.Name)
	}
	for _, spec := range h.Signals {
		if spec.Format != 16 {
			return nil, fmt.Errorf("wfdb: unsupported signal format %d in record %s", spec.Format, h.Name)
		}
		if spec.FileName != h.Signals[0].FileName {
			return nil, fmt.Errorf("wfdb: multi-file records not supported (record %s)", h.Name)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, h.Signals[0].FileName))
	if err != nil {
		return nil, err
	}

	leads := len(h.Signals)
	want := h.NumSamples * leads * 2
	if len(data) < want {
		return nil, fmt.Errorf("wfdb: signal file for record %s has %d bytes, want %d", h.Name, len(data), want)
	}

	sig := signal.New(h.NumSamples, leads)
	for i := 0; i < h.NumSamples; i++ {
		for lead := 0; lead < leads; lead++ {
			raw := int16(binary.LittleEndian.Uint16(data[(i*leads+lead)*2:]))
			spec := h.Signals[lead]
			sig.Set(i, lead, float32((float64(raw)-float64(spec.Baseline))/spec.Gain))
		}
	}
	return sig, nil
}
