// Package signal provides the multi-lead waveform matrix used throughout
// the dataset layer, plus the numeric transforms applied before training:
// label painting, band-pass filtering and standardization.
package signal

import "fmt"

// Signal is a dense multi-lead waveform matrix, row-major with shape
// (Samples, Leads). Values are raw amplitudes in source units (typically
// millivolts).
type Signal struct {
	Samples int
	Leads   int
	Data    []float32
}

// New allocates a zeroed signal matrix.
func New(samples, leads int) *Signal {
	return &Signal{
		Samples: samples,
		Leads:   leads,
		Data:    make([]float32, samples*leads),
	}
}

// FromData wraps an existing row-major buffer. The buffer length must be
// samples*leads.
func FromData(samples, leads int, data []float32) (*Signal, error) {
	if len(data) != samples*leads {
		return nil, fmt.Errorf("signal: buffer length %d does not match shape (%d, %d)", len(data), samples, leads)
	}
	return &Signal{Samples: samples, Leads: leads, Data: data}, nil
}

// At returns the value at sample i on the given lead.
func (s *Signal) At(i, lead int) float32 {
	return s.Data[i*s.Leads+lead]
}

// Set stores v at sample i on the given lead.
func (s *Signal) Set(i, lead int, v float32) {
	s.Data[i*s.Leads+lead] = v
}

// Lead copies one lead's full column into a contiguous slice.
func (s *Signal) Lead(lead int) []float32 {
	out := make([]float32, s.Samples)
	for i := range out {
		out[i] = s.Data[i*s.Leads+lead]
	}
	return out
}

// Frame copies size samples starting at start on the given lead.
// The caller is responsible for bounds; a frame fully inside the record is
// guaranteed by the window sampler.
func (s *Signal) Frame(start, size, lead int) []float32 {
	out := make([]float32, size)
	for i := range out {
		out[i] = s.Data[(start+i)*s.Leads+lead]
	}
	return out
}

// SetLead overwrites one lead's column from a contiguous slice.
func (s *Signal) SetLead(lead int, values []float32) {
	for i, v := range values {
		s.Data[i*s.Leads+lead] = v
	}
}

// Clone returns a deep copy.
func (s *Signal) Clone() *Signal {
	data := make([]float32, len(s.Data))
	copy(data, s.Data)
	return &Signal{Samples: s.Samples, Leads: s.Leads, Data: data}
}
