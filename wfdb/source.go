package wfdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/ecgset/annotation"
	"github.com/hupe1980/ecgset/signal"
)

// LeadOrder is the canonical 12-lead ordering used for container lead
// indices, independent of the order leads appear in a header.
var LeadOrder = []string{"i", "ii", "iii", "avr", "avl", "avf", "v1", "v2", "v3", "v4", "v5", "v6"}

var leadIndex = func() map[string]int {
	m := make(map[string]int, len(LeadOrder))
	for i, name := range LeadOrder {
		m[name] = i
	}
	return m
}()

// Source reads raw LUDB records from a directory of WFDB files. Records
// are keyed by integer patient id; each id has a header, a signal file
// and one annotation file per lead (extension = lead name).
//
// Source satisfies the bulk converter's raw-source contract.
type Source struct {
	dir string
}

// NewSource creates a source over the given WFDB data directory.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Read loads one patient's signal matrix and per-lead marker streams.
//
// Signal columns are reordered into LeadOrder so downstream lead indices
// are stable across records. Leads missing an annotation file yield an
// empty marker stream rather than an error; LUDB annotates all leads, but
// sibling datasets do not.
func (s *Source) Read(patientID int) (*signal.Signal, int, [][]annotation.Marker, error) {
	base := filepath.Join(s.dir, strconv.Itoa(patientID))

	header, err := ReadHeader(base + ".hea")
	if err != nil {
		return nil, 0, nil, err
	}

	raw, err := ReadSignal(s.dir, header)
	if err != nil {
		return nil, 0, nil, err
	}

	// Reorder columns into canonical lead positions.
	sig := signal.New(raw.Samples, len(LeadOrder))
	for col, spec := range header.Signals {
		lead, ok := leadIndex[spec.Description]
		if !ok {
			return nil, 0, nil, fmt.Errorf("wfdb: record %d has unknown lead %q", patientID, spec.Description)
		}
		sig.SetLead(lead, raw.Lead(col))
	}

	markers := make([][]annotation.Marker, len(LeadOrder))
	for lead, name := range LeadOrder {
		ms, err := ReadAnnotations(base + "." + name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, 0, nil, err
		}
		markers[lead] = ms
	}

	return sig, header.SamplingRate, markers, nil
}
