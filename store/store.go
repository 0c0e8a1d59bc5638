// Package store maps patient identifiers to record container files on a
// filesystem path.
//
// The store is the single owner of persisted records: the bulk converter
// writes each container exactly once (atomically), and the patient
// iterator reads them back one at a time. There is no in-memory cache
// beyond the record currently open.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/internal/mmap"
)

// ErrNotFound is returned when a patient's container does not exist.
//
// It satisfies `errors.Is(err, ErrNotFound)` and maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is a directory of per-patient record containers.
type Store struct {
	root string
}

// New creates a store rooted at the given directory. The directory is
// created lazily on the first write.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the container path for a patient id. Filenames are keyed
// deterministically by zero-padded id.
func (s *Store) Path(patientID int) string {
	return filepath.Join(s.root, fmt.Sprintf("p%05d.rec", patientID))
}

// Exists reports whether a container has been written for the patient.
func (s *Store) Exists(patientID int) bool {
	_, err := os.Stat(s.Path(patientID))
	return err == nil
}

// Open reads and decodes one patient's record. The file is memory-mapped
// for the duration of the decode; the returned record owns its buffers.
func (s *Store) Open(patientID int) (*container.Record, error) {
	m, err := mmap.Open(s.Path(patientID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("patient %d: %w", patientID, ErrNotFound)
		}
		return nil, err
	}
	defer m.Close()

	return container.Decode(m.Data)
}

// Write persists one patient's record atomically. Concurrent writers of
// distinct patients need no coordination.
func (s *Store) Write(rec *container.Record, compression container.Compression) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return err
	}
	return container.Save(s.Path(rec.PatientID), rec, compression)
}

// Remove deletes a patient's container. Missing containers are not an
// error, matching the idempotent re-conversion flow.
func (s *Store) Remove(patientID int) error {
	err := os.Remove(s.Path(patientID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PatientIDs scans the store and returns the ids of all persisted
// containers in ascending order.
func (s *Store) PatientIDs() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(e.Name(), "p%d.rec", &id); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
