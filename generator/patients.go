// Package generator turns a record store into lazy training streams: a
// patient iterator over full records and a window sampler that cuts
// fixed-size labeled frames out of them.
//
// Both generators follow the streaming iterator shape used elsewhere in
// the module: an iter.Seq2 of (value, error) that the consumer ranges
// over and may abandon at any point.
package generator

import (
	"iter"
	"math/rand"
	"slices"

	"github.com/hupe1980/ecgset/container"
	"github.com/hupe1980/ecgset/store"
)

// Patient is one step of the patient stream: the id and its freshly
// opened record. The record is acquired on demand for this step; callers
// that need it beyond the step must keep their own reference.
type Patient struct {
	ID     int
	Record *container.Record
}

// PatientOptions configures the patient stream.
type PatientOptions struct {
	// Repeat makes the stream infinite: after a full pass over the ids it
	// starts another. Consumers are responsible for stopping.
	Repeat bool
	// Shuffle permutes the ids uniformly at random at the start of every
	// pass (a fresh permutation each time Repeat loops back).
	Shuffle bool
	// Rand is the random source for shuffling. Nil uses the process-level
	// source; set it explicitly for reproducibility.
	Rand *rand.Rand
}

// Patients streams (id, record) pairs from the store.
//
// With Repeat unset the stream makes exactly one pass over ids in
// (possibly shuffled) order and terminates. Records are opened lazily one
// step at a time; a failed open is surfaced as that step's error and the
// stream continues with the next id.
func Patients(s *store.Store, ids []int, optFns ...func(*PatientOptions)) iter.Seq2[Patient, error] {
	var o PatientOptions
	for _, fn := range optFns {
		fn(&o)
	}

	ids = slices.Clone(ids)

	return func(yield func(Patient, error) bool) {
		for {
			if o.Shuffle {
				shuffleInts(ids, o.Rand)
			}
			for _, id := range ids {
				rec, err := s.Open(id)
				if err != nil {
					if !yield(Patient{ID: id}, err) {
						return
					}
					continue
				}
				if !yield(Patient{ID: id, Record: rec}, nil) {
					return
				}
			}
			if !o.Repeat {
				return
			}
		}
	}
}

func shuffleInts(ids []int, r *rand.Rand) {
	swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
	if r != nil {
		r.Shuffle(len(ids), swap)
		return
	}
	rand.Shuffle(len(ids), swap)
}

func intn(r *rand.Rand, n int) int {
	if r != nil {
		return r.Intn(n)
	}
	return rand.Intn(n)
}
