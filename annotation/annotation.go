// Package annotation reconstructs labeled intervals and fiducial points
// from raw per-lead marker streams.
//
// Clinical annotation files encode waveform boundaries as a flat event
// stream: an interval-open marker, a class symbol naming the wave, and an
// interval-close marker. Streams are noisy in practice (unbalanced opens,
// stray symbols, unknown events), so reconstruction is reset-and-continue:
// a malformed run is skipped silently and scanning resumes at the next
// event.
package annotation

// Class identifies the waveform segment a marker or interval belongs to.
type Class uint8

const (
	// ClassOther marks unlabeled signal.
	ClassOther Class = 0
	// ClassPWave marks a P wave.
	ClassPWave Class = 1
	// ClassQRS marks a QRS complex.
	ClassQRS Class = 2
	// ClassTWave marks a T wave.
	ClassTWave Class = 3
)

// NumClasses is the size of the class enumeration.
const NumClasses = 4

func (c Class) String() string {
	switch c {
	case ClassOther:
		return "other"
	case ClassPWave:
		return "p-wave"
	case ClassQRS:
		return "qrs"
	case ClassTWave:
		return "t-wave"
	default:
		return "unknown"
	}
}

// MarkerKind is the raw event type in an annotation stream.
type MarkerKind uint8

const (
	// KindOpen starts an interval.
	KindOpen MarkerKind = iota
	// KindSymbol names the interval's class and marks a fiducial instant.
	KindSymbol
	// KindClose ends an interval.
	KindClose
	// KindOther is any event the reconstructor does not understand.
	KindOther
)

// Marker is one raw annotation event at a sample index.
// Class is only meaningful when Kind is KindSymbol.
type Marker struct {
	Kind   MarkerKind
	Class  Class
	Sample int
}

// Interval is a labeled contiguous sample range on one lead.
// Start is inclusive, Stop exclusive of the wave boundary convention used
// by the source annotations; Start < Stop always holds for reconstructed
// intervals.
type Interval struct {
	Lead  int
	Class Class
	Start int
	Stop  int
}

// Fiducial is a single labeled sample instant on one lead, e.g. a wave
// peak. Every class symbol in the stream yields one fiducial, whether or
// not its surrounding interval closes.
type Fiducial struct {
	Lead   int
	Class  Class
	Sample int
}

// Reconstruct scans one lead's ordered marker stream and returns the
// intervals and fiducials it encodes, in occurrence order.
//
// The scan keeps two pending values, both explicitly tri-state: a start
// sample and a class. ClassOther (0) is a valid class, so "unset" is
// tracked separately rather than by a zero sentinel.
//
//   - KindOpen records the start sample.
//   - KindSymbol records the class, emits a fiducial, and implicitly opens
//     an interval if none is open.
//   - KindClose emits an interval only when both pending values are set,
//     then clears them.
//   - Anything else resets both pending values; the partial interval is
//     dropped without error.
func Reconstruct(lead int, markers []Marker) ([]Interval, []Fiducial) {
	var (
		intervals []Interval
		fiducials []Fiducial

		pendingStart int
		hasStart     bool
		pendingClass Class
		hasClass     bool
	)

	for _, m := range markers {
		switch m.Kind {
		case KindOpen:
			pendingStart = m.Sample
			hasStart = true

		case KindSymbol:
			pendingClass = m.Class
			hasClass = true
			if !hasStart {
				// A symbol can open an interval implicitly.
				pendingStart = m.Sample
				hasStart = true
			}
			fiducials = append(fiducials, Fiducial{Lead: lead, Class: m.Class, Sample: m.Sample})

		case KindClose:
			if hasStart && hasClass {
				intervals = append(intervals, Interval{
					Lead:  lead,
					Class: pendingClass,
					Start: pendingStart,
					Stop:  m.Sample,
				})
			}
			hasStart = false
			hasClass = false

		default:
			// Unknown event: drop any partial interval and resync.
			hasStart = false
			hasClass = false
		}
	}

	return intervals, fiducials
}

// ReconstructLeads runs Reconstruct over every lead in order and
// concatenates the results, lead-major. Sample order across leads is not
// normalized; consumers index by lead.
func ReconstructLeads(streams [][]Marker) ([]Interval, []Fiducial) {
	var (
		intervals []Interval
		fiducials []Fiducial
	)
	for lead, markers := range streams {
		ivs, fds := Reconstruct(lead, markers)
		intervals = append(intervals, ivs...)
		fiducials = append(fiducials, fds...)
	}
	return intervals, fiducials
}
