package signal

import "github.com/hupe1980/ecgset/annotation"

// Labels is a per-sample class matrix with the same shape conventions as
// Signal: row-major, (Samples, Leads). It is derived on demand and never
// persisted.
type Labels struct {
	Samples int
	Leads   int
	Data    []annotation.Class
}

// PaintLabels builds a full-length label matrix by painting each
// interval's class over its sample range on the interval's lead. The
// buffer starts as ClassOther everywhere; intervals later in the slice
// overwrite earlier ones on overlap (last write wins). Interval stops are
// exclusive and clamped to the record length.
func PaintLabels(samples, leads int, intervals []annotation.Interval) *Labels {
	l := &Labels{
		Samples: samples,
		Leads:   leads,
		Data:    make([]annotation.Class, samples*leads),
	}
	for _, iv := range intervals {
		if iv.Lead < 0 || iv.Lead >= leads {
			continue
		}
		start, stop := iv.Start, iv.Stop
		if start < 0 {
			start = 0
		}
		if stop > samples {
			stop = samples
		}
		for i := start; i < stop; i++ {
			l.Data[i*leads+iv.Lead] = iv.Class
		}
	}
	return l
}

// At returns the class at sample i on the given lead.
func (l *Labels) At(i, lead int) annotation.Class {
	return l.Data[i*l.Leads+lead]
}

// Frame copies size labels starting at start on the given lead.
func (l *Labels) Frame(start, size, lead int) []annotation.Class {
	out := make([]annotation.Class, size)
	for i := range out {
		out[i] = l.Data[(start+i)*l.Leads+lead]
	}
	return out
}
