package signal

import "math"

// Default band-pass corner frequencies for ECG preprocessing. The band
// keeps the clinically relevant 0.5-40 Hz range and rejects baseline
// wander below and powerline/muscle noise above.
const (
	DefaultLowCutHz  = 0.5
	DefaultHighCutHz = 40.0
)

// biquad is one second-order IIR section in direct form I, normalized so
// a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func (f *biquad) apply(x []float32) {
	var x1, x2, y1, y2 float64
	for i, v := range x {
		in := float64(v)
		out := f.b0*in + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, in
		y2, y1 = y1, out
		x[i] = float32(out)
	}
}

// butterworthQ is the quality factor of a single second-order Butterworth
// section (1/sqrt(2), maximally flat).
const butterworthQ = math.Sqrt2 / 2

func lowPassBiquad(cutoffHz float64, sampleRate int) biquad {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)
	a0 := 1 + alpha
	return biquad{
		b0: (1 - cosW0) / 2 / a0,
		b1: (1 - cosW0) / a0,
		b2: (1 - cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func highPassBiquad(cutoffHz float64, sampleRate int) biquad {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)
	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// BandPass applies a second-order Butterworth band-pass (high-pass at
// lowCutHz cascaded with low-pass at highCutHz) to x in place and returns
// x. The transform is stateless across calls.
func BandPass(x []float32, lowCutHz, highCutHz float64, sampleRate int) []float32 {
	hp := highPassBiquad(lowCutHz, sampleRate)
	lp := lowPassBiquad(highCutHz, sampleRate)
	hp.apply(x)
	lp.apply(x)
	return x
}

// Standardize scales x in place to zero mean and unit variance and
// returns x. A constant buffer is centered but left unscaled.
func Standardize(x []float32) []float32 {
	if len(x) == 0 {
		return x
	}
	var sum float64
	for _, v := range x {
		sum += float64(v)
	}
	mean := sum / float64(len(x))

	var sq float64
	for _, v := range x {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(x)))
	if std == 0 {
		std = 1
	}

	for i, v := range x {
		x[i] = float32((float64(v) - mean) / std)
	}
	return x
}

// Normalize standardizes every lead of the signal, optionally band-pass
// filtering first, and returns a new matrix. The input is not modified.
func Normalize(s *Signal, sampleRate int, filterEnable bool) *Signal {
	out := New(s.Samples, s.Leads)
	for lead := 0; lead < s.Leads; lead++ {
		col := s.Lead(lead)
		if filterEnable {
			BandPass(col, DefaultLowCutHz, DefaultHighCutHz, sampleRate)
		}
		Standardize(col)
		out.SetLead(lead, col)
	}
	return out
}

// NormalizeFrame standardizes a single already-extracted window in place,
// optionally band-pass filtering first.
func NormalizeFrame(x []float32, sampleRate int, filterEnable bool) []float32 {
	if filterEnable {
		BandPass(x, DefaultLowCutHz, DefaultHighCutHz, sampleRate)
	}
	return Standardize(x)
}
