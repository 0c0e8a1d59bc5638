package wfdb

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/hupe1980/ecgset/annotation"
)

// WFDB annotation type codes used by LUDB. The wave boundary codes mark
// interval opens/closes; the wave codes double as fiducial symbols.
const (
	codeNormal = 1  // 'N' QRS complex
	codePWave  = 24 // 'p'
	codeTWave  = 27 // 't'
	codeWFOn   = 39 // '(' waveform onset
	codeWFOff  = 40 // ')' waveform offset

	// Pseudo-annotation codes that modify fields without advancing time.
	codeSkip = 59
	codeNum  = 60
	codeSub  = 61
	codeChn  = 62
	codeAux  = 63
)

// ReadAnnotations decodes a WFDB (MIT format) annotation file into the
// reconstructor's marker stream. Annotation times are cumulative sample
// offsets; pseudo-annotations (NUM/SUB/CHN/AUX/SKIP) are consumed without
// producing markers.
//
// Annotation types other than wave boundaries and the p/N/t wave symbols
// map to KindOther, which the reconstructor treats as a reset.
func ReadAnnotations(path string) ([]annotation.Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeAnnotations(data)
}

func decodeAnnotations(data []byte) ([]annotation.Marker, error) {
	var (
		markers []annotation.Marker
		time    int
		off     int
	)

	for off+2 <= len(data) {
		word := binary.LittleEndian.Uint16(data[off:])
		off += 2

		code := int(word >> 10)
		interval := int(word & 0x3ff)

		if code == 0 && interval == 0 {
			break // end of annotations
		}

		switch code {
		case codeSkip:
			// Long interval: next two words hold the high then low 16
			// bits of a 32-bit offset.
			if off+4 > len(data) {
				return nil, fmt.Errorf("wfdb: truncated SKIP annotation at offset %d", off)
			}
			high := int32(binary.LittleEndian.Uint16(data[off:]))
			low := int32(binary.LittleEndian.Uint16(data[off+2:]))
			time += int(high<<16 | low)
			off += 4

		case codeNum, codeSub, codeChn:
			// Field modifiers; irrelevant for marker reconstruction.

		case codeAux:
			// Aux string of `interval` bytes, padded to an even length.
			n := interval
			if n%2 == 1 {
				n++
			}
			if off+n > len(data) {
				return nil, fmt.Errorf("wfdb: truncated AUX annotation at offset %d", off)
			}
			off += n

		default:
			time += interval
			markers = append(markers, markerForCode(code, time))
		}
	}

	return markers, nil
}

func markerForCode(code, sample int) annotation.Marker {
	switch code {
	case codeWFOn:
		return annotation.Marker{Kind: annotation.KindOpen, Sample: sample}
	case codeWFOff:
		return annotation.Marker{Kind: annotation.KindClose, Sample: sample}
	case codePWave:
		return annotation.Marker{Kind: annotation.KindSymbol, Class: annotation.ClassPWave, Sample: sample}
	case codeNormal:
		return annotation.Marker{Kind: annotation.KindSymbol, Class: annotation.ClassQRS, Sample: sample}
	case codeTWave:
		return annotation.Marker{Kind: annotation.KindSymbol, Class: annotation.ClassTWave, Sample: sample}
	default:
		return annotation.Marker{Kind: annotation.KindOther, Sample: sample}
	}
}
