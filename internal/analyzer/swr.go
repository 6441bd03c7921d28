package analyzer

import "math"

const (
	// MaxVSWR is reported for open, shorted or unmeasurable loads
	MaxVSWR = 99.99

	adcReferenceMV = 5000.0
	adcCounts      = 1024.0

	// ad8307SlopeMV is the AD8307 log amplifier output slope
	ad8307SlopeMV = 25.0
)

// VSWR converts mean forward and reverse detector readings into a VSWR value.
//
// Diode detectors are treated as linear: the reflection coefficient is the ratio
// of the readings. AD8307 outputs are logarithmic, so their difference is the
// return loss in dB.
func VSWR(forward, reverse float64, kind DetectorKind) float64 {
	var gamma float64

	switch kind {
	case DetectorAD8307:
		returnLoss := (forward - reverse) * (adcReferenceMV / adcCounts) / ad8307SlopeMV
		gamma = math.Pow(10, -returnLoss/20)

	default:
		if forward <= 0 {
			return MaxVSWR
		}
		gamma = reverse / forward
	}

	if gamma >= 1 {
		return MaxVSWR
	}
	gamma = max(gamma, 0)

	return min((1+gamma)/(1-gamma), MaxVSWR)
}
