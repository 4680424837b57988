package synth

import "math"

// melodicScale is a natural minor scale expanded across two-plus octaves
// to sixteen degrees, one per segment. Segment brightness indexes into it
// so dark-to-bright reads low-to-high.
var melodicScale = [16]int{0, 2, 3, 5, 7, 8, 10, 12, 14, 15, 17, 19, 20, 22, 24, 26}

// DegreeFrequency returns the frequency of a scale degree in equal
// temperament above base. Out-of-range degrees clamp to the scale edges.
func DegreeFrequency(base float64, degree int) float64 {
	if degree < 0 {
		degree = 0
	}
	if degree > len(melodicScale)-1 {
		degree = len(melodicScale) - 1
	}
	return base * math.Pow(2, float64(melodicScale[degree])/12.0)
}

// DegreeForBrightness maps a normalized brightness to a scale degree.
func DegreeForBrightness(brightness float64) int {
	d := int(brightness * 15)
	if d < 0 {
		return 0
	}
	if d > 15 {
		return 15
	}
	return d
}
