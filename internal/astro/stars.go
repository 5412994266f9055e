package astro

import (
	"math"
	"sort"
)

// Star represents a cataloged star with position and brightness.
type Star struct {
	Name   string  // Common name (e.g., "Vega")
	RAdeg  float64 // Right Ascension in degrees (J2000)
	DecDeg float64 // Declination in degrees (J2000)
	Mag    float64 // Apparent visual magnitude (lower = brighter)
}

// StarCatalog holds the stars drawn in the night sky.
type StarCatalog struct {
	Stars []Star
}

// DefaultStarCatalog returns the bright northern stars used for the
// decorative star field.
func DefaultStarCatalog() StarCatalog {
	return StarCatalog{Stars: defaultStars}
}

var defaultStars = []Star{
	{"Sirius", 101.287, -16.716, -1.46},
	{"Arcturus", 213.915, 19.182, -0.05},
	{"Vega", 279.235, 38.784, 0.03},
	{"Capella", 79.172, 45.998, 0.08},
	{"Rigel", 78.634, -8.202, 0.13},
	{"Procyon", 114.826, 5.225, 0.34},
	{"Betelgeuse", 88.793, 7.407, 0.50},
	{"Altair", 297.696, 8.868, 0.76},
	{"Aldebaran", 68.980, 16.509, 0.85},
	{"Spica", 201.298, -11.161, 0.97},
	{"Pollux", 116.329, 28.026, 1.14},
	{"Deneb", 310.358, 45.280, 1.25},
	{"Regulus", 152.093, 11.967, 1.35},
	{"Castor", 113.650, 31.889, 1.58},
	{"Bellatrix", 81.283, 6.350, 1.64},
	{"Elnath", 81.573, 28.608, 1.65},
	{"Alnilam", 84.053, -1.202, 1.69},
	{"Alioth", 193.507, 55.960, 1.77},
	{"Dubhe", 165.932, 61.751, 1.79},
	{"Mirfak", 51.081, 49.861, 1.79},
	{"Alkaid", 206.885, 49.313, 1.86},
	{"Menkalinan", 89.882, 44.948, 1.90},
	{"Alhena", 99.428, 16.399, 1.93},
	{"Polaris", 37.954, 89.264, 2.02},
	{"Hamal", 31.793, 23.462, 2.00},
	{"Mizar", 200.981, 54.925, 2.04},
	{"Alpheratz", 2.097, 29.090, 2.06},
	{"Kochab", 222.676, 74.156, 2.08},
	{"Rasalhague", 263.734, 12.560, 2.08},
	{"Algol", 47.042, 40.956, 2.12},
	{"Denebola", 177.265, 14.572, 2.14},
	{"Schedar", 10.127, 56.537, 2.24},
	{"Merak", 165.460, 56.383, 2.37},
	{"Enif", 326.046, 9.875, 2.39},
	{"Phecda", 178.458, 53.695, 2.44},
	{"Caph", 2.295, 59.150, 2.27},
	{"Eltanin", 269.152, 51.489, 2.23},
	{"Scheat", 345.944, 28.083, 2.42},
	{"Markab", 346.190, 15.205, 2.49},
	{"Megrez", 183.857, 57.033, 3.31},
}

// FieldStar is a star placed in the unit square of the star field.
type FieldStar struct {
	Star
	X, Y float64 // [0,1], origin top-left
}

// Field projects the catalog around the north celestial pole, rotated by
// rotationDeg, into the unit square. Stars falling outside the square are
// dropped; the result is ordered brightest first.
func (c StarCatalog) Field(rotationDeg float64) []FieldStar {
	out := make([]FieldStar, 0, len(c.Stars))
	for _, s := range c.Stars {
		// Polar projection: distance from the pole grows with 90-dec.
		r := (90 - s.DecDeg) / 110
		theta := degToRad(s.RAdeg + rotationDeg)
		x := 0.5 + r*math.Cos(theta)
		y := 0.5 - r*math.Sin(theta)
		if x < 0 || x > 1 || y < 0 || y > 1 {
			continue
		}
		out = append(out, FieldStar{Star: s, X: x, Y: y})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mag < out[j].Mag })
	return out
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
