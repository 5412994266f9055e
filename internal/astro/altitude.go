package astro

import (
	"errors"
	"math"
)

// minSampleSine is the smallest |sin| accepted when back-solving a
// coefficient; closer to rise or set the sample carries no information.
const minSampleSine = 1e-3

// ErrDegenerateSample is returned when an altitude sample sits on a zero of
// the altitude curve.
var ErrDegenerateSample = errors.New("altitude sample too close to rise or set")

// Altitude evaluates the single-arch sine model in degrees:
//
//	coef * sin(pi * (now - rise) / (set - rise))
//
// It is zero at rise and set and peaks at the midpoint. Outside the window
// the curve keeps going below zero; callers rely on that for pre-dawn and
// post-dusk motion.
func Altitude(ref CelestialReference, nowMins float64) float64 {
	span := float64(ref.SetMins - ref.RiseMins)
	if span == 0 {
		return 0
	}
	return ref.Coefficient * math.Sin(math.Pi*(nowMins-float64(ref.RiseMins))/span)
}

// AltitudeAt is Altitude at a clock minute, unwrapped across midnight.
func (r CelestialReference) AltitudeAt(clockMins float64) float64 {
	return Altitude(r, r.Unwrap(clockMins))
}

// Coefficient back-solves the formula coefficient so that Altitude
// reproduces observedAlt (degrees) at observedMins.
func Coefficient(observedAlt, observedMins float64, riseMins, setMins int) (float64, error) {
	span := float64(setMins - riseMins)
	if span == 0 {
		return 0, ErrDegenerateSample
	}
	s := math.Sin(math.Pi * (observedMins - float64(riseMins)) / span)
	if math.Abs(s) < minSampleSine {
		return 0, ErrDegenerateSample
	}
	return observedAlt / s, nil
}

// maxCoefficient bounds a back-solved peak altitude to the zenith.
const maxCoefficient = 90.0

// Calibrate builds a reference from a rise/set window and one altitude
// sample taken at a clock minute. A degenerate sample falls back to
// fallbackCoef; the result is bounded to ±90°.
func Calibrate(riseMins, setMins int, observedAlt, observedMins, fallbackCoef float64) CelestialReference {
	ref := CelestialReference{RiseMins: riseMins, SetMins: setMins, Coefficient: fallbackCoef}
	if coef, err := Coefficient(observedAlt, ref.Unwrap(observedMins), riseMins, setMins); err == nil {
		ref.Coefficient = math.Max(-maxCoefficient, math.Min(maxCoefficient, coef))
	}
	return ref
}
