package ephem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-rise/internal/astro"
)

var (
	newYork = astro.Observer{LatDeg: 40.7128, LonDeg: -74.006, Name: "New York"}
	edt     = time.FixedZone("EDT", -4*3600)
)

func TestLocalAstronomy_Solstice(t *testing.T) {
	day := time.Date(2024, 6, 21, 9, 0, 0, 0, edt)
	snap, err := NewLocalAstronomy().Snapshot(context.Background(), day, newYork)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-21", snap.Date)
	assert.Equal(t, astro.SourceLocal, snap.Source)

	// Sunrise about 5:25, sunset about 20:31 local time.
	assert.InDelta(t, 325, snap.Sun.RiseMins, 10)
	assert.InDelta(t, 1231, snap.Sun.SetMins, 10)
	// Noon altitude is 90 - latitude + obliquity.
	assert.InDelta(t, 72.7, snap.Sun.Coefficient, 1.5)

	require.NoError(t, snap.Moon.Validate())
	assert.Greater(t, snap.Moon.Coefficient, 0.0)
	assert.LessOrEqual(t, snap.Moon.Coefficient, 90.0)
}

func TestLocalAstronomy_MoonTimesBracketHorizon(t *testing.T) {
	midnight := time.Date(2024, 6, 21, 0, 0, 0, 0, edt)
	rise, set, ok := moonTimes(midnight, newYork)
	require.True(t, ok, "moon should rise on 2024-06-21 in New York")

	assert.True(t, rise >= 0 && rise < astro.MinutesPerDay, "rise %d", rise)
	assert.Greater(t, set, rise)

	at := func(mins int) time.Time { return midnight.Add(time.Duration(mins) * time.Minute) }
	assert.Less(t, moonAltitude(at(rise-5), newYork), 0.0)
	assert.Greater(t, moonAltitude(at(rise+5), newYork), 0.0)
	assert.Greater(t, moonAltitude(at(set-5), newYork), 0.0)
	assert.Less(t, moonAltitude(at(set+5), newYork), 0.0)
}

func TestLocalAstronomy_MidnightSun(t *testing.T) {
	tromso := astro.Observer{LatDeg: 69.65, LonDeg: 18.96}
	day := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)

	_, err := NewLocalAstronomy().Snapshot(context.Background(), day, tromso)
	assert.True(t, errors.Is(err, ErrNoSunEvent), "err = %v", err)
}

func TestLocalAstronomy_InvalidObserver(t *testing.T) {
	tests := []struct {
		name string
		obs  astro.Observer
	}{
		{"out of range", astro.Observer{LatDeg: 123}},
		{"unset", astro.Observer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := time.Date(2024, 6, 21, 9, 0, 0, 0, edt)
			_, err := NewLocalAstronomy().Snapshot(context.Background(), day, tt.obs)
			assert.True(t, errors.Is(err, ErrNoLocation), "err = %v", err)
		})
	}
}
