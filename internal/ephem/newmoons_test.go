package ephem

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-rise/internal/astro"
)

const usnoBody = `{
  "apiversion": "4.0.1",
  "phasedata": [
    {"day": 11, "month": 1, "phase": "New Moon", "time": "11:57", "year": 2024},
    {"day": 18, "month": 1, "phase": "First Quarter", "time": "03:52", "year": 2024},
    {"day": 25, "month": 1, "phase": "Full Moon", "time": "17:54", "year": 2024},
    {"day": 9, "month": 2, "phase": "New Moon", "time": "22:59", "year": 2024}
  ],
  "year": 2024
}`

func TestParseUSNOPhases(t *testing.T) {
	got, err := ParseUSNOPhases([]byte(usnoBody))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 11, 11, 57, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2024, 2, 9, 22, 59, 0, 0, time.UTC), got[1])
}

func TestParseUSNOPhases_Invalid(t *testing.T) {
	_, err := ParseUSNOPhases([]byte(`{"error": true}`))
	assert.Error(t, err)

	_, err = ParseUSNOPhases([]byte(`{"phasedata":[{"phase":"New Moon","time":"-:-"}]}`))
	assert.Error(t, err)
}

func TestUSNOPhases_CoversThreeYears(t *testing.T) {
	var years []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		y := r.URL.Query().Get("year")
		years = append(years, y)
		fmt.Fprintf(w, `{"phasedata":[
			{"day":15,"month":1,"phase":"New Moon","time":"00:00","year":%[1]s},
			{"day":15,"month":7,"phase":"New Moon","time":"12:30","year":%[1]s}
		]}`, y)
	}))
	defer srv.Close()

	table, err := NewUSNOPhases(WithURL(srv.URL)).NewMoons(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023", "2024", "2025"}, years)
	assert.Equal(t, 2024, table.Year)
	assert.Equal(t, astro.SourceRemote, table.Source)
	require.Len(t, table.Epochs, 6)
	assert.NoError(t, table.Validate())
}

func TestLocalNewMoons(t *testing.T) {
	table, err := NewLocalNewMoons().NewMoons(context.Background(), 2024)
	require.NoError(t, err)
	require.NoError(t, table.Validate())

	assert.Equal(t, 2024, table.Year)
	assert.GreaterOrEqual(t, len(table.Epochs), 36)
	assert.LessOrEqual(t, len(table.Epochs), 38)

	first, last := table.Epochs[0], table.Epochs[len(table.Epochs)-1]
	assert.Equal(t, 2023, first.Year())
	assert.Equal(t, 2025, last.Year())

	for i := 1; i < len(table.Epochs); i++ {
		gap := table.Epochs[i].Sub(table.Epochs[i-1]).Hours() / 24
		assert.True(t, gap > 29 && gap < 30, "gap %d = %.2f days", i, gap)
	}

	// 2024-01-11 11:57 UTC.
	want := time.Date(2024, 1, 11, 11, 57, 0, 0, time.UTC)
	var found bool
	for _, e := range table.Epochs {
		if d := e.Sub(want); d > -5*time.Minute && d < 5*time.Minute {
			found = true
		}
	}
	assert.True(t, found, "new moon of 2024-01-11 missing")

	// The table brackets any instant of the year.
	_, err = astro.Phase(table, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestNormalizeEpochs(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(29 * 24 * time.Hour)
	got := normalizeEpochs([]time.Time{b, a, a.Add(time.Hour)})
	assert.Equal(t, []time.Time{a, b}, got)
}
