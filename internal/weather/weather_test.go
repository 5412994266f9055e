package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{"weather":[{"id":803,"main":"Clouds","description":"broken clouds"}],"main":{"temp":71.6,"humidity":40}}`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleBody), "imperial")
	require.NoError(t, err)
	assert.InDelta(t, 71.6, c.TempF, 1e-9)
	assert.Equal(t, "Clouds", c.Summary)
	assert.Equal(t, "71°F Clouds", c.String())
}

func TestParse_Metric(t *testing.T) {
	c, err := Parse([]byte(`{"main":{"temp":20}}`), "metric")
	require.NoError(t, err)
	assert.InDelta(t, 68, c.TempF, 1e-9)
	assert.Equal(t, "68°F", c.String())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`not json`), "imperial")
	assert.Error(t, err)

	_, err = Parse([]byte(`{"weather":[]}`), "imperial")
	assert.Error(t, err)
}

func TestClient_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "40.7128", r.URL.Query().Get("lat"))
		assert.Equal(t, "-74.0060", r.URL.Query().Get("lon"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := NewClient(WithURL(srv.URL), WithAPIKey("secret"))
	cond, err := c.Current(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)
	assert.Equal(t, "Clouds", cond.Summary)
	assert.False(t, cond.FetchedAt.IsZero())
}

func TestClient_Errors(t *testing.T) {
	_, err := NewClient().Current(context.Background(), 0, 0)
	assert.True(t, errors.Is(err, ErrNoAPIKey))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err = NewClient(WithURL(srv.URL), WithAPIKey("bad")).Current(context.Background(), 0, 0)
	assert.Error(t, err)
}
