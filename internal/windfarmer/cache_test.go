package windfarmer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

func TestCacheKey(t *testing.T) {
	a, err := CacheKey(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	b, err := CacheKey(map[string]any{"a": "x", "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := CacheKey(map[string]any{"a": "y", "b": 1})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	raw, err := CacheKey([]byte(`{"a":"x","b":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, raw)

	_, err = CacheKey(map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestResultCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewResultCache(time.Hour)
	c.now = func() time.Time { return now }

	rs := &model.AepResultSet{}
	c.Set("k", rs)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, rs, got)

	now = now.Add(2 * time.Hour)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	c.Set("a", rs)
	now = now.Add(2 * time.Hour)
	c.Set("b", rs)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_NilIsDisabled(t *testing.T) {
	c := NewResultCache(0)
	assert.Nil(t, c)
	c.Set("k", &model.AepResultSet{})
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()
}

func TestCalculate_CachesSuccessfulResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"try again"}`)
			return
		}
		_, _ = io.WriteString(w, `{"windFarmAepOutputs":[{"windFarmName":"A","fullAnnualEnergyYield_MWh_per_year":5}]}`)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, AccessKey: "k", HTTPClient: srv.Client(), SyncTurbineLimit: 20,
		Cache: NewResultCache(time.Hour), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	payload := map[string]any{"windFarms": []any{"A"}}

	_, err = c.Calculate(context.Background(), payload, 3)
	require.Error(t, err)

	first, err := c.Calculate(context.Background(), payload, 3)
	require.NoError(t, err)
	second, err := c.Calculate(context.Background(), payload, 3)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(2), calls.Load())

	_, err = c.Calculate(context.Background(), map[string]any{"windFarms": []any{"B"}}, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(0)
	assert.Equal(t, defaultHTTPTimeout, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 16, tr.MaxIdleConnsPerHost)

	assert.Equal(t, time.Minute, NewHTTPClient(time.Minute).Timeout)
}
