package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualSkipsVolatileFields(t *testing.T) {
	a := []byte(`{"data":{"accessState":"CAN_ENTER","evaluatedAt":"2026-01-01T10:00:00Z","soldSeats":34}}`)
	b := []byte(`{"data":{"soldSeats":34.0,"accessState":"CAN_ENTER","evaluatedAt":"2026-01-01T10:00:05Z"}}`)
	assert.True(t, bodiesEqual(a, b, nil))

	c := []byte(`{"data":{"accessState":"NEEDS_PURCHASE","evaluatedAt":"2026-01-01T10:00:00Z","soldSeats":34}}`)
	assert.False(t, bodiesEqual(a, c, nil))
}

func TestBodiesEqualHonoursTargetIgnores(t *testing.T) {
	a := []byte(`{"data":[{"id":"ce-1","startsAt":"2026-01-01T10:00:00Z"}]}`)
	b := []byte(`{"data":[{"id":"ce-1","startsAt":"2026-01-02T10:00:00Z"}]}`)
	assert.False(t, bodiesEqual(a, b, nil))
	assert.True(t, bodiesEqual(a, b, []string{"startsAt"}))
}

func TestCompareTargetFlagsStatusDrift(t *testing.T) {
	baseline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"isSoldOut":false}}`))
	}))
	defer baseline.Close()
	candidate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"EVENT_NOT_FOUND"}}`))
	}))
	defer candidate.Close()

	comp := compareTarget(http.DefaultClient, baseline.URL, candidate.URL, target{Path: "class-events/ce-1/availability", Critical: true, Bearer: "tkn"})
	require.NoError(t, comp.Error)
	assert.Equal(t, http.StatusOK, comp.BaselineStatus)
	assert.Equal(t, http.StatusNotFound, comp.CandidateStatus)
	assert.False(t, comp.StatusMatch)
	assert.True(t, comp.drifted())

	var out bytes.Buffer
	printReport(&out, []comparison{comp})
	assert.Contains(t, out.String(), "[DIFF] GET class-events/ce-1/availability")
}

func TestCompareTargetUnreachable(t *testing.T) {
	comp := compareTarget(http.DefaultClient, "http://127.0.0.1:1", "http://127.0.0.1:1", target{Path: "/health"})
	assert.Error(t, comp.Error)
	assert.True(t, comp.drifted())
}
