// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacedClient_Success(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := NewPacedClient(ts.Client(), 0, "icite-test/1.0")
	resp, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "icite-test/1.0", gotUA)
}

func TestPacedClient_RateLimitedNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewPacedClient(ts.Client(), 0, "")
	_, err := c.Get(context.Background(), ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPacedClient_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such paper"))
	}))
	defer ts.Close()

	c := NewPacedClient(ts.Client(), 0, "")
	_, err := c.Get(context.Background(), ts.URL)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Error(), "no such paper")
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestPacedClient_SpacesRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	interval := 50 * time.Millisecond
	c := NewPacedClient(ts.Client(), interval, "")

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := c.Get(context.Background(), ts.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	// The first request uses the initial burst token; two more wait.
	assert.GreaterOrEqual(t, time.Since(start), 2*interval-10*time.Millisecond)
}

func TestPacedClient_ContextCancelledWhileWaiting(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewPacedClient(ts.Client(), time.Hour, "")
	resp, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, ts.URL)
	assert.Error(t, err)
}
