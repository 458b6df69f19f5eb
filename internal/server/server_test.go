// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/icite/internal/citegraph"
	"github.com/pdiddy/icite/internal/embedding"
	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/pkg/types"
)

type fakeService struct {
	err   error
	delay time.Duration

	gotQuery     string
	gotTopK      int
	gotSeeds     []string
	gotMaxPapers int
}

func (f *fakeService) wait() error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.err
}

func (f *fakeService) FindInitialCandidates(_ context.Context, query string, topK int) ([]types.Paper, error) {
	f.gotQuery, f.gotTopK = query, topK
	if err := f.wait(); err != nil {
		return nil, err
	}
	return []types.Paper{{Identifier: "P1", Title: "Attention", Similarity: types.Float(0.9)}}, nil
}

func (f *fakeService) FindRelatedPapers(_ context.Context, query string, seeds []string, opts ...pipeline.RelatedOption) (types.Related, error) {
	f.gotQuery, f.gotSeeds = query, seeds
	var o citegraph.Options
	for _, opt := range opts {
		opt(&o)
	}
	f.gotMaxPapers = o.MaxPapers
	if err := f.wait(); err != nil {
		return types.Related{}, err
	}
	return types.Related{
		Papers:    []types.Paper{{Identifier: "P2"}},
		UsedEdges: []types.CitationEdge{{Source: "P2", CitedBy: "P1"}},
	}, nil
}

func (f *fakeService) Ask(_ context.Context, question string) (types.Answer, error) {
	f.gotQuery = question
	if err := f.wait(); err != nil {
		return types.Answer{}, err
	}
	return types.Answer{Text: "See [P1].", Sources: []types.Paper{{Identifier: "P1"}}, FullTextCount: 1}, nil
}

func (f *fakeService) MatchTitles(_ context.Context, substring string) ([]types.Paper, error) {
	f.gotQuery = substring
	if err := f.wait(); err != nil {
		return nil, err
	}
	return nil, nil
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestCandidates(t *testing.T) {
	svc := &fakeService{}
	w := do(t, New(svc), http.MethodPost, "/v1/candidates", `{"query":"attention","top_k":5}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PapersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Papers, 1)
	assert.Equal(t, "P1", resp.Papers[0].Identifier)
	assert.Equal(t, "attention", svc.gotQuery)
	assert.Equal(t, 5, svc.gotTopK)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRelated(t *testing.T) {
	svc := &fakeService{}
	w := do(t, New(svc), http.MethodPost, "/v1/related", `{"query":"q","seeds":["P1"],"max_papers":7}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "papers")
	assert.Contains(t, resp, "used_edges")
	assert.Equal(t, []string{"P1"}, svc.gotSeeds)
	assert.Equal(t, 7, svc.gotMaxPapers)
	assert.Contains(t, w.Body.String(), `"source_paper":"P2"`)
}

func TestAsk(t *testing.T) {
	svc := &fakeService{}
	w := do(t, New(svc), http.MethodPost, "/v1/ask", `{"question":"what is attention?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "See [P1].", resp.Text)
	assert.Equal(t, 1, resp.FullTextCount)
}

func TestPapers(t *testing.T) {
	svc := &fakeService{}
	w := do(t, New(svc), http.MethodGet, "/v1/papers?match=graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"papers":[]}`, w.Body.String())
	assert.Equal(t, "graph", svc.gotQuery)
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "malformed json", method: http.MethodPost, path: "/v1/candidates", body: `{`},
		{name: "blank query", method: http.MethodPost, path: "/v1/candidates", body: `{"query":"  "}`},
		{name: "related without seeds", method: http.MethodPost, path: "/v1/related", body: `{"query":"q"}`},
		{name: "blank question", method: http.MethodPost, path: "/v1/ask", body: `{"question":""}`},
		{name: "missing match", method: http.MethodGet, path: "/v1/papers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, New(&fakeService{}), tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no results", err: pipeline.ErrNoResults, want: http.StatusNotFound},
		{name: "collaborator", err: &pipeline.CollaboratorError{Collaborator: "embedder", Err: errors.New("down")}, want: http.StatusBadGateway},
		{name: "empty input", err: &pipeline.CollaboratorError{Collaborator: "embedder", Err: embedding.ErrEmptyInput}, want: http.StatusBadRequest},
		{name: "timeout", err: pipeline.ErrTimeout, want: http.StatusGatewayTimeout},
		{name: "no chat", err: pipeline.ErrNoChat, want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, New(&fakeService{err: tt.err}), http.MethodPost, "/v1/candidates", `{"query":"q"}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTimeout(t *testing.T) {
	svc := &fakeService{delay: 200 * time.Millisecond}
	w := do(t, New(svc, WithTimeout(10*time.Millisecond)), http.MethodPost, "/v1/ask", `{"question":"q"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRequestIDPreserved(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	New(&fakeService{}).Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "icite_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	w := do(t, New(&fakeService{}, WithGatherer(reg)), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "icite_test_total 1")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(&fakeService{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
