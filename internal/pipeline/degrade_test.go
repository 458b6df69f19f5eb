// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithDegradation(t *testing.T) {
	tests := []struct {
		name         string
		ids          []string
		bad          map[string]bool
		wantTexts    int
		wantRequests [][]string
	}{
		{
			name:         "all succeed",
			ids:          []string{"A", "B", "C"},
			wantTexts:    3,
			wantRequests: [][]string{{"A", "B", "C"}},
		},
		{
			name:         "drops lowest ranked first",
			ids:          []string{"A", "B", "C"},
			bad:          map[string]bool{"C": true},
			wantTexts:    2,
			wantRequests: [][]string{{"A", "B", "C"}, {"A", "B"}},
		},
		{
			name:         "middle failure keeps only the head",
			ids:          []string{"A", "B", "C"},
			bad:          map[string]bool{"B": true},
			wantTexts:    1,
			wantRequests: [][]string{{"A", "B", "C"}, {"A", "B"}, {"A"}},
		},
		{
			name:         "nothing succeeds",
			ids:          []string{"A", "B"},
			bad:          map[string]bool{"A": true},
			wantTexts:    0,
			wantRequests: [][]string{{"A", "B"}, {"A"}},
		},
		{
			name:      "empty request",
			ids:       nil,
			wantTexts: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeArchive{bad: tt.bad}
			texts, err := FetchWithDegradation(context.Background(), f, tt.ids)
			require.NoError(t, err)
			assert.Len(t, texts, tt.wantTexts)
			for i, text := range texts {
				assert.Equal(t, "full text of "+tt.ids[i], text)
			}
			assert.Equal(t, tt.wantRequests, f.requests)
		})
	}
}

func TestFetchWithDegradationNilFetcher(t *testing.T) {
	texts, err := FetchWithDegradation(context.Background(), nil, []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestFetchWithDegradationCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeArchive{}
	_, err := FetchWithDegradation(ctx, f, []string{"A", "B"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.requests)
}

func TestRace(t *testing.T) {
	t.Run("result before timeout", func(t *testing.T) {
		v, err := Race(context.Background(), time.Second, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("timeout discards result", func(t *testing.T) {
		release := make(chan struct{})
		finished := make(chan struct{})
		_, err := Race(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
			<-release
			close(finished)
			return 1, ctx.Err()
		})
		assert.ErrorIs(t, err, ErrTimeout)

		// The work is not interrupted and runs to completion.
		close(release)
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("work did not finish")
		}
	})

	t.Run("cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		block := make(chan struct{})
		defer close(block)
		go cancel()
		_, err := Race(ctx, 0, func(context.Context) (string, error) {
			<-block
			return "", nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
