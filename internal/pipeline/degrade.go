// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"log/slog"
)

// FetchWithDegradation asks fetcher for the full text of ids. When the
// fetch fails it drops the last (lowest-ranked) id and tries again, until
// a prefix of ids succeeds or nothing is left. The returned texts belong
// to ids[:len(texts)]. Only cancellation of ctx is reported as an error.
func FetchWithDegradation(ctx context.Context, fetcher ArchiveFetcher, ids []string) ([]string, error) {
	return fetchWithDegradation(ctx, fetcher, ids, nil, nil)
}

// fetchWithDegradation is FetchWithDegradation with an onShrink hook
// called once per dropped id.
func fetchWithDegradation(ctx context.Context, fetcher ArchiveFetcher, ids []string, log *slog.Logger, onShrink func()) ([]string, error) {
	if fetcher == nil {
		return nil, nil
	}
	for n := len(ids); n > 0; n-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		texts, err := fetcher.FullText(ctx, ids[:n])
		if err == nil && len(texts) == n {
			return texts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if log != nil {
			log.Warn("full text fetch failed, narrowing", "requested", n, "dropped", ids[n-1], "error", err)
		}
		if onShrink != nil {
			onShrink()
		}
	}
	return nil, nil
}
