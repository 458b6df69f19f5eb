// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive retrieves the full text of papers from arXiv. The text
// is the paper's TeX source: every .tex member of the e-print archive
// concatenated in archive order.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/icite/internal/httputil"
)

// ePrintBase is the arXiv source endpoint. Package-level var for test
// substitution.
var ePrintBase = "https://arxiv.org/e-print/"

const (
	// DefaultRateInterval follows the arXiv guidance of one request every three seconds.
	DefaultRateInterval = 3 * time.Second

	// DefaultTimeout bounds a single e-print download.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies icite to arXiv.
	DefaultUserAgent = "icite/0.1 (+https://github.com/pdiddy/icite)"

	// maxSourceBytes caps the decompressed size of one e-print.
	maxSourceBytes = 64 << 20
)

var (
	// ErrNotArxiv is returned for identifiers that do not name an arXiv paper.
	ErrNotArxiv = errors.New("not an arXiv identifier")

	// ErrNoTeX is returned when an e-print carries no TeX source, for
	// example a PDF-only submission.
	ErrNoTeX = errors.New("no TeX source in e-print")

	// ErrTooLarge is returned when an e-print exceeds maxSourceBytes.
	ErrTooLarge = errors.New("e-print source too large")
)

// Arxiv fetches and caches TeX sources from arXiv. Requests are paced by
// a shared limiter, so one Arxiv should serve the whole process.
type Arxiv struct {
	client   *httputil.PacedClient
	cacheDir string
	logger   *slog.Logger

	httpClient *http.Client
	interval   time.Duration
	userAgent  string
}

// Option configures an Arxiv fetcher.
type Option func(*Arxiv)

// WithCacheDir stores combined TeX under dir. Empty disables caching.
func WithCacheDir(dir string) Option {
	return func(a *Arxiv) { a.cacheDir = dir }
}

// WithLogger sets the logger for download diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arxiv) { a.logger = l }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Arxiv) { a.httpClient = c }
}

// WithRateInterval sets the minimum spacing between requests. Zero or
// less disables pacing.
func WithRateInterval(d time.Duration) Option {
	return func(a *Arxiv) { a.interval = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(a *Arxiv) { a.userAgent = ua }
}

// New returns an arXiv fetcher.
func New(opts ...Option) *Arxiv {
	a := &Arxiv{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		interval:   DefaultRateInterval,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = httputil.NewPacedClient(a.httpClient, a.interval, a.userAgent)
	return a
}

// FullText returns the TeX source of each paper in ids, in order. It is
// all-or-error: the first failure aborts the call and no partial result
// is returned.
func (a *Arxiv) FullText(ctx context.Context, ids []string) ([]string, error) {
	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		text, err := a.fetchOne(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", id, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (a *Arxiv) fetchOne(ctx context.Context, identifier string) (string, error) {
	id, ok := ArxivID(identifier)
	if !ok {
		return "", ErrNotArxiv
	}

	if text, ok := a.readCache(id); ok {
		a.logger.Debug("full text cache hit", "arxiv_id", id)
		return text, nil
	}

	start := time.Now()
	resp, err := a.client.Get(ctx, ePrintBase+id)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	text, err := ExtractTeX(resp.Body)
	if err != nil {
		return "", err
	}
	a.logger.Debug("downloaded e-print",
		"arxiv_id", id, "bytes", len(text), "elapsed", time.Since(start))

	if err := a.writeCache(id, text); err != nil {
		a.logger.Warn("could not cache full text", "arxiv_id", id, "error", err)
	}
	return text, nil
}

func (a *Arxiv) cachePath(id string) string {
	return filepath.Join(a.cacheDir, Slug(id)+".tex")
}

func (a *Arxiv) readCache(id string) (string, bool) {
	if a.cacheDir == "" {
		return "", false
	}
	data, err := os.ReadFile(a.cachePath(id))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// writeCache stores text through a temporary file so readers never see a
// partial entry.
func (a *Arxiv) writeCache(id, text string) error {
	if a.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(a.cacheDir, ".eprint-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.WriteString(text)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache entry: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, a.cachePath(id)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ExtractTeX decodes an arXiv e-print body. arXiv serves a gzipped tar of
// the submission, a gzipped single TeX file, or a bare PDF. For a tar,
// every regular member ending in .tex is appended in archive order, each
// followed by a newline.
func ExtractTeX(r io.Reader) (string, error) {
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}

	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("opening gzip stream: %w", err)
		}
		data, err = readLimited(zr)
		zr.Close()
		if err != nil {
			return "", fmt.Errorf("decompressing e-print: %w", err)
		}
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "", ErrNoTeX
	}

	tr := tar.NewReader(bytes.NewReader(data))
	hdr, err := tr.Next()
	if err != nil {
		// Not a tar archive: a single-file submission.
		if len(bytes.TrimSpace(data)) == 0 || bytes.IndexByte(data, 0) >= 0 {
			return "", ErrNoTeX
		}
		return string(data), nil
	}

	var (
		out   strings.Builder
		found bool
	)
	for ; err == nil; hdr, err = tr.Next() {
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".tex") {
			continue
		}
		if _, err := io.Copy(&out, tr); err != nil {
			return "", fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		out.WriteByte('\n')
		found = true
	}
	if !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading tar: %w", err)
	}
	if !found {
		return "", ErrNoTeX
	}
	return out.String(), nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSourceBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
