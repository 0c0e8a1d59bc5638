package convert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/ecgset/internal/logging"
)

// DownloadError indicates an archive fetch failure: either a transport
// error or a non-2xx response.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DownloadError struct {
	URL        string
	StatusCode int // 0 on transport failure
	cause      error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.cause)
}

func (e *DownloadError) Unwrap() error { return e.cause }

// FetchOptions configures Fetch.
type FetchOptions struct {
	// Force re-downloads even when the destination already exists.
	Force bool
	// Client overrides the HTTP client. Nil uses http.DefaultClient.
	Client *http.Client
	// Logger receives progress events. Nil disables logging.
	Logger *logging.Logger
}

// Fetch retrieves the archive at url into destPath, creating parent
// directories as needed. If the destination already exists and Force is
// unset the fetch is skipped with a warning; this makes re-runs
// idempotent.
//
// The body streams to a temp file that is renamed into place on success,
// so an interrupted download never leaves a plausible-looking partial
// archive behind.
func Fetch(ctx context.Context, url, destPath string, optFns ...func(*FetchOptions)) error {
	o := FetchOptions{
		Client: http.DefaultClient,
		Logger: logging.Noop(),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	if _, err := os.Stat(destPath); err == nil && !o.Force {
		o.Logger.WarnContext(ctx, "archive already exists, skipping download; delete it or set force to re-fetch",
			"path", destPath,
		)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, cause: err}
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	pw := &progressWriter{
		ctx:    ctx,
		logger: o.Logger,
		url:    url,
		total:  resp.ContentLength,
		// One progress line per second at most, however fast the link is.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	if _, err := io.Copy(io.MultiWriter(tmp, pw), resp.Body); err != nil {
		return &DownloadError{URL: url, cause: err}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		return err
	}
	tmpName = ""

	o.Logger.InfoContext(ctx, "download completed", "url", url, "path", destPath, "bytes", pw.written)
	return nil
}

// progressWriter counts bytes and emits throttled progress logs.
type progressWriter struct {
	ctx     context.Context
	logger  *logging.Logger
	url     string
	total   int64
	written int64
	limiter *rate.Limiter
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.limiter.Allow() {
		if p.total > 0 {
			p.logger.InfoContext(p.ctx, "downloading",
				"url", p.url,
				"bytes", p.written,
				"total", p.total,
				"percent", fmt.Sprintf("%.1f", float64(p.written)*100/float64(p.total)),
			)
		} else {
			p.logger.InfoContext(p.ctx, "downloading", "url", p.url, "bytes", p.written)
		}
	}
	return len(b), nil
}
