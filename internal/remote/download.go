package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ProgressFunc receives the transfer completion in whole percent, 0-100
type ProgressFunc func(percent int)

// Download streams url into dest and reports progress as the body arrives.
// Progress is only reported when the server sends a Content-Length. A
// partial file is removed on failure.
func (c *Client) Download(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}

	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if resp != nil && resp.RawResponse != nil {
			resp.RawBody().Close()
		}
		return 0, fmt.Errorf("%w: download %s: %v", ErrNetwork, url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return 0, fmt.Errorf("%w: download %s: HTTP %d", ErrNetwork, url, resp.StatusCode())
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("create download file: %w", err)
	}

	var total int64 = -1
	if resp.RawResponse != nil {
		total = resp.RawResponse.ContentLength
	}
	counter := &progressWriter{total: total, report: progress, last: -1}

	written, err := io.Copy(out, io.TeeReader(body, counter))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return written, fmt.Errorf("%w: download %s: %v", ErrNetwork, url, err)
	}
	return written, nil
}

type progressWriter struct {
	total   int64
	written int64
	last    int
	report  ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.report == nil || p.total <= 0 {
		return len(b), nil
	}

	percent := int(p.written * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent != p.last {
		p.last = percent
		p.report(percent)
	}
	return len(b), nil
}
