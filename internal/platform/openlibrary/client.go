package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://openlibrary.org"

// Dump kinds published under /data.
const (
	DumpAuthors = "authors"
	DumpWorks   = "works"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration

	// Progress, when set, receives a copy of every downloaded byte. size is
	// -1 when the server sends no Content-Length.
	Progress func(size int64) io.Writer
}

func NewClient(baseURL, userAgent string, rps int, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		// Dumps are several GB, so there is no overall timeout. Cancel ctx instead.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		},
		userAgent:  userAgent,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// DumpURL returns the location of the latest dump of the given kind.
func (c *Client) DumpURL(kind string) string {
	return fmt.Sprintf("%s/data/ol_dump_%s_latest.txt.gz", c.baseURL, kind)
}

// DownloadDump fetches the latest dump of kind into dest and returns the
// number of bytes written. The file is written next to dest and renamed into
// place once complete, so dest never holds a partial dump.
func (c *Client) DownloadDump(ctx context.Context, kind, dest string) (int64, error) {
	if kind != DumpAuthors && kind != DumpWorks {
		return 0, fmt.Errorf("unknown dump kind %q", kind)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create dump dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := c.fetch(ctx, c.DumpURL(kind), tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("download %s dump: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("move dump into place: %w", err)
	}
	return n, nil
}

func (c *Client) fetch(ctx context.Context, url string, f *os.File) (int64, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * c.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			if err := rewind(f); err != nil {
				return 0, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		n, retry, err := c.get(ctx, url, f)
		if err == nil {
			return n, nil
		}
		if !retry || ctx.Err() != nil {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

// get performs one attempt. retry reports whether the failure is transient.
func (c *Client) get(ctx context.Context, url string, w io.Writer) (n int64, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return 0, resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}

	if c.Progress != nil {
		if pw := c.Progress(resp.ContentLength); pw != nil {
			w = io.MultiWriter(w, pw)
		}
	}
	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, !errors.Is(err, context.Canceled), fmt.Errorf("read body: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, true, fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	return n, false, nil
}

func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}
