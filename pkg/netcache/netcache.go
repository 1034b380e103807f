// Package netcache keeps local copies of remote variable files. Cached copies
// are revalidated with ETag and Last-Modified on every use and served as is
// when the server cannot be reached.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Cache provides a simple persistent HTTP cache with ETag/Last-Modified support.
type Cache struct {
	Dir    string
	Client *http.Client
	// Retries is the number of attempts for a download that has no cached
	// copy to fall back on.
	Retries int
	// Backoff is the wait before the second attempt. It doubles after
	// every failure.
	Backoff time.Duration
	Logger  *slog.Logger
}

// New returns a new Cache with a reasonable default HTTP client.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: 3,
		Backoff: time.Second,
		Logger:  slog.Default(),
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	// Filename is the name the server suggested, used to pick a decoder.
	Filename string `json:"filename,omitempty"`
	DataFile string `json:"data_file"`
}

// Entry is a cached download.
type Entry struct {
	Path      string
	Filename  string
	FromCache bool
}

// Get fetches url into the cache and returns the local copy. A valid cached
// copy is reused without downloading.
func (c *Cache) Get(ctx context.Context, url string) (Entry, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")

	if m, ok := c.readMeta(mpath, url); ok {
		cached := Entry{Path: filepath.Join(c.Dir, m.DataFile), Filename: m.Filename, FromCache: true}
		e, notModified, err := c.fetch(ctx, url, key, &m)
		switch {
		case err == nil && notModified:
			return cached, nil
		case err == nil:
			return e, nil
		}
		c.logger().Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return cached, nil
	}

	var lastErr error
	wait := c.Backoff
	for attempt := 0; attempt < max(c.Retries, 1); attempt++ {
		if attempt > 0 {
			c.logger().Debug("retrying download", "url", url, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return Entry{}, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		e, _, err := c.fetch(ctx, url, key, nil)
		if err == nil {
			return e, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return Entry{}, fmt.Errorf("fetching %s: %w", url, lastErr)
}

// Read returns the content of url, from the cache when it is still valid.
func (c *Cache) Read(ctx context.Context, url string) ([]byte, Entry, error) {
	e, err := c.Get(ctx, url)
	if err != nil {
		return nil, Entry{}, err
	}
	b, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("reading cached %s: %w", url, err)
	}
	return b, e, nil
}

// statusError is a response the server gave instead of the content.
type statusError struct {
	code int
}

func (e statusError) Error() string { return fmt.Sprintf("HTTP %d", e.code) }

func retryable(err error) bool {
	if se, ok := err.(statusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// fetch downloads url. With prev set the request is conditional and
// notModified reports that the cached copy is still current.
func (c *Cache) fetch(ctx context.Context, url, key string, prev *meta) (e Entry, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, false, err
	}
	if prev != nil {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return Entry{}, false, err
	}
	defer resp.Body.Close()

	if prev != nil && resp.StatusCode == http.StatusNotModified {
		return Entry{}, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Entry{}, false, statusError{code: resp.StatusCode}
	}

	dataFile := key + ".data"
	p := filepath.Join(c.Dir, dataFile)
	if err := streamToFile(resp.Body, p, 0o644); err != nil {
		return Entry{}, false, err
	}
	m := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Filename:     contentFilename(url, resp),
		DataFile:     dataFile,
	}
	if err := writeMeta(filepath.Join(c.Dir, key+".json"), m); err != nil {
		return Entry{}, false, err
	}
	c.logger().Debug("downloaded", "url", url, "path", p)
	return Entry{Path: p, Filename: m.Filename}, false, nil
}

func (c *Cache) readMeta(mpath, url string) (meta, bool) {
	b, err := os.ReadFile(mpath)
	if err != nil {
		return meta{}, false
	}
	var m meta
	if err := json.Unmarshal(b, &m); err != nil || m.URL != url || m.DataFile == "" {
		return meta{}, false
	}
	if !fileExists(filepath.Join(c.Dir, m.DataFile)) {
		return meta{}, false
	}
	return m, true
}

func (c *Cache) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func streamToFile(r io.Reader, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeMeta(p string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// contentFilename derives a filename from Content-Disposition or the URL
// path.
func contentFilename(url string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	if name := path.Base(resp.Request.URL.Path); name != "/" && name != "." {
		return name
	}
	return "download"
}
