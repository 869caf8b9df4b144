package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/version"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// URLSource downloads a remote edge list once and serves later passes from memory
type URLSource struct {
	URL     string
	Timeout time.Duration

	mu   sync.Mutex
	body []byte
}

// NewURLSource creates a source for a remote edge list
func NewURLSource(url string, timeout time.Duration) *URLSource {
	return &URLSource{URL: url, Timeout: timeout}
}

// Open returns the downloaded body, fetching it on first use
func (u *URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.body == nil {
		body, err := u.fetch(ctx)
		if err != nil {
			return nil, err
		}
		u.body = body
	}

	return maybeGunzip(io.NopCloser(bytes.NewReader(u.body)))
}

func (u *URLSource) String() string {
	return u.URL
}

// fetch performs a single synchronous download through a colly collector
func (u *URLSource) fetch(ctx context.Context) ([]byte, error) {
	collector := colly.NewCollector(
		colly.MaxBodySize(0),
		colly.StdlibContext(ctx),
		colly.UserAgent("graph-weaver/"+version.Version),
	)
	if u.Timeout > 0 {
		collector.SetRequestTimeout(u.Timeout)
	}

	var body []byte
	var received bool
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		received = true
		logrus.Infof("Fetched %s (status=%d, %s)", r.Request.URL, r.StatusCode, humanize.Bytes(uint64(len(r.Body))))
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil {
			fetchErr = fmt.Errorf("failed to fetch %s (status %d): %w", r.Request.URL, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("failed to fetch %s: %w", u.URL, err)
	})

	startTime := time.Now()
	visitErr := collector.Visit(u.URL)
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", u.URL, visitErr)
	}
	if !received {
		return nil, fmt.Errorf("no response from %s", u.URL)
	}
	if body == nil {
		body = []byte{}
	}

	logrus.Debugf("Download of %s took %v", u.URL, time.Since(startTime))
	return body, nil
}
