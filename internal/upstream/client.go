package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// browserUserAgent is sent on all upstream requests; the scraped sites
// reject obvious non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

const requestTimeout = 30 * time.Second

// ErrNoUsableProxy indicates every proxy in the pool failed.
var ErrNoUsableProxy = errors.New("upstream: no usable proxy")

// Client performs outbound GETs through the rotating proxy pool. The first
// working proxy serves the request; proxies that fail are removed from the
// pool and the next one is tried. An empty pool falls back to a direct
// connection.
type Client struct {
	pool *Pool
}

// NewClient constructs a Client over the given pool.
func NewClient(pool *Pool) *Client {
	return &Client{pool: pool}
}

// Get fetches url and returns the response body. Responses with a non-2xx
// status count as proxy failures.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	proxies := c.pool.List()
	if len(proxies) == 0 {
		return c.fetch(ctx, url, nil)
	}

	for _, proxy := range proxies {
		body, errFetch := c.fetch(ctx, url, &proxy)
		if errFetch == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(errFetch).Warnf("upstream: proxy %s failed, removing from pool", proxy)
		c.pool.Remove(proxy)
	}
	return nil, ErrNoUsableProxy
}

func (c *Client) fetch(ctx context.Context, url string, proxy *Proxy) ([]byte, error) {
	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy.URL())
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	}
	defer transport.CloseIdleConnections()

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if errReq != nil {
		return nil, fmt.Errorf("upstream: build request: %w", errReq)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, errDo := client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("upstream: request: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream: unexpected status %d", resp.StatusCode)
	}
	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("upstream: read body: %w", errRead)
	}
	return body, nil
}
