// Package upstream handles outbound traffic to the scraped third-party
// sites: an authenticated rotating proxy pool and the Fetcher interface
// behind which the site-specific normalization lives.
package upstream

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Proxy is one outbound proxy endpoint from the pool file.
type Proxy struct {
	Host     string
	Port     string
	Username string
	Password string
}

// URL renders the proxy as an http proxy URL with basic credentials.
func (p Proxy) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.Host + ":" + p.Port,
	}
}

func (p Proxy) String() string {
	return p.Host + ":" + p.Port
}

// Pool is a file-backed list of outbound proxies in host:port:user:pass
// form. Failing proxies are removed from the file so restarts do not retry
// known-dead endpoints.
type Pool struct {
	mu   sync.Mutex
	path string
}

// NewPool creates a pool backed by the file at path. The file may be absent;
// an absent or empty file means direct connections.
func NewPool(path string) *Pool {
	return &Pool{path: path}
}

// List returns the proxies currently in the pool file, skipping lines that
// do not parse.
func (p *Pool) List() []Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readLocked()
}

// Remove deletes a proxy from the pool file.
func (p *Pool) Remove(bad Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.readLocked()
	kept := make([]string, 0, len(current))
	for _, proxy := range current {
		if proxy == bad {
			continue
		}
		kept = append(kept, fmt.Sprintf("%s:%s:%s:%s", proxy.Host, proxy.Port, proxy.Username, proxy.Password))
	}
	content := strings.Join(kept, "\n")
	if content != "" {
		content += "\n"
	}
	if errWrite := os.WriteFile(p.path, []byte(content), 0644); errWrite != nil {
		log.WithError(errWrite).Warn("upstream: rewrite proxy pool failed")
	}
}

func (p *Pool) readLocked() []Proxy {
	data, errRead := os.ReadFile(p.path)
	if errRead != nil {
		return nil
	}
	var proxies []Proxy
	for _, line := range strings.Split(string(data), "\n") {
		proxy, ok := parseProxyLine(line)
		if !ok {
			continue
		}
		proxies = append(proxies, proxy)
	}
	return proxies
}

// parseProxyLine parses one host:port:user:pass line.
func parseProxyLine(line string) (Proxy, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Proxy{}, false
	}
	parts := strings.Split(line, ":")
	if len(parts) != 4 {
		return Proxy{}, false
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return Proxy{}, false
		}
	}
	return Proxy{
		Host:     strings.TrimSpace(parts[0]),
		Port:     strings.TrimSpace(parts[1]),
		Username: strings.TrimSpace(parts[2]),
		Password: strings.TrimSpace(parts[3]),
	}, true
}
