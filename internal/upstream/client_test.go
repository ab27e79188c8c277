package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestClientDirectFetchWhenPoolEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.UserAgent(); ua != browserUserAgent {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient(NewPool(filepath.Join(t.TempDir(), "missing.txt")))
	body, errGet := client.Get(context.Background(), server.URL)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestClientDirectFetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(NewPool(filepath.Join(t.TempDir(), "missing.txt")))
	if _, errGet := client.Get(context.Background(), server.URL); errGet == nil {
		t.Fatalf("expected error for 403 response")
	}
}

func TestClientRemovesDeadProxies(t *testing.T) {
	// Both pool entries point at nothing routable, so the pool drains and
	// the request fails with ErrNoUsableProxy.
	path := writePoolFile(t, "127.0.0.1:1:user:pass\n127.0.0.1:2:user:pass\n")
	pool := NewPool(path)
	client := NewClient(pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, errGet := client.Get(ctx, "http://192.0.2.1/"); errGet != ErrNoUsableProxy {
		t.Fatalf("expected ErrNoUsableProxy, got %v", errGet)
	}
	if remaining := pool.List(); len(remaining) != 0 {
		t.Fatalf("expected drained pool, got %d proxies", len(remaining))
	}
}
