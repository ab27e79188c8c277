package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/cache"
)

// cacheWriter tees the response body so a successful response can be
// memoized after it is written.
type cacheWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *cacheWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves GET responses from redis when possible and stores
// fresh 200 responses off the request path. No-ops when the store has no
// redis backend.
func ResponseCache(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Enabled() || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cache.RequestKey(c.Request.URL.Path, c.Request.URL.Query())
		if payload := store.Get(c.Request.Context(), key); payload != nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			c.Abort()
			return
		}

		writer := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Next()

		if writer.Status() != http.StatusOK || writer.body.Len() == 0 {
			return
		}
		payload := make([]byte, writer.body.Len())
		copy(payload, writer.body.Bytes())
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("cache: store panic: %v", r)
				}
			}()
			storeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			store.Set(storeCtx, key, payload)
		}()
	}
}
