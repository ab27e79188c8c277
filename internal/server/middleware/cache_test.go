package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cinelist/cineapi/internal/cache"
)

func TestResponseCacheDisabledStorePassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.New(context.Background(), "", time.Minute)

	hits := 0
	router := gin.New()
	router.Use(ResponseCache(store))
	router.GET("/movies", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/movies", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("X-Cache"); got != "" {
			t.Fatalf("expected no cache header from disabled store, got %q", got)
		}
	}
	if hits != 2 {
		t.Fatalf("expected handler hit twice, got %d", hits)
	}
}
