package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(cm *CompressionMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())

	big := strings.Repeat(`{"subject":"Data Structures","status":"Safe"},`, 100)
	r.GET("/big", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(big))
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/octet-stream", []byte(big))
	})
	r.GET("/encoded", func(c *gin.Context) {
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, "text/plain", []byte(big))
	})
	return r
}

func get(r http.Handler, path string, gzipOK bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if gzipOK {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompressionMiddleware(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := setupRouter(cm)

	tests := []struct {
		name       string
		path       string
		gzipOK     bool
		compressed bool
	}{
		{"large json is compressed", "/big", true, true},
		{"client without gzip", "/big", false, false},
		{"small body", "/small", true, false},
		{"uncompressible type", "/binary", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.gzipOK)
			require.Equal(t, http.StatusOK, w.Code)

			if !tt.compressed {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(body), `{"subject":"Data Structures"`))
			assert.Len(t, body, 100*len(`{"subject":"Data Structures","status":"Safe"},`))
		})
	}
}

func TestCompressionSkipsPreEncodedBodies(t *testing.T) {
	r := setupRouter(NewCompressionMiddleware(DefaultCompressionConfig()))

	w := get(r, "/encoded", true)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.True(t, strings.HasPrefix(w.Body.String(), `{"subject"`))
}

func TestCompressionStats(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := setupRouter(cm)

	get(r, "/big", true)
	get(r, "/small", true)

	stats := cm.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
	assert.Greater(t, stats["compression_ratio"].(float64), 0.0)
}

func TestInvalidLevelFallsBack(t *testing.T) {
	cm := NewCompressionMiddleware(CompressionConfig{MinSize: 1, CompressionLevel: 42, ContentTypes: []string{"application/json"}})
	assert.Equal(t, gzip.DefaultCompression, cm.config.CompressionLevel)

	w := get(setupRouter(cm), "/small", true)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
