package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// DefaultBrotliMinLength is the smallest body worth compressing.
const DefaultBrotliMinLength = 1024

// bufferedWriter holds the body until the handler returns so the encoding
// decision can be made on the full length.
type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

// Brotli compresses responses of at least minLength bytes for clients that
// accept "br". WebSocket upgrades pass through untouched.
func Brotli(minLength int) gin.HandlerFunc {
	if minLength <= 0 {
		minLength = DefaultBrotliMinLength
	}

	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		original := c.Writer
		bw := &bufferedWriter{ResponseWriter: original}
		c.Writer = bw
		c.Next()
		c.Writer = original

		original.Header().Add("Vary", "Accept-Encoding")
		body := bw.buf.Bytes()
		if len(body) < minLength || original.Header().Get("Content-Encoding") != "" {
			_, _ = original.Write(body)
			return
		}

		var out bytes.Buffer
		enc := brotli.NewWriterLevel(&out, brotli.DefaultCompression)
		if _, err := enc.Write(body); err != nil || enc.Close() != nil {
			_, _ = original.Write(body)
			return
		}
		original.Header().Set("Content-Encoding", "br")
		original.Header().Set("Content-Length", strconv.Itoa(out.Len()))
		_, _ = original.Write(out.Bytes())
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
