package middleware

import (
	"bytes"
	"net/http"
	"strings"

	"uch/internal/cache"
)

// cachingWriter passes the response through while keeping a copy of the body.
type cachingWriter struct {
	responseWriter
	buf bytes.Buffer
}

func (cw *cachingWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.responseWriter.Write(b)
}

// CachePage serves anonymous GET requests from the Valkey page cache and
// stores successful HTML responses on a miss. Signed-in users always get a
// fresh render since their pages carry per-user content. Must be applied
// after LoadSession.
func CachePage(pc *cache.PageCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pc == nil || r.Method != http.MethodGet || SessionFromCtx(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := cache.PageKey(r.URL)
			if body, ok := pc.Get(ctx, key); ok {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("X-Cache", "HIT")
				w.Write(body)
				return
			}

			w.Header().Set("X-Cache", "MISS")
			cw := &cachingWriter{responseWriter: responseWriter{ResponseWriter: w, statusCode: http.StatusOK}}
			next.ServeHTTP(cw, r)

			if cw.statusCode == http.StatusOK &&
				strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") &&
				cw.buf.Len() > 0 {
				pc.Set(ctx, key, cw.buf.Bytes())
			}
		})
	}
}
