package middleware

import (
	"net/http"
	"strings"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
)

const (
	immutableCacheControl = "public, max-age=31536000, immutable"
	assetCacheControl     = "public, max-age=3600, must-revalidate"
)

// CacheControl sets Cache-Control on successful static asset responses,
// replacing whatever the upstream sent. Fingerprinted paths are immutable;
// other public files get a short revalidating TTL. Pages are left alone.
func CacheControl(staticPrefixes []string, publicFiles []string) func(http.Handler) http.Handler {
	if len(staticPrefixes) == 0 {
		staticPrefixes = DefaultStaticPrefixes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			value := cacheControlFor(r.URL.Path, staticPrefixes, publicFiles)
			if value == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, value: value}, r)
		})
	}
}

func cacheControlFor(p string, staticPrefixes, publicFiles []string) string {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return immutableCacheControl
		}
	}
	for _, file := range publicFiles {
		if p == file {
			return assetCacheControl
		}
	}
	if entities.IsStaticAsset(p) {
		return assetCacheControl
	}
	return ""
}

// cacheControlWriter sets the header when the status is known so errors are not cached
type cacheControlWriter struct {
	http.ResponseWriter
	value       string
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if statusCode == http.StatusOK || statusCode == http.StatusNotModified {
			w.Header().Set("Cache-Control", w.value)
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
