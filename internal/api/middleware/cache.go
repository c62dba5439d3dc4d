package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/hostportal/backend/internal/domain/providers"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
)

// DefaultStaticPrefixes are fingerprinted asset paths whose content never
// changes for a given URL.
var DefaultStaticPrefixes = []string{"/_next/static/"}

// maxCachedAssetBytes keeps large bundles out of Redis
const maxCachedAssetBytes = 2 << 20

// cachedAsset is the Redis representation of an upstream response
type cachedAsset struct {
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding,omitempty"`
	Body            []byte `json:"body"`
}

// StaticCacheMiddleware caches upstream static asset responses in Redis
type StaticCacheMiddleware struct {
	cache      providers.CacheProvider
	ttlSeconds int
	prefixes   []string
	metrics    *observability.Metrics
}

// NewStaticCacheMiddleware creates a new static asset cache. With a nil
// cache every request goes upstream.
func NewStaticCacheMiddleware(cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics, prefixes ...string) *StaticCacheMiddleware {
	if len(prefixes) == 0 {
		prefixes = DefaultStaticPrefixes
	}
	return &StaticCacheMiddleware{
		cache:      cache,
		ttlSeconds: ttlSeconds,
		prefixes:   prefixes,
		metrics:    metrics,
	}
}

// Middleware returns the cache middleware handler
func (m *StaticCacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil || r.Method != http.MethodGet || r.Header.Get("Range") != "" {
			next.ServeHTTP(w, r)
			return
		}

		prefix, ok := m.matchPrefix(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		cacheKey := m.cacheKey(r)

		cached, err := m.cache.Get(ctx, cacheKey)
		if err == nil {
			var asset cachedAsset
			if err := json.Unmarshal(cached, &asset); err == nil {
				observability.RecordCacheHit(ctx, m.metrics, prefix)
				writeCachedAsset(w, &asset)
				return
			}
			log.Warn().Str("key", cacheKey).Msg("discarding unreadable cached asset")
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", cacheKey).Msg("static cache lookup failed")
		}

		observability.RecordCacheMiss(ctx, m.metrics, prefix)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode != http.StatusOK || recorder.overflow || recorder.body.Len() == 0 {
			return
		}

		asset := cachedAsset{
			ContentType:     recorder.Header().Get("Content-Type"),
			ContentEncoding: recorder.Header().Get("Content-Encoding"),
			Body:            recorder.body.Bytes(),
		}
		data, err := json.Marshal(&asset)
		if err != nil {
			return
		}
		if err := m.cache.Set(ctx, cacheKey, data, m.ttlSeconds); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache static asset")
			return
		}
		log.Debug().Str("path", r.URL.Path).Int("ttl", m.ttlSeconds).Msg("cached static asset")
	})
}

func writeCachedAsset(w http.ResponseWriter, asset *cachedAsset) {
	w.Header().Set("X-Cache", "HIT")
	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	if asset.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", asset.ContentEncoding)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Body)
}

func (m *StaticCacheMiddleware) matchPrefix(path string) (string, bool) {
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(path, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// cacheKey varies on encoding so gzip and brotli bodies are kept apart
func (m *StaticCacheMiddleware) cacheKey(r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	key += "|" + r.Header.Get("Accept-Encoding")

	hash := sha256.Sum256([]byte(key))
	return "static:" + hex.EncodeToString(hash[:])
}

// responseRecorder tees the response to the client and a buffer
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
	overflow   bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}

	if !r.overflow {
		if r.body.Len()+len(data) > maxCachedAssetBytes {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(data)
		}
	}

	return r.ResponseWriter.Write(data)
}

func (r *responseRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
