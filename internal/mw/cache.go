package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader is set to HIT or MISS on cached routes.
const CacheHeader = "X-Cache"

// snapshot is a stored 2xx response.
type snapshot struct {
	status      int
	contentType string
	body        []byte
}

// recorder tees the response body into a buffer.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// cacheKey scopes the request URI to the caller, so one owner's response
// is never replayed to another.
func cacheKey(c *gin.Context) string {
	uri := c.Request.URL.RequestURI()
	if p, ok := PrincipalFrom(c); ok {
		return p.OwnerID + "|" + p.SessionKey + "|" + uri
	}
	return uri
}

// Cache replays successful GET responses for ttl.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		if v, found := store.Get(key); found {
			snap := v.(snapshot)
			c.Header(CacheHeader, "HIT")
			c.Data(snap.status, snap.contentType, snap.body)
			c.Abort()
			return
		}

		c.Header(CacheHeader, "MISS")
		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			store.Set(key, snapshot{
				status:      status,
				contentType: rec.Header().Get("Content-Type"),
				body:        append([]byte(nil), rec.buf.Bytes()...),
			}, ttl)
		}
	}
}
