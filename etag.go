package shopx

import (
	"bytes"
	"fmt"
	"hash/crc64"
	"net/http"
	"strings"
)

var crcTable = crc64.MakeTable(crc64.ECMA)

// etagResponseWriter holds the response back in order to compute a CRC64
// checksum over its body, which is later used as the ETag.
type etagResponseWriter struct {
	http.ResponseWriter
	buffer     bytes.Buffer
	checksum   uint64
	statusCode int
}

func (w *etagResponseWriter) Write(b []byte) (int, error) {
	w.checksum = crc64.Update(w.checksum, crcTable, b)
	return w.buffer.Write(b)
}

func (w *etagResponseWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
}

// ETag returns a middleware that tags successful GET responses with a
// checksum of their body. When the request's If-None-Match already holds
// that tag the body is dropped and 304 Not Modified is sent instead, which
// saves re-sending unchanged catalog pages. Responses are buffered, so it
// must not wrap streaming handlers.
//
// Example:
//
//	catalog := mux.Group("/api/catalog", shopx.ETag(true))
func ETag(weak bool) Middleware {
	return MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			rw := &etagResponseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			if (rw.statusCode == 0 || rw.statusCode == http.StatusOK) && w.Header().Get("Etag") == "" {
				etag := fmt.Sprintf(`"%x"`, rw.checksum)
				if weak {
					etag = "W/" + etag
				}
				w.Header().Set("Etag", etag)

				if matchesETag(r.Header.Get("If-None-Match"), etag) {
					w.Header().Del("Content-Type")
					w.Header().Del("Content-Length")
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}

			if rw.statusCode != 0 {
				w.WriteHeader(rw.statusCode)
			}
			w.Write(rw.buffer.Bytes())
		})
	})
}

// matchesETag compares weakly, as If-None-Match requires.
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	etag = strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
