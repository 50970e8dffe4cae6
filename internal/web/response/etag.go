package response

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// WeakETag derives a weak entity tag from content
func WeakETag(content []byte) string {
	sum := sha256.Sum256(content)
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

// ParseIfNoneMatch splits an If-None-Match header into its entity tags
func ParseIfNoneMatch(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var tags []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		opaque := strings.TrimPrefix(part, "W/")
		if len(opaque) >= 2 && opaque[0] == '"' && opaque[len(opaque)-1] == '"' {
			tags = append(tags, part)
		}
	}
	return tags
}

// MatchesETag applies the weak comparison used by If-None-Match
func MatchesETag(etag string, tags []string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, t := range tags {
		if t == "*" || strings.TrimPrefix(t, "W/") == want {
			return true
		}
	}
	return false
}

// RenderCachedJSON writes v as JSON with a weak ETag. When the request already
// holds the same representation it answers 304 without a body.
func RenderCachedJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		RenderError(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "error",
			Message: "failed to encode response",
			Code:    "internal_error",
		})
		return
	}

	etag := WeakETag(buf.Bytes())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if MatchesETag(etag, ParseIfNoneMatch(r.Header.Get("If-None-Match"))) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
