// Package pagination issues and decodes opaque, scope-bound page tokens.
package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the page size used when none is requested.
	DefaultPageSize int32 = 50

	// MaxPageSize is the largest page size a caller may request.
	MaxPageSize int32 = 100

	tokenVersion = "1"
	separator    = "|"
)

// Cursor is a decoded page token. Page is always >= 1.
type Cursor struct {
	ScopeID string
	Page    int32
}

// Encode serializes the cursor as an opaque URL-safe string
func (c Cursor) Encode() string {
	raw := tokenVersion + separator + strconv.FormatInt(int64(c.Page), 10) + separator + c.ScopeID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode. ok is false for anything malformed.
func Decode(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}

	parts := strings.SplitN(string(data), separator, 3)
	if len(parts) != 3 || parts[0] != tokenVersion {
		return Cursor{}, false
	}
	page, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil || page < 1 {
		return Cursor{}, false
	}
	return Cursor{ScopeID: parts[2], Page: int32(page)}, true
}

// Manager applies page size limits and issues tokens.
// The zero value uses DefaultPageSize and MaxPageSize.
type Manager struct {
	DefaultSize int32
	MaxSize     int32
}

// NewManager creates a manager with the given limits. Non-positive values
// fall back to the package defaults.
func NewManager(defaultSize, maxSize int32) *Manager {
	m := &Manager{DefaultSize: defaultSize, MaxSize: maxSize}
	if m.MaxSize <= 0 {
		m.MaxSize = MaxPageSize
	}
	if m.DefaultSize <= 0 {
		m.DefaultSize = DefaultPageSize
	}
	if m.DefaultSize > m.MaxSize {
		m.DefaultSize = m.MaxSize
	}
	return m
}

func (m *Manager) limits() (int32, int32) {
	if m == nil {
		return DefaultPageSize, MaxPageSize
	}
	def, limit := m.DefaultSize, m.MaxSize
	if limit <= 0 {
		limit = MaxPageSize
	}
	if def <= 0 || def > limit {
		def = min(DefaultPageSize, limit)
	}
	return def, limit
}

// DecodePage returns the page encoded in token, or 1 when the token is empty,
// malformed or was issued under another scope.
func (m *Manager) DecodePage(scopeID, token string) int32 {
	cursor, ok := Decode(token)
	if !ok || cursor.ScopeID != scopeID {
		return 1
	}
	return cursor.Page
}

// ClampPageSize maps non-positive sizes to the default and caps at the maximum
func (m *Manager) ClampPageSize(requested int32) int32 {
	def, limit := m.limits()
	if requested <= 0 {
		return def
	}
	if requested > limit {
		return limit
	}
	return requested
}

// Offset returns the row offset of page for the given page size
func (m *Manager) Offset(page, size int32) int64 {
	if page < 1 {
		page = 1
	}
	return int64(page-1) * int64(size)
}

// NextToken returns the token for page+1, or "" when offset+limit reaches totalCount
func (m *Manager) NextToken(scopeID string, page int32, totalCount, offset int64, limit int32) string {
	if offset+int64(limit) >= totalCount {
		return ""
	}
	if page < 1 {
		page = 1
	}
	return Cursor{ScopeID: scopeID, Page: page + 1}.Encode()
}

var defaultManager = &Manager{}

// DecodePage decodes token with the default limits
func DecodePage(scopeID, token string) int32 {
	return defaultManager.DecodePage(scopeID, token)
}

// ClampPageSize clamps with the default limits
func ClampPageSize(requested int32) int32 {
	return defaultManager.ClampPageSize(requested)
}

// NextToken issues the next page token with the default limits
func NextToken(scopeID string, page int32, totalCount, offset int64, limit int32) string {
	return defaultManager.NextToken(scopeID, page, totalCount, offset, limit)
}
