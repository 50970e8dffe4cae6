package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	cursor := Cursor{ScopeID: "session|42", Page: 7}
	decoded, ok := Decode(cursor.Encode())
	require.True(t, ok)
	assert.Equal(t, cursor, decoded)
}

func TestDecodePage(t *testing.T) {
	token := Cursor{ScopeID: "S", Page: 2}.Encode()

	tests := []struct {
		name  string
		scope string
		token string
		want  int32
	}{
		{"same scope", "S", token, 2},
		{"other scope", "S2", token, 1},
		{"empty token", "S", "", 1},
		{"not base64", "S", "%%%", 1},
		{"wrong version", "S", base64.RawURLEncoding.EncodeToString([]byte("9|2|S")), 1},
		{"zero page", "S", base64.RawURLEncoding.EncodeToString([]byte("1|0|S")), 1},
		{"negative page", "S", base64.RawURLEncoding.EncodeToString([]byte("1|-3|S")), 1},
		{"not a number", "S", base64.RawURLEncoding.EncodeToString([]byte("1|two|S")), 1},
		{"truncated", "S", base64.RawURLEncoding.EncodeToString([]byte("1|2")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodePage(tt.scope, tt.token))
		})
	}
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-5))
	assert.Equal(t, int32(10), ClampPageSize(10))
	assert.Equal(t, MaxPageSize, ClampPageSize(MaxPageSize))
	assert.Equal(t, MaxPageSize, ClampPageSize(5000))

	m := NewManager(20, 40)
	assert.Equal(t, int32(20), m.ClampPageSize(0))
	assert.Equal(t, int32(40), m.ClampPageSize(41))

	m = NewManager(500, 40)
	assert.Equal(t, int32(40), m.ClampPageSize(0))
}

func TestNextToken(t *testing.T) {
	m := NewManager(10, 100)

	// 25 rows, pages of 10
	first := m.NextToken("S", 1, 25, 0, 10)
	require.NotEmpty(t, first)
	assert.Equal(t, int32(2), m.DecodePage("S", first))

	second := m.NextToken("S", 2, 25, 10, 10)
	require.NotEmpty(t, second)
	assert.Equal(t, int32(3), m.DecodePage("S", second))

	assert.Empty(t, m.NextToken("S", 3, 25, 20, 10))
	assert.Empty(t, m.NextToken("S", 1, 10, 0, 10))
	assert.Empty(t, m.NextToken("S", 1, 0, 0, 10))
}

func TestOffset(t *testing.T) {
	m := NewManager(0, 0)
	assert.Equal(t, int64(0), m.Offset(1, 10))
	assert.Equal(t, int64(20), m.Offset(3, 10))
	assert.Equal(t, int64(0), m.Offset(0, 10))
}
