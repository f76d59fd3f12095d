package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsOriginAllowed(t *testing.T) {
	useConfig(t, Config{AllowedOrigins: []string{"https://chat.example"}})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"same origin", "http://relay.local:9000", true},
		{"allow listed", "https://chat.example", true},
		{"allow listed case insensitive", "HTTPS://CHAT.EXAMPLE", true},
		{"other origin", "https://evil.example", false},
		{"scheme mismatch", "http://chat.example", false},
		{"garbage", "::not-a-url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "http://relay.local:9000/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, isOriginAllowed(r))
		})
	}
}

func TestWildcardOrigin(t *testing.T) {
	useConfig(t, Config{AllowedOrigins: []string{"*"}})

	r := httptest.NewRequest("GET", "http://relay.local:9000/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	require.True(t, isOriginAllowed(r))
}
