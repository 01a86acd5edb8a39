package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsBackend(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"", "redis"},
		{"redis", "redis"},
		{"memory", "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := New(Options{Type: tt.typ, Addr: "localhost:6379"})
			require.NoError(t, err)
			defer func() { _ = b.Close() }()

			assert.Equal(t, tt.want, b.Name())
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Options{Type: "cassandra"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}
