package urlresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r, err := NewResolver("http://localhost:4000", "localhost:3000")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"legacy port rewritten", "http://localhost:3000/uploads/x.png", "http://localhost:4000/uploads/x.png"},
		{"current local url unchanged", "http://localhost:4000/uploads/x.png", "http://localhost:4000/uploads/x.png"},
		{"external unchanged", "https://cdn.example.com/x.png", "https://cdn.example.com/x.png"},
		{"relative", "uploads/x.png", "http://localhost:4000/uploads/x.png"},
		{"relative with leading slash", "/uploads/x.png", "http://localhost:4000/uploads/x.png"},
		{"only one leading slash stripped", "//uploads/x.png", "http://localhost:4000//uploads/x.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.raw))
		})
	}
}

func TestClassifyBranchOrder(t *testing.T) {
	// An absolute URL on the legacy host is legacy, not external.
	ref := Classify("http://localhost:3000/uploads/glb-1.glb", "localhost:3000")
	assert.Equal(t, KindLegacyLocal, ref.Kind)

	assert.Equal(t, KindEmpty, Classify("", "localhost:3000").Kind)
	assert.Equal(t, KindExternal, Classify("https://res.cloudinary.com/a.glb", "localhost:3000").Kind)
	assert.Equal(t, KindRelative, Classify("uploads/a.glb", "localhost:3000").Kind)
	assert.Equal(t, "legacy-local", KindLegacyLocal.String())
}

func TestResolveWithTrailingSlashBase(t *testing.T) {
	r, err := NewResolver("https://heritage.example.org/", "localhost:3000")
	require.NoError(t, err)

	assert.Equal(t, "https://heritage.example.org/uploads/x.png", r.Resolve("uploads/x.png"))
	assert.Equal(t, "http://localhost:443/uploads/x.png", r.Resolve("http://localhost:3000/uploads/x.png"))
}

func TestNewResolverRejectsBadLegacyHost(t *testing.T) {
	_, err := NewResolver("http://localhost:4000", "localhost")
	require.Error(t, err)
}
