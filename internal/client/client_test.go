package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/api"
	"github.com/dharsanguruparan/HoloHeri/internal/auth"
	"github.com/dharsanguruparan/HoloHeri/internal/config"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
	"github.com/dharsanguruparan/HoloHeri/internal/site"
	"github.com/dharsanguruparan/HoloHeri/internal/storage"
	"github.com/dharsanguruparan/HoloHeri/internal/upload"
)

// newBackend starts a real API server on a random port. Media URLs are
// built against the legacy origin so resolution has something to rewrite.
func newBackend(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	usersFile := filepath.Join(dir, "user.json")
	require.NoError(t, os.WriteFile(usersFile, []byte(`[{"username":"admin","password":"heritage"}]`), 0o600))

	cfg := &config.Config{
		APIBaseURL:     "http://localhost:3000",
		RoutePrefix:    DefaultPrefix,
		UploadDir:      filepath.Join(dir, "uploads"),
		MaxBodyBytes:   1 << 20,
		RequestTimeout: time.Minute,
		CORSOrigin:     "http://localhost:5173",
		JWTSecret:      []byte("secret"),
		TokenTTL:       time.Hour,
		UsersFile:      usersFile,
		RequireAuth:    true,
	}
	log := zap.NewNop().Sugar()
	store := storage.NewMemoryStore()
	sites := site.NewService(store, nil, cfg.APIBaseURL)
	authn := auth.NewService(auth.NewFileCredentialStore(usersFile, log), auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL))
	srv := api.New(cfg, sites, authn, upload.New(cfg.UploadDir, cfg.MaxBodyBytes), log)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestClientRoundTrip(t *testing.T) {
	ts, _ := newBackend(t)
	c, err := New(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.CreateSite(ctx, map[string]string{"title": "Fort"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.Login(ctx, "admin", "wrong")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid username or password", apiErr.Message)

	token, err := c.Login(ctx, "admin", "heritage")
	require.NoError(t, err)
	assert.Equal(t, token, c.Token())

	model3D := filepath.Join(t.TempDir(), "konark.glb")
	require.NoError(t, os.WriteFile(model3D, []byte("glTF"), 0o644))
	created, err := c.CreateSite(ctx,
		map[string]string{"title": "Konark", "location": "Odisha", "tags": "temple, sun"},
		map[model.MediaField]string{model.FieldGLB: model3D},
	)
	require.NoError(t, err)
	assert.Equal(t, "Konark", created.Title)
	assert.Equal(t, []string{"temple", "sun"}, created.Tags)
	// Stored against the legacy origin, resolved to the current one.
	assert.True(t, strings.HasPrefix(created.GLB, "http://localhost:"+port(t, ts.URL)+"/uploads/glb-"), created.GLB)

	got, err := c.GetSite(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.GLB, got.GLB)

	updated, err := c.UpdateSite(ctx, created.ID, map[string]string{"location": "Puri"})
	require.NoError(t, err)
	assert.Equal(t, "Puri", updated.Location)

	page, err := c.ListSites(ctx, ListParams{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Data, 1)

	id, err := c.DeleteSite(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = c.GetSite(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestListSitesResolvesReferences(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/api/holoheri/sites", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1, "limit": 12, "total": 1, "pages": 1,
			"data": []map[string]any{{
				"_id":          "1",
				"title":        "Hampi",
				"thumb":        "/uploads/thumb-1.png",
				"glb":          "https://cdn.example.com/a.glb",
				"oldSitePhoto": "http://localhost:3000/uploads/old.jpg",
				"newSitePhoto": "",
			}},
		})
	}))
	defer ts.Close()

	c, err := New("http://localhost:4000", WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	c.origin = ts.URL

	res, err := c.ListSites(context.Background(), ListParams{Tag: "temple", Query: "stone"})
	require.NoError(t, err)
	assert.Equal(t, "q=stone&tag=temple", gotQuery)
	require.Len(t, res.Data, 1)
	s := res.Data[0]
	assert.Equal(t, "http://localhost:4000/uploads/thumb-1.png", s.Thumb)
	assert.Equal(t, "https://cdn.example.com/a.glb", s.GLB)
	assert.Equal(t, "http://localhost:4000/uploads/old.jpg", s.OldSitePhoto)
	assert.Equal(t, "", s.NewSitePhoto)
	assert.Equal(t, []string{}, s.Tags)
}

func TestFilterSites(t *testing.T) {
	sites := []model.Site{
		{ID: "1", Title: "Sun Temple", Location: "Konark", Tags: []string{"odisha"}},
		{ID: "2", Title: "Stepwell", Summary: "An intricate water TEMPLE"},
		{ID: "3", Title: "Fort", Location: "Jaipur", Tags: []string{"rajput"}},
	}
	ids := func(in []model.Site) []string {
		var out []string
		for _, s := range in {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2"}, ids(FilterSites(sites, "  temple ")))
	assert.Equal(t, []string{"3"}, ids(FilterSites(sites, "RAJ")))
	assert.Equal(t, []string{"1"}, ids(FilterSites(sites, "odisha")))
	assert.Len(t, FilterSites(sites, ""), 3)
	assert.Empty(t, FilterSites(sites, "nothing"))
}

func TestDebouncerCoalesces(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	d := NewDebouncer(30*time.Millisecond, func(q string) {
		mu.Lock()
		calls = append(calls, q)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("h")
	d.Trigger("ha")
	d.Trigger(" ham ")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ham"}, calls)
}

func TestDebouncerImmediateAndFlush(t *testing.T) {
	var calls []string
	d := NewDebouncer(0, func(q string) { calls = append(calls, q) })
	d.Trigger(" a ")
	d.Trigger("b")
	assert.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	d = NewDebouncer(time.Hour, func(q string) { calls = append(calls, q) })
	d.Trigger("pending")
	d.Flush(" now ")
	d.Stop()
	d.Trigger("ignored")
	assert.Equal(t, []string{"now"}, calls)
}

func port(t *testing.T, rawURL string) string {
	t.Helper()
	idx := strings.LastIndex(rawURL, ":")
	require.Greater(t, idx, 0)
	return rawURL[idx+1:]
}
