package adapters

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extension-mirror/internal/types"
)

func newGitHubFixture(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	manifest := base64.StdEncoding.EncodeToString([]byte(`{"name": "widget", "version": "1.4.0"}`))
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/repos/acme/widget/releases":
			_, _ = w.Write([]byte(`[{"tag_name": "v1.4.0", "name": "1.4.0", "draft": false, "prerelease": false,
				"assets": [{"name": "widget-1.4.0.vsix", "browser_download_url": "https://dl/widget-1.4.0.vsix"}]}]`))
		case "/repos/acme/widget/tags":
			_, _ = w.Write([]byte(`[{"name": "v1.4.0", "commit": {"sha": "aaa"}}, {"name": "v1.3.0", "commit": {"sha": "bbb"}}]`))
		case "/repos/acme/widget/commits":
			if r.URL.Query().Get("until") == "2000-01-01T00:00:00Z" {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			if r.URL.Query().Get("until") != "" {
				_, _ = w.Write([]byte(`[{"sha": "old", "commit": {"committer": {"date": "2025-05-01T00:00:00Z"}}}]`))
				return
			}
			_, _ = w.Write([]byte(`[{"sha": "head", "commit": {"committer": {"date": "2025-06-01T00:00:00Z"}}}]`))
		case "/repos/acme/widget/contents/packages/ext/package.json":
			assert.Equal(t, "head", r.URL.Query().Get("ref"))
			_, _ = w.Write([]byte(`{"encoding": "base64", "content": "` + manifest + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGitHubUpstreamAdapter(t *testing.T) {
	var hits atomic.Int32
	server := newGitHubFixture(t, &hits)
	defer server.Close()

	adapter, err := NewGitHubUpstreamAdapter(server.URL, "secret", 16, fastHTTPOptions())
	require.NoError(t, err)
	ctx := context.Background()
	repo := "https://github.com/acme/widget.git"

	releases, err := adapter.Releases(ctx, repo)
	require.NoError(t, err)
	wantReleases := []types.UpstreamRelease{{
		TagName: "v1.4.0",
		Name:    "1.4.0",
		Assets:  []types.UpstreamAsset{{Name: "widget-1.4.0.vsix", DownloadURL: "https://dl/widget-1.4.0.vsix"}},
	}}
	if diff := cmp.Diff(wantReleases, releases); diff != "" {
		t.Fatalf("unexpected releases (-want +got):\n%s", diff)
	}

	tags, err := adapter.Tags(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []types.UpstreamTag{{Name: "v1.4.0", Commit: "aaa"}, {Name: "v1.3.0", Commit: "bbb"}}, tags)

	latest, err := adapter.LatestCommit(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "head", latest.SHA)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), latest.Date)

	before, found, err := adapter.CommitBefore(ctx, repo, time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "old", before.SHA)

	_, found, err = adapter.CommitBefore(ctx, repo, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, found)

	version, err := adapter.ManifestVersion(ctx, repo, "head", "/packages/ext/")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", version)

	_, err = adapter.ManifestVersion(ctx, repo, "head", "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestGitHubUpstreamAdapterCachesResponses(t *testing.T) {
	var hits atomic.Int32
	server := newGitHubFixture(t, &hits)
	defer server.Close()

	adapter, err := NewGitHubUpstreamAdapter(server.URL, "secret", 16, fastHTTPOptions())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := adapter.Tags(context.Background(), "https://github.com/acme/widget")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestRepositoryPath(t *testing.T) {
	tests := []struct {
		repo  string
		owner string
		name  string
		fails bool
	}{
		{repo: "https://github.com/acme/widget", owner: "acme", name: "widget"},
		{repo: "https://github.com/acme/widget.git", owner: "acme", name: "widget"},
		{repo: "https://github.com/acme/widget/tree/main", owner: "acme", name: "widget"},
		{repo: "git@github.com:acme/widget.git", owner: "acme", name: "widget"},
		{repo: "ssh://git@github.com/acme/widget", owner: "acme", name: "widget"},
		{repo: "https://github.com/acme", fails: true},
		{repo: "widget", fails: true},
	}
	for _, tt := range tests {
		t.Run(tt.repo, func(t *testing.T) {
			owner, name, err := repositoryPath(tt.repo)
			if tt.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestRepositoryHost(t *testing.T) {
	assert.Equal(t, "github.com", repositoryHost("https://GitHub.com/acme/widget"))
	assert.Equal(t, "github.com", repositoryHost("git@github.com:acme/widget.git"))
	assert.Equal(t, "gitlab.example.org", repositoryHost("https://gitlab.example.org:8443/a/b"))
	assert.Equal(t, "", repositoryHost("widget"))
}

// recordingUpstream answers every call with its own name as the ref.
type recordingUpstream struct {
	name string
}

func (r recordingUpstream) Releases(context.Context, string) ([]types.UpstreamRelease, error) {
	return []types.UpstreamRelease{{TagName: r.name}}, nil
}

func (r recordingUpstream) Tags(context.Context, string) ([]types.UpstreamTag, error) {
	return []types.UpstreamTag{{Name: r.name}}, nil
}

func (r recordingUpstream) LatestCommit(context.Context, string) (types.UpstreamCommit, error) {
	return types.UpstreamCommit{SHA: r.name}, nil
}

func (r recordingUpstream) CommitBefore(context.Context, string, time.Time) (types.UpstreamCommit, bool, error) {
	return types.UpstreamCommit{SHA: r.name}, true, nil
}

func (r recordingUpstream) ManifestVersion(context.Context, string, string, string) (string, error) {
	return r.name, nil
}

func TestUpstreamRouterAdapter(t *testing.T) {
	router := NewUpstreamRouterAdapter(recordingUpstream{name: "github"}, recordingUpstream{name: "git"}, "github.com", "github.example.com")
	ctx := context.Background()

	commit, err := router.LatestCommit(ctx, "https://github.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, "github", commit.SHA)

	tags, err := router.Tags(ctx, "git@github.example.com:acme/widget.git")
	require.NoError(t, err)
	assert.Equal(t, "github", tags[0].Name)

	version, err := router.ManifestVersion(ctx, "https://gitlab.com/acme/widget", "main", "")
	require.NoError(t, err)
	assert.Equal(t, "git", version)
}

func TestGitUpstreamAdapterWithoutHistory(t *testing.T) {
	adapter := NewGitUpstreamAdapter()
	releases, err := adapter.Releases(context.Background(), "https://example.org/a/b.git")
	require.NoError(t, err)
	assert.Empty(t, releases)

	_, found, err := adapter.CommitBefore(context.Background(), "https://example.org/a/b.git", time.Now())
	require.NoError(t, err)
	assert.False(t, found)

	_, err = adapter.ManifestVersion(context.Background(), "https://example.org/a/b.git", "main", "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestManifestVersion(t *testing.T) {
	version, err := manifestVersion([]byte(`{"version": " 2.0.1 "}`))
	require.NoError(t, err)
	assert.Equal(t, "2.0.1", version)

	_, err = manifestVersion([]byte(`{"name": "x"}`))
	require.Error(t, err)

	_, err = manifestVersion([]byte(`not json`))
	require.Error(t, err)
}
