package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

const DefaultGitHubAPI = "https://api.github.com"

const defaultGitHubCacheSize = 512
const githubPageSize = 100

// GitHubUpstreamAdapter reads releases, tags, commits and the extension
// manifest through the GitHub REST API. GET responses are cached for the
// lifetime of the adapter.
type GitHubUpstreamAdapter struct {
	APIBase string
	Token   string
	client  retryingClient
	cache   *lru.Cache[string, []byte]
}

func NewGitHubUpstreamAdapter(apiBase string, token string, cacheSize int, options HTTPOptions) (GitHubUpstreamAdapter, error) {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = DefaultGitHubAPI
	}
	if cacheSize <= 0 {
		cacheSize = defaultGitHubCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return GitHubUpstreamAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create github response cache").
			WithCause(err)
	}
	return GitHubUpstreamAdapter{
		APIBase: strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		Token:   strings.TrimSpace(token),
		client:  newRetryingClient("github", options),
		cache:   cache,
	}, nil
}

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

type githubTag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type githubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type githubContent struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

func (a GitHubUpstreamAdapter) Releases(ctx context.Context, repo string) ([]types.UpstreamRelease, error) {
	slug, err := githubSlug(repo)
	if err != nil {
		return nil, err
	}
	var decoded []githubRelease
	if err := a.getJSON(ctx, fmt.Sprintf("/repos/%s/releases?per_page=%d", slug, githubPageSize), &decoded); err != nil {
		return nil, err
	}
	releases := make([]types.UpstreamRelease, 0, len(decoded))
	for _, release := range decoded {
		converted := types.UpstreamRelease{
			TagName:    release.TagName,
			Name:       release.Name,
			Draft:      release.Draft,
			Prerelease: release.Prerelease,
		}
		for _, asset := range release.Assets {
			converted.Assets = append(converted.Assets, types.UpstreamAsset{Name: asset.Name, DownloadURL: asset.BrowserDownloadURL})
		}
		releases = append(releases, converted)
	}
	return releases, nil
}

func (a GitHubUpstreamAdapter) Tags(ctx context.Context, repo string) ([]types.UpstreamTag, error) {
	slug, err := githubSlug(repo)
	if err != nil {
		return nil, err
	}
	var decoded []githubTag
	if err := a.getJSON(ctx, fmt.Sprintf("/repos/%s/tags?per_page=%d", slug, githubPageSize), &decoded); err != nil {
		return nil, err
	}
	tags := make([]types.UpstreamTag, 0, len(decoded))
	for _, tag := range decoded {
		tags = append(tags, types.UpstreamTag{Name: tag.Name, Commit: tag.Commit.SHA})
	}
	return tags, nil
}

func (a GitHubUpstreamAdapter) LatestCommit(ctx context.Context, repo string) (types.UpstreamCommit, error) {
	commit, found, err := a.firstCommit(ctx, repo, "")
	if err != nil {
		return types.UpstreamCommit{}, err
	}
	if !found {
		return types.UpstreamCommit{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("repository %s has no commits", repo))
	}
	return commit, nil
}

func (a GitHubUpstreamAdapter) CommitBefore(ctx context.Context, repo string, until time.Time) (types.UpstreamCommit, bool, error) {
	return a.firstCommit(ctx, repo, "&until="+url.QueryEscape(until.UTC().Format(time.RFC3339)))
}

func (a GitHubUpstreamAdapter) firstCommit(ctx context.Context, repo string, filter string) (types.UpstreamCommit, bool, error) {
	slug, err := githubSlug(repo)
	if err != nil {
		return types.UpstreamCommit{}, false, err
	}
	var decoded []githubCommit
	if err := a.getJSON(ctx, fmt.Sprintf("/repos/%s/commits?per_page=1%s", slug, filter), &decoded); err != nil {
		return types.UpstreamCommit{}, false, err
	}
	if len(decoded) == 0 {
		return types.UpstreamCommit{}, false, nil
	}
	return types.UpstreamCommit{
		SHA:  decoded[0].SHA,
		Date: parseTimeFlexible(decoded[0].Commit.Committer.Date),
	}, true, nil
}

// ManifestVersion reads package.json at ref, below location when the
// extension lives in a sub directory.
func (a GitHubUpstreamAdapter) ManifestVersion(ctx context.Context, repo string, ref string, location string) (string, error) {
	slug, err := githubSlug(repo)
	if err != nil {
		return "", err
	}
	manifestPath := path.Join(strings.Trim(location, "/"), "package.json")
	var content githubContent
	if err := a.getJSON(ctx, fmt.Sprintf("/repos/%s/contents/%s?ref=%s", slug, manifestPath, url.QueryEscape(ref)), &content); err != nil {
		return "", err
	}
	raw := []byte(content.Content)
	if content.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
		if err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to decode manifest content").
				WithCause(err)
		}
		raw = decoded
	}
	return manifestVersion(raw)
}

func (a GitHubUpstreamAdapter) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	requestURL := a.APIBase + endpoint
	body, ok := a.cache.Get(requestURL)
	if !ok {
		response, err := a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/vnd.github+json")
			if a.Token != "" {
				req.Header.Set("Authorization", "Bearer "+a.Token)
			}
			return req, nil
		})
		if err != nil {
			return err
		}
		if !response.OK() {
			return response.statusError("github request failed")
		}
		body = response.Body
		a.cache.Add(requestURL, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse github response").
			WithCause(err)
	}
	return nil
}

// manifestVersion extracts the version field of an extension manifest.
func manifestVersion(data []byte) (string, error) {
	var manifest struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse extension manifest").
			WithCause(err)
	}
	if strings.TrimSpace(manifest.Version) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("extension manifest has no version")
	}
	return strings.TrimSpace(manifest.Version), nil
}

// githubSlug turns a repository URL into owner/name.
func githubSlug(repo string) (string, error) {
	owner, name, err := repositoryPath(repo)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

// repositoryPath parses https, ssh and scp-like git URLs into owner and name.
func repositoryPath(repo string) (string, string, error) {
	trimmed := strings.TrimSpace(repo)
	host, rest := "", ""
	switch {
	case strings.Contains(trimmed, "://"):
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid repository url %q", repo)).
				WithCause(err)
		}
		host, rest = parsed.Host, parsed.Path
	case strings.Contains(trimmed, ":"):
		parts := strings.SplitN(trimmed, ":", 2)
		host, rest = parts[0], parts[1]
	}
	segments := strings.Split(strings.Trim(strings.TrimSuffix(rest, ".git"), "/"), "/")
	if host == "" || len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repository %q is not an owner/name url", repo))
	}
	return segments[0], segments[1], nil
}

// repositoryHost returns the lowercased host of a repository URL, or "" when
// it cannot be determined.
func repositoryHost(repo string) string {
	trimmed := strings.TrimSpace(repo)
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return ""
		}
		return strings.ToLower(parsed.Hostname())
	}
	if before, _, ok := strings.Cut(trimmed, ":"); ok {
		if _, host, ok := strings.Cut(before, "@"); ok {
			return strings.ToLower(host)
		}
		return strings.ToLower(before)
	}
	return ""
}

var _ ports.UpstreamPort = GitHubUpstreamAdapter{}
