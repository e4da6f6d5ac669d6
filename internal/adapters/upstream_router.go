package adapters

import (
	"context"
	"strings"
	"time"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// UpstreamRouterAdapter sends GitHub repositories to the GitHub API and every
// other host to the plain git adapter.
type UpstreamRouterAdapter struct {
	GitHubHosts []string
	GitHub      ports.UpstreamPort
	Git         ports.UpstreamPort
}

func NewUpstreamRouterAdapter(github ports.UpstreamPort, git ports.UpstreamPort, githubHosts ...string) UpstreamRouterAdapter {
	if len(githubHosts) == 0 {
		githubHosts = []string{"github.com"}
	}
	return UpstreamRouterAdapter{GitHubHosts: githubHosts, GitHub: github, Git: git}
}

func (a UpstreamRouterAdapter) route(repo string) ports.UpstreamPort {
	host := repositoryHost(repo)
	for _, candidate := range a.GitHubHosts {
		if strings.EqualFold(host, strings.TrimSpace(candidate)) {
			return a.GitHub
		}
	}
	return a.Git
}

func (a UpstreamRouterAdapter) Releases(ctx context.Context, repo string) ([]types.UpstreamRelease, error) {
	return a.route(repo).Releases(ctx, repo)
}

func (a UpstreamRouterAdapter) Tags(ctx context.Context, repo string) ([]types.UpstreamTag, error) {
	return a.route(repo).Tags(ctx, repo)
}

func (a UpstreamRouterAdapter) LatestCommit(ctx context.Context, repo string) (types.UpstreamCommit, error) {
	return a.route(repo).LatestCommit(ctx, repo)
}

func (a UpstreamRouterAdapter) CommitBefore(ctx context.Context, repo string, until time.Time) (types.UpstreamCommit, bool, error) {
	return a.route(repo).CommitBefore(ctx, repo, until)
}

func (a UpstreamRouterAdapter) ManifestVersion(ctx context.Context, repo string, ref string, location string) (string, error) {
	return a.route(repo).ManifestVersion(ctx, repo, ref, location)
}

var _ ports.UpstreamPort = UpstreamRouterAdapter{}
