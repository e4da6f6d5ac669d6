package ports

import (
	"context"
	"time"

	"extension-mirror/internal/types"
)

// UpstreamPort reads the upstream source repository of a package.
type UpstreamPort interface {
	// Releases lists releases newest first. Hosts without a release
	// concept return an empty list.
	Releases(ctx context.Context, repo string) ([]types.UpstreamRelease, error)

	// Tags lists repository tags.
	Tags(ctx context.Context, repo string) ([]types.UpstreamTag, error)

	// LatestCommit returns the head of the default branch.
	LatestCommit(ctx context.Context, repo string) (types.UpstreamCommit, error)

	// CommitBefore returns the newest default-branch commit at or before
	// until. The boolean is false when no such commit exists.
	CommitBefore(ctx context.Context, repo string, until time.Time) (types.UpstreamCommit, bool, error)

	// ManifestVersion reads the version declared by the extension manifest
	// (package.json under location) at ref.
	ManifestVersion(ctx context.Context, repo string, ref string, location string) (string, error)
}
