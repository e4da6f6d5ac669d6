package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// GitUpstreamAdapter serves hosts without a release API using a remote ref
// listing only. It has no releases, no commit history and no manifest access,
// so resolution on such hosts ends at Tag or Latest.
type GitUpstreamAdapter struct{}

func NewGitUpstreamAdapter() GitUpstreamAdapter {
	return GitUpstreamAdapter{}
}

func (a GitUpstreamAdapter) Releases(context.Context, string) ([]types.UpstreamRelease, error) {
	return nil, nil
}

func (a GitUpstreamAdapter) Tags(ctx context.Context, repo string) ([]types.UpstreamTag, error) {
	refs, err := listRemote(ctx, repo)
	if err != nil {
		return nil, err
	}
	var tags []types.UpstreamTag
	for _, ref := range refs {
		if !ref.Name().IsTag() || strings.HasSuffix(ref.Name().String(), "^{}") {
			continue
		}
		tags = append(tags, types.UpstreamTag{Name: ref.Name().Short(), Commit: ref.Hash().String()})
	}
	return tags, nil
}

// LatestCommit follows the remote HEAD. Commit dates are not available from
// a ref listing.
func (a GitUpstreamAdapter) LatestCommit(ctx context.Context, repo string) (types.UpstreamCommit, error) {
	refs, err := listRemote(ctx, repo)
	if err != nil {
		return types.UpstreamCommit{}, err
	}
	byName := map[plumbing.ReferenceName]*plumbing.Reference{}
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}
	head, ok := byName[plumbing.HEAD]
	if !ok {
		return types.UpstreamCommit{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("remote %s advertises no HEAD", repo))
	}
	if head.Type() == plumbing.SymbolicReference {
		target, ok := byName[head.Target()]
		if !ok {
			return types.UpstreamCommit{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("remote %s HEAD points at missing %s", repo, head.Target()))
		}
		head = target
	}
	return types.UpstreamCommit{SHA: head.Hash().String()}, nil
}

func (a GitUpstreamAdapter) CommitBefore(context.Context, string, time.Time) (types.UpstreamCommit, bool, error) {
	return types.UpstreamCommit{}, false, nil
}

func (a GitUpstreamAdapter) ManifestVersion(_ context.Context, repo string, ref string, _ string) (string, error) {
	return "", errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("manifest of %s@%s is not readable without a clone", repo, ref))
}

func listRemote(ctx context.Context, repo string) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{strings.TrimSpace(repo)},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("failed to list remote %s", repo)).
			WithCause(err)
	}
	return refs, nil
}

var _ ports.UpstreamPort = GitUpstreamAdapter{}
