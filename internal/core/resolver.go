package core

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// ResolveHint carries what the source marketplace knows about a package.
type ResolveHint struct {
	Version     string
	LastUpdated time.Time
}

// HintFromSnapshot returns nil when the source marketplace does not know the
// package or only has prereleases of it.
func HintFromSnapshot(snapshot *types.MarketplaceSnapshot) *ResolveHint {
	if snapshot == nil || snapshot.Prerelease || strings.TrimSpace(snapshot.Version) == "" {
		return nil
	}
	return &ResolveHint{Version: snapshot.Version, LastUpdated: snapshot.LastUpdated}
}

// Strategy is one entry of the resolution chain. Match returns ok=false to
// pass to the next strategy; an error aborts resolution.
type Strategy struct {
	Kind  types.ResolutionKind
	Match func(ctx context.Context, state *resolveState) (types.Resolution, bool, error)
}

// DefaultStrategies returns the resolution chain in priority order: the most
// reproducible, immutable artifacts first, approximate commit proxies last.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Kind: types.ResolutionReleaseAsset, Match: matchReleaseAsset},
		{Kind: types.ResolutionReleaseTag, Match: matchReleaseTag},
		{Kind: types.ResolutionTag, Match: matchTag},
		{Kind: types.ResolutionLatest, Match: matchLatest},
		{Kind: types.ResolutionMatchedLatest, Match: matchMatchedLatest},
		{Kind: types.ResolutionMatched, Match: matchMatched},
	}
}

type Resolver struct {
	Upstream   ports.UpstreamPort
	Strategies []Strategy
}

func NewResolver(upstream ports.UpstreamPort) Resolver {
	return Resolver{Upstream: upstream, Strategies: DefaultStrategies()}
}

// Resolve walks the strategy chain and returns the first match. The target
// version is the pinned config version when set, otherwise the hint's.
func (r Resolver) Resolve(ctx context.Context, cfg types.PackageConfig, hint *ResolveHint) (types.Resolution, error) {
	if strings.TrimSpace(cfg.Repository) == "" {
		return types.Resolution{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no repository configured for %s", cfg.ID))
	}
	state := newResolveState(r.Upstream, cfg, hint)
	strategies := r.Strategies
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return types.Resolution{}, err
		}
		resolution, ok, err := strategy.Match(ctx, state)
		if err != nil {
			return types.Resolution{}, err
		}
		if !ok {
			continue
		}
		resolution.Kind = strategy.Kind
		if resolution.Repo == "" {
			resolution.Repo = cfg.Repository
		}
		if !resolution.Valid() {
			return types.Resolution{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("%s resolution for %s has no location", strategy.Kind, cfg.ID))
		}
		log.Debug().
			Str("extension", cfg.ID).
			Str("kind", string(resolution.Kind)).
			Str("location", resolution.Location()).
			Msg("resolved upstream source")
		return resolution, nil
	}
	return types.Resolution{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("unresolved: no release, tag or commit matches %s for %s", describeTarget(state.target), cfg.ID))
}

// resolveState lazily fetches and memoizes upstream data so every upstream
// call happens at most once per resolution.
type resolveState struct {
	upstream ports.UpstreamPort
	cfg      types.PackageConfig
	hint     *ResolveHint
	target   string

	releases       []types.UpstreamRelease
	releasesLoaded bool
	tags           []types.UpstreamTag
	tagsLoaded     bool
	latest         *types.UpstreamCommit
	manifest       map[string]string
}

func newResolveState(upstream ports.UpstreamPort, cfg types.PackageConfig, hint *ResolveHint) *resolveState {
	target := strings.TrimSpace(cfg.Version)
	if target == "" && hint != nil {
		target = strings.TrimSpace(hint.Version)
	}
	return &resolveState{
		upstream: upstream,
		cfg:      cfg,
		hint:     hint,
		target:   target,
		manifest: map[string]string{},
	}
}

func (s *resolveState) loadReleases(ctx context.Context) ([]types.UpstreamRelease, error) {
	if s.releasesLoaded {
		return s.releases, nil
	}
	releases, err := s.upstream.Releases(ctx, s.cfg.Repository)
	if err != nil {
		return nil, err
	}
	s.releases = releases
	s.releasesLoaded = true
	return releases, nil
}

func (s *resolveState) loadTags(ctx context.Context) ([]types.UpstreamTag, error) {
	if s.tagsLoaded {
		return s.tags, nil
	}
	tags, err := s.upstream.Tags(ctx, s.cfg.Repository)
	if err != nil {
		return nil, err
	}
	s.tags = tags
	s.tagsLoaded = true
	return tags, nil
}

func (s *resolveState) loadLatest(ctx context.Context) (types.UpstreamCommit, error) {
	if s.latest != nil {
		return *s.latest, nil
	}
	commit, err := s.upstream.LatestCommit(ctx, s.cfg.Repository)
	if err != nil {
		return types.UpstreamCommit{}, err
	}
	s.latest = &commit
	return commit, nil
}

// manifestVersion is best effort: a missing or unreadable manifest only means
// the commit's version is unknown.
func (s *resolveState) manifestVersion(ctx context.Context, ref string) string {
	if version, ok := s.manifest[ref]; ok {
		return version
	}
	version, err := s.upstream.ManifestVersion(ctx, s.cfg.Repository, ref, s.cfg.Location)
	if err != nil {
		log.Debug().
			Err(err).
			Str("extension", s.cfg.ID).
			Str("ref", ref).
			Msg("manifest version unavailable")
		version = ""
	}
	s.manifest[ref] = version
	return version
}

// hintApplies reports whether the source timestamp describes the target
// version. A pinned version other than the source version has no timestamp.
func (s *resolveState) hintApplies() bool {
	if s.hint == nil || s.hint.LastUpdated.IsZero() {
		return false
	}
	return VersionsEqual(s.hint.Version, s.target)
}

func matchReleaseAsset(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	if s.target == "" {
		return types.Resolution{}, false, nil
	}
	releases, err := s.loadReleases(ctx)
	if err != nil {
		return types.Resolution{}, false, err
	}
	for _, release := range releases {
		if release.Draft || !tagMatchesVersion(release.TagName, s.target) {
			continue
		}
		if asset, ok := pickAsset(release.Assets, s.target, s.cfg.ExtensionFile); ok {
			return types.Resolution{
				Path:    asset.DownloadURL,
				Ref:     release.TagName,
				Version: s.target,
			}, true, nil
		}
	}
	return types.Resolution{}, false, nil
}

func matchReleaseTag(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	if s.target == "" {
		return types.Resolution{}, false, nil
	}
	releases, err := s.loadReleases(ctx)
	if err != nil {
		return types.Resolution{}, false, err
	}
	for _, release := range releases {
		if release.Draft || !tagMatchesVersion(release.TagName, s.target) {
			continue
		}
		return types.Resolution{Ref: release.TagName, Version: s.target}, true, nil
	}
	return types.Resolution{}, false, nil
}

func matchTag(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	if s.target == "" {
		return types.Resolution{}, false, nil
	}
	tags, err := s.loadTags(ctx)
	if err != nil {
		return types.Resolution{}, false, err
	}
	for _, tag := range tags {
		if tagMatchesVersion(tag.Name, s.target) {
			return types.Resolution{Ref: tag.Name, Version: s.target}, true, nil
		}
	}
	return types.Resolution{}, false, nil
}

func matchLatest(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	if s.target != "" && !s.cfg.Unmaintained {
		return types.Resolution{}, false, nil
	}
	commit, err := s.loadLatest(ctx)
	if err != nil {
		return types.Resolution{}, false, err
	}
	return types.Resolution{Ref: commit.SHA, Version: s.manifestVersion(ctx, commit.SHA)}, true, nil
}

func matchMatchedLatest(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	commit, err := s.loadLatest(ctx)
	if err != nil {
		return types.Resolution{}, false, err
	}
	version := s.manifestVersion(ctx, commit.SHA)
	if version == "" || !VersionsEqual(version, s.target) {
		return types.Resolution{}, false, nil
	}
	return types.Resolution{Ref: commit.SHA, Version: version}, true, nil
}

func matchMatched(ctx context.Context, s *resolveState) (types.Resolution, bool, error) {
	if !s.hintApplies() {
		return types.Resolution{}, false, nil
	}
	commit, found, err := s.upstream.CommitBefore(ctx, s.cfg.Repository, s.hint.LastUpdated)
	if err != nil {
		return types.Resolution{}, false, err
	}
	if !found {
		return types.Resolution{}, false, nil
	}
	return types.Resolution{Ref: commit.SHA, Version: s.manifestVersion(ctx, commit.SHA)}, true, nil
}

// tagMatchesVersion accepts "1.2.3", "v1.2.3" and prefixed forms such as
// "release-1.2.3", "name@1.2.3" or "name/v1.2.3".
func tagMatchesVersion(tag string, version string) bool {
	tag = strings.TrimSpace(tag)
	version = strings.TrimSpace(version)
	if tag == "" || version == "" {
		return false
	}
	if tag == version || normalizeVersion(tag) == normalizeVersion(version) {
		return true
	}
	bare := normalizeVersion(version)
	for _, sep := range []string{"-", "@", "/"} {
		if strings.HasSuffix(tag, sep+bare) || strings.HasSuffix(tag, sep+"v"+bare) {
			return true
		}
	}
	return false
}

// pickAsset selects the extension package among release assets. A configured
// pattern wins; otherwise a .vsix whose name mentions the version is preferred
// over any other .vsix.
func pickAsset(assets []types.UpstreamAsset, version string, pattern string) (types.UpstreamAsset, bool) {
	pattern = strings.TrimSpace(pattern)
	var fallback *types.UpstreamAsset
	for i := range assets {
		asset := assets[i]
		if asset.DownloadURL == "" {
			continue
		}
		if pattern != "" {
			if ok, _ := path.Match(pattern, asset.Name); ok {
				return asset, true
			}
			continue
		}
		if !strings.HasSuffix(strings.ToLower(asset.Name), ".vsix") {
			continue
		}
		if strings.Contains(asset.Name, normalizeVersion(version)) {
			return asset, true
		}
		if fallback == nil {
			fallback = &assets[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types.UpstreamAsset{}, false
}

func describeTarget(target string) string {
	if target == "" {
		return "latest"
	}
	return "version " + target
}
