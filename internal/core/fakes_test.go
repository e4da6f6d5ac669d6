package core

import (
	"context"
	"errors"
	"time"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// fakeMarketplace serves snapshots from a map. Missing ids are unknown.
// Updates registered in after are applied once a publish has happened.
type fakeMarketplace struct {
	snapshots map[string]*types.MarketplaceSnapshot
	errs      map[string]error
	calls     map[string]int
}

func newFakeMarketplace(versions map[string]string) *fakeMarketplace {
	m := &fakeMarketplace{
		snapshots: map[string]*types.MarketplaceSnapshot{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
	for id, version := range versions {
		m.snapshots[id] = &types.MarketplaceSnapshot{Version: version}
	}
	return m
}

func (m *fakeMarketplace) GetExtension(_ context.Context, id string, _ types.QueryFlags) (*types.MarketplaceSnapshot, error) {
	m.calls[id]++
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	snapshot, ok := m.snapshots[id]
	if !ok {
		return nil, nil
	}
	copied := *snapshot
	return &copied, nil
}

func (m *fakeMarketplace) set(id string, version string) {
	m.snapshots[id] = &types.MarketplaceSnapshot{Version: version}
}

type fakeUpstream struct {
	releases    []types.UpstreamRelease
	tags        []types.UpstreamTag
	latest      types.UpstreamCommit
	latestErr   error
	before      map[string]types.UpstreamCommit
	manifests   map[string]string
	releaseErr  error
	releaseHits int
	tagHits     int
	latestHits  int
}

func (f *fakeUpstream) Releases(context.Context, string) ([]types.UpstreamRelease, error) {
	f.releaseHits++
	return f.releases, f.releaseErr
}

func (f *fakeUpstream) Tags(context.Context, string) ([]types.UpstreamTag, error) {
	f.tagHits++
	return f.tags, nil
}

func (f *fakeUpstream) LatestCommit(context.Context, string) (types.UpstreamCommit, error) {
	f.latestHits++
	if f.latestErr != nil {
		return types.UpstreamCommit{}, f.latestErr
	}
	return f.latest, nil
}

// CommitBefore returns the newest commit registered in before whose date is
// not after until.
func (f *fakeUpstream) CommitBefore(_ context.Context, _ string, until time.Time) (types.UpstreamCommit, bool, error) {
	var best types.UpstreamCommit
	found := false
	for _, commit := range f.before {
		if commit.Date.After(until) {
			continue
		}
		if !found || commit.Date.After(best.Date) {
			best = commit
			found = true
		}
	}
	return best, found, nil
}

func (f *fakeUpstream) ManifestVersion(_ context.Context, _ string, ref string, _ string) (string, error) {
	version, ok := f.manifests[ref]
	if !ok {
		return "", errors.New("manifest not found")
	}
	return version, nil
}

// fakePublisher records payloads and runs the procedure registered for the
// package id, succeeding by default.
type fakePublisher struct {
	procedures map[string]ports.Procedure
	published  []types.PublishPayload
	onSuccess  func(id string)
}

func (p *fakePublisher) NewProcedure(payload types.PublishPayload) ports.Procedure {
	p.published = append(p.published, payload)
	if procedure, ok := p.procedures[payload.ID]; ok {
		return procedure
	}
	return ports.ProcedureFunc(func(context.Context) error {
		if p.onSuccess != nil {
			p.onSuccess(payload.ID)
		}
		return nil
	})
}

func (p *fakePublisher) ids() []string {
	ids := make([]string, 0, len(p.published))
	for _, payload := range p.published {
		ids = append(ids, payload.ID)
	}
	return ids
}

type fakeWorkspace struct {
	dir    string
	resets int
}

func (w *fakeWorkspace) Reset() (string, error) {
	w.resets++
	return w.dir, nil
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}
