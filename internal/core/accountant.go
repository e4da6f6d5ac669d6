package core

import (
	"context"
	"sort"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"

	"extension-mirror/internal/types"
)

type classifiedEntry struct {
	classification types.Classification
	entry          types.ReportEntry
}

// Accountant aggregates per-package results for one batch. It has a single
// owner and no locking; a parallel orchestrator would need to serialize
// access.
type Accountant struct {
	entries     map[string]classifiedEntry
	failed      map[string]struct{}
	resolutions map[string]types.Resolution
}

func NewAccountant() *Accountant {
	return &Accountant{
		entries:     map[string]classifiedEntry{},
		failed:      map[string]struct{}{},
		resolutions: map[string]types.Resolution{},
	}
}

// Record stores the classification of a package, replacing any earlier one.
// Entries are keyed by id in a single table, so a package can never sit in
// two classifications at once.
func (a *Accountant) Record(ctx context.Context, id string, classification types.Classification, entry types.ReportEntry) {
	assert.NotEmpty(ctx, id, "package id must be set")
	assert.NotEmpty(ctx, string(classification), "classification must be set")
	delete(a.entries, id)
	a.entries[id] = classifiedEntry{classification: classification, entry: entry}
}

func (a *Accountant) Classification(id string) (types.Classification, bool) {
	current, ok := a.entries[id]
	return current.classification, ok
}

func (a *Accountant) Entry(id string) (types.ReportEntry, bool) {
	current, ok := a.entries[id]
	return current.entry, ok
}

func (a *Accountant) RecordResolution(ctx context.Context, id string, resolution types.Resolution) {
	assert.NotEmpty(ctx, id, "package id must be set")
	a.resolutions[id] = resolution
}

func (a *Accountant) MarkFailed(ctx context.Context, id string) {
	assert.NotEmpty(ctx, id, "package id must be set")
	a.failed[id] = struct{}{}
}

func (a *Accountant) IsFailed(id string) bool {
	_, ok := a.failed[id]
	return ok
}

// Failed returns the failed package ids sorted.
func (a *Accountant) Failed() []string {
	return sortedKeys(a.failed)
}

// Report renders the aggregate into the serialized report shape.
func (a *Accountant) Report(generatedAt time.Time) types.RunReport {
	report := types.NewRunReport()
	report.GeneratedAt = generatedAt.UTC()

	var totalInstalls, upToDateInstalls int64
	for id, current := range a.entries {
		switch current.classification {
		case types.ClassificationUpToDate:
			report.UpToDate[id] = current.entry
			upToDateInstalls += current.entry.InstallCount
		case types.ClassificationOutdated:
			report.Outdated[id] = current.entry
		case types.ClassificationUnstable:
			report.Unstable[id] = current.entry
		case types.ClassificationNotInMirror:
			report.NotInMirror[id] = current.entry
		case types.ClassificationNotInSource:
			report.NotInSource = append(report.NotInSource, id)
		}
		if current.classification != types.ClassificationNotInSource {
			totalInstalls += current.entry.InstallCount
		}
		if current.entry.RecentlyUpdated {
			report.RecentlyUpdated = append(report.RecentlyUpdated, id)
		}
	}
	sort.Strings(report.NotInSource)
	sort.Strings(report.RecentlyUpdated)
	report.Failed = a.Failed()
	for id, resolution := range a.resolutions {
		report.Resolutions[id] = resolution
	}

	report.Summary = types.ReportSummary{
		Total:       len(a.entries),
		UpToDate:    len(report.UpToDate),
		Outdated:    len(report.Outdated),
		Unstable:    len(report.Unstable),
		NotInMirror: len(report.NotInMirror),
		NotInSource: len(report.NotInSource),
		Failed:      len(report.Failed),
	}
	if totalInstalls > 0 {
		report.Summary.UpToDateWeighted = float64(upToDateInstalls) / float64(totalInstalls) * 100
	}
	return report
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
