package core

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extension-mirror/internal/types"
)

func TestAccountantRecordReplacesPriorEntry(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant()

	accountant.Record(ctx, "acme.widget", types.ClassificationOutdated, types.ReportEntry{SourceVersion: "2.0.0", MirrorVersion: "1.0.0"})
	accountant.Record(ctx, "acme.widget", types.ClassificationUpToDate, types.ReportEntry{SourceVersion: "2.0.0", MirrorVersion: "2.0.0"})

	classification, ok := accountant.Classification("acme.widget")
	require.True(t, ok)
	assert.Equal(t, types.ClassificationUpToDate, classification)

	report := accountant.Report(fixedNow)
	assert.Len(t, report.UpToDate, 1)
	assert.Empty(t, report.Outdated)
	assert.Equal(t, 1, report.Summary.Total)
}

func TestAccountantRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant()
	entry := types.ReportEntry{SourceVersion: "1.0.0", MirrorVersion: "1.0.0", InstallCount: 10}
	for i := 0; i < 3; i++ {
		accountant.Record(ctx, "acme.widget", types.ClassificationUpToDate, entry)
	}
	report := accountant.Report(fixedNow)
	if diff := cmp.Diff(map[string]types.ReportEntry{"acme.widget": entry}, report.UpToDate); diff != "" {
		t.Fatalf("unexpected up-to-date bucket (-want +got):\n%s", diff)
	}
}

func TestAccountantBucketsAreExclusive(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant()
	classifications := []types.Classification{
		types.ClassificationNotInSource,
		types.ClassificationNotInMirror,
		types.ClassificationOutdated,
		types.ClassificationUnstable,
		types.ClassificationUpToDate,
	}
	for _, classification := range classifications {
		accountant.Record(ctx, "acme.widget", classification, types.ReportEntry{})
	}
	report := accountant.Report(fixedNow)
	occurrences := len(report.UpToDate) + len(report.Outdated) + len(report.Unstable) + len(report.NotInMirror) + len(report.NotInSource)
	assert.Equal(t, 1, occurrences)
	assert.Contains(t, report.UpToDate, "acme.widget")
}

func TestAccountantReport(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant()
	accountant.Record(ctx, "b.up", types.ClassificationUpToDate, types.ReportEntry{SourceVersion: "1.0.0", MirrorVersion: "1.0.0", InstallCount: 300, RecentlyUpdated: true})
	accountant.Record(ctx, "a.old", types.ClassificationOutdated, types.ReportEntry{SourceVersion: "2.0.0", MirrorVersion: "1.0.0", InstallCount: 100})
	accountant.Record(ctx, "c.ahead", types.ClassificationUnstable, types.ReportEntry{SourceVersion: "1.0.0", MirrorVersion: "1.1.0"})
	accountant.Record(ctx, "d.missing", types.ClassificationNotInMirror, types.ReportEntry{SourceVersion: "0.1.0", RecentlyUpdated: true})
	accountant.Record(ctx, "z.gone", types.ClassificationNotInSource, types.ReportEntry{MirrorVersion: "1.0.0", InstallCount: 5000})
	accountant.Record(ctx, "e.gone", types.ClassificationNotInSource, types.ReportEntry{})
	accountant.RecordResolution(ctx, "a.old", types.Resolution{Kind: types.ResolutionTag, Repo: testRepo, Ref: "v2.0.0"})
	accountant.MarkFailed(ctx, "a.old")
	accountant.MarkFailed(ctx, "a.old")

	report := accountant.Report(fixedNow)

	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, []string{"e.gone", "z.gone"}, report.NotInSource)
	assert.Equal(t, []string{"b.up", "d.missing"}, report.RecentlyUpdated)
	assert.Equal(t, []string{"a.old"}, report.Failed)
	assert.Equal(t, "v2.0.0", report.Resolutions["a.old"].Ref)
	assert.True(t, accountant.IsFailed("a.old"))
	assert.False(t, accountant.IsFailed("b.up"))

	want := types.ReportSummary{
		Total:            6,
		UpToDate:         1,
		Outdated:         1,
		Unstable:         1,
		NotInMirror:      1,
		NotInSource:      2,
		Failed:           1,
		UpToDateWeighted: 75,
	}
	if diff := cmp.Diff(want, report.Summary); diff != "" {
		t.Fatalf("unexpected summary (-want +got):\n%s", diff)
	}
}

func TestAccountantEmptyReport(t *testing.T) {
	report := NewAccountant().Report(fixedNow)
	assert.NotNil(t, report.UpToDate)
	assert.NotNil(t, report.Failed)
	assert.Zero(t, report.Summary.Total)
	assert.Zero(t, report.Summary.UpToDateWeighted)
}
