package core

import (
	"strings"
	"time"

	"extension-mirror/internal/types"
)

// RecentWindow is how far back a source update still counts as recent.
const RecentWindow = 30 * 24 * time.Hour

// Classify compares the source and mirror versions of one package. An empty
// string means the registry does not know the package. A missing source
// version always wins over the mirror state.
func Classify(sourceVersion string, mirrorVersion string) types.Classification {
	sourceVersion = strings.TrimSpace(sourceVersion)
	mirrorVersion = strings.TrimSpace(mirrorVersion)
	if sourceVersion == "" {
		return types.ClassificationNotInSource
	}
	if mirrorVersion == "" {
		return types.ClassificationNotInMirror
	}
	switch CompareVersions(sourceVersion, mirrorVersion) {
	case 0:
		return types.ClassificationUpToDate
	case 1:
		return types.ClassificationOutdated
	default:
		return types.ClassificationUnstable
	}
}

// RecentlyUpdated reports whether lastUpdated falls within RecentWindow of
// now. A zero timestamp is never recent.
func RecentlyUpdated(lastUpdated time.Time, now time.Time) bool {
	if lastUpdated.IsZero() {
		return false
	}
	return now.Sub(lastUpdated) <= RecentWindow
}

func snapshotVersion(snapshot *types.MarketplaceSnapshot) string {
	if snapshot == nil {
		return ""
	}
	return snapshot.Version
}

// classifySnapshots builds the classification and the report entry for a
// pair of snapshots.
func classifySnapshots(source *types.MarketplaceSnapshot, mirror *types.MarketplaceSnapshot, now time.Time) (types.Classification, types.ReportEntry) {
	entry := types.ReportEntry{
		SourceVersion: snapshotVersion(source),
		MirrorVersion: snapshotVersion(mirror),
	}
	if source != nil {
		entry.InstallCount = source.InstallCount
		entry.RecentlyUpdated = RecentlyUpdated(source.LastUpdated, now)
	}
	return Classify(entry.SourceVersion, entry.MirrorVersion), entry
}
