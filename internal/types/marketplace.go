package types

import "time"

// MarketplaceSnapshot is what a marketplace knows about the latest
// non-prerelease version of a package. A nil snapshot means the marketplace
// does not know the package at all.
type MarketplaceSnapshot struct {
	Version       string    `json:"version"`
	LastUpdated   time.Time `json:"lastUpdated"`
	InstallCount  int64     `json:"installCount"`
	PublisherName string    `json:"publisherName"`
	Prerelease    bool      `json:"prerelease,omitempty"`
}

// QueryFlags mirrors the gallery extension query flags. Registries that do
// not understand them ignore them.
type QueryFlags int

const (
	QueryFlagNone                       QueryFlags = 0x0
	QueryFlagIncludeVersions            QueryFlags = 0x1
	QueryFlagIncludeFiles               QueryFlags = 0x2
	QueryFlagIncludeCategoryAndTags     QueryFlags = 0x4
	QueryFlagIncludeSharedAccounts      QueryFlags = 0x8
	QueryFlagIncludeVersionProperties   QueryFlags = 0x10
	QueryFlagExcludeNonValidated        QueryFlags = 0x20
	QueryFlagIncludeInstallationTargets QueryFlags = 0x40
	QueryFlagIncludeAssetURI            QueryFlags = 0x80
	QueryFlagIncludeStatistics          QueryFlags = 0x100
	QueryFlagIncludeLatestVersionOnly   QueryFlags = 0x200
	QueryFlagUnpublished                QueryFlags = 0x1000
)

// DefaultQueryFlags asks for every version with its properties so the
// prerelease marker can be inspected, plus install statistics.
const DefaultQueryFlags = QueryFlagIncludeVersions |
	QueryFlagIncludeVersionProperties |
	QueryFlagIncludeStatistics |
	QueryFlagExcludeNonValidated

func (f QueryFlags) Has(flag QueryFlags) bool {
	return f&flag == flag
}
