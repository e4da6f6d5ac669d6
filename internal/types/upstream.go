package types

import "time"

type UpstreamRelease struct {
	TagName    string
	Name       string
	Draft      bool
	Prerelease bool
	Assets     []UpstreamAsset
}

type UpstreamAsset struct {
	Name        string
	DownloadURL string
}

type UpstreamTag struct {
	Name   string
	Commit string
}

type UpstreamCommit struct {
	SHA  string
	Date time.Time
}
