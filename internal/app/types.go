package app

import "extension-mirror/internal/types"

type ValidateRequest struct {
	RegistryPath string
	Extensions   []string
}

type ValidateResult struct {
	Format   types.RegistryFormat
	Total    int
	Selected []string
	Unknown  []string
}

type SyncRequest struct {
	RegistryPath   string
	Extensions     []string
	Force          bool
	SkipBuild      bool
	PublishCommand string
	PublishEnv     []string
	ReportPath     string
	FailedListPath string
	WorkDir        string

	GalleryURL  string
	OpenVSXURL  string
	GitHubAPI   string
	GitHubToken string
	GitHubHosts []string
	CacheSize   int
	QueryFlags  int

	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
}

type SyncResult struct {
	Report         types.RunReport
	ReportPath     string
	FailedListPath string
	Selected       int
	Unknown        []string
}
