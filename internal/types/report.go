package types

import "time"

type ReportEntry struct {
	SourceVersion   string `json:"sourceVersion,omitempty"`
	MirrorVersion   string `json:"mirrorVersion,omitempty"`
	InstallCount    int64  `json:"installCount,omitempty"`
	RecentlyUpdated bool   `json:"recentlyUpdated,omitempty"`
}

type ReportSummary struct {
	Total       int `json:"total"`
	UpToDate    int `json:"upToDate"`
	Outdated    int `json:"outdated"`
	Unstable    int `json:"unstable"`
	NotInMirror int `json:"notInMirror"`
	NotInSource int `json:"notInSource"`
	Failed      int `json:"failed"`

	// UpToDateWeighted is the share of source installs covered by packages
	// that are up to date in the mirror, in percent.
	UpToDateWeighted float64 `json:"upToDateWeighted"`
}

// RunReport is the serialized outcome of one batch. A package id appears in
// at most one of the four classification maps, or in NotInSource.
type RunReport struct {
	GeneratedAt     time.Time              `json:"generatedAt"`
	UpToDate        map[string]ReportEntry `json:"upToDate"`
	Outdated        map[string]ReportEntry `json:"outdated"`
	Unstable        map[string]ReportEntry `json:"unstable"`
	NotInMirror     map[string]ReportEntry `json:"notInMirror"`
	NotInSource     []string               `json:"notInSource"`
	RecentlyUpdated []string               `json:"recentlyUpdated"`
	Failed          []string               `json:"failed"`
	Resolutions     map[string]Resolution  `json:"resolutions"`
	Summary         ReportSummary          `json:"summary"`
}

func NewRunReport() RunReport {
	return RunReport{
		UpToDate:        map[string]ReportEntry{},
		Outdated:        map[string]ReportEntry{},
		Unstable:        map[string]ReportEntry{},
		NotInMirror:     map[string]ReportEntry{},
		NotInSource:     []string{},
		RecentlyUpdated: []string{},
		Failed:          []string{},
		Resolutions:     map[string]Resolution{},
	}
}
