package types

type Classification string

const (
	ClassificationNotInSource Classification = "not-in-source"
	ClassificationNotInMirror Classification = "not-in-mirror"
	ClassificationUpToDate    Classification = "up-to-date"
	ClassificationOutdated    Classification = "outdated"
	ClassificationUnstable    Classification = "unstable"
)

// ResolutionKind names the strategy that located the upstream content.
// The declaration order is the resolution priority order.
type ResolutionKind string

const (
	ResolutionReleaseAsset  ResolutionKind = "releaseAsset"
	ResolutionReleaseTag    ResolutionKind = "releaseTag"
	ResolutionTag           ResolutionKind = "tag"
	ResolutionLatest        ResolutionKind = "latest"
	ResolutionMatchedLatest ResolutionKind = "matchedLatest"
	ResolutionMatched       ResolutionKind = "matched"
)

type TaskStatus string

const (
	TaskStatusSuccess  TaskStatus = "success"
	TaskStatusFailure  TaskStatus = "failure"
	TaskStatusTimedOut TaskStatus = "timed-out"
)

type RegistryFormat string

const (
	RegistryFormatJSON RegistryFormat = "json"
	RegistryFormatYAML RegistryFormat = "yaml"
	RegistryFormatTOML RegistryFormat = "toml"
)
