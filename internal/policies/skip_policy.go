package policies

import (
	"strings"

	"extension-mirror/internal/types"
)

type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipUpToDate         SkipReason = "up-to-date"
	SkipMirrorAhead      SkipReason = "mirror-ahead"
	SkipAlreadyPublished SkipReason = "already-published"
)

// SkipPolicy decides whether a package needs republishing. Force disables
// every rule. The mirror is never downgraded unless forced.
type SkipPolicy struct {
	Force   bool
	Compare func(a string, b string) int
}

func NewSkipPolicy(force bool, compare func(a string, b string) int) SkipPolicy {
	return SkipPolicy{Force: force, Compare: compare}
}

// BeforeResolve applies the classification rules.
func (p SkipPolicy) BeforeResolve(classification types.Classification) SkipReason {
	if p.Force {
		return SkipNone
	}
	switch classification {
	case types.ClassificationUpToDate:
		return SkipUpToDate
	case types.ClassificationUnstable:
		return SkipMirrorAhead
	default:
		return SkipNone
	}
}

// AfterResolve skips a package whose resolved content declares the version
// the mirror already serves.
func (p SkipPolicy) AfterResolve(resolution types.Resolution, mirrorVersion string) SkipReason {
	if p.Force {
		return SkipNone
	}
	resolved := strings.TrimSpace(resolution.Version)
	mirrorVersion = strings.TrimSpace(mirrorVersion)
	if resolved == "" || mirrorVersion == "" {
		return SkipNone
	}
	if p.compare(resolved, mirrorVersion) == 0 {
		return SkipAlreadyPublished
	}
	return SkipNone
}

func (p SkipPolicy) compare(a string, b string) int {
	if p.Compare != nil {
		return p.Compare(a, b)
	}
	return strings.Compare(a, b)
}
