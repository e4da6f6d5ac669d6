package core

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// versionCache memoizes parsed version objects. Marketplace versions are
// semantic versions; PEP 440 parsing accepts them and treats "1.0" and
// "1.0.0" as equal. Strings PEP 440 rejects (e.g. "1.0.0-next.3") fall back
// to Debian ordering, which accepts almost anything that starts with a digit.
type versionCache struct {
	pep    map[string]pep440.Version
	pepBad map[string]struct{}
	deb    map[string]debversion.Version
	debBad map[string]struct{}
}

func newVersionCache() *versionCache {
	return &versionCache{
		pep:    map[string]pep440.Version{},
		pepBad: map[string]struct{}{},
		deb:    map[string]debversion.Version{},
		debBad: map[string]struct{}{},
	}
}

// pepVersion returns a parsed PEP 440 version, caching both hits and misses.
func (c *versionCache) pepVersion(value string) (pep440.Version, bool) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, true
	}
	if _, bad := c.pepBad[value]; bad {
		return pep440.Version{}, false
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		c.pepBad[value] = struct{}{}
		return pep440.Version{}, false
	}
	c.pep[value] = parsed
	return parsed, true
}

// debVersion returns a parsed Debian version, caching both hits and misses.
func (c *versionCache) debVersion(value string) (debversion.Version, bool) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, true
	}
	if _, bad := c.debBad[value]; bad {
		return debversion.Version{}, false
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		c.debBad[value] = struct{}{}
		return debversion.Version{}, false
	}
	c.deb[value] = parsed
	return parsed, true
}

// compare returns -1, 0, or 1. Both sides are compared with the same
// scheme; when neither scheme parses both, the trimmed strings are compared.
func (c *versionCache) compare(a string, b string) int {
	a = normalizeVersion(a)
	b = normalizeVersion(b)
	if a == b {
		return 0
	}
	if v1, ok := c.pepVersion(a); ok {
		if v2, ok := c.pepVersion(b); ok {
			return sign(v1.Compare(v2))
		}
	}
	if v1, ok := c.debVersion(a); ok {
		if v2, ok := c.debVersion(b); ok {
			return sign(v1.Compare(v2))
		}
	}
	return strings.Compare(a, b)
}

func normalizeVersion(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 1 && (value[0] == 'v' || value[0] == 'V') && value[1] >= '0' && value[1] <= '9' {
		return value[1:]
	}
	return value
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

var sharedVersions = newVersionCache()

// CompareVersions orders two version strings by semantic-version precedence.
// It is not safe for concurrent use; the orchestrator is single threaded.
func CompareVersions(a string, b string) int {
	return sharedVersions.compare(a, b)
}

// VersionsEqual reports semantic-version equality, not string equality.
func VersionsEqual(a string, b string) bool {
	return CompareVersions(a, b) == 0
}
