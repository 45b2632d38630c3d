package core

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// versionCache memoizes parsed versions and ranges for one version scheme.
// Modules and contracts are always semver; components declare a scheme.
type versionCache struct {
	scheme types.VersionScheme
	sem    map[string]*semver.Version
	ranges map[string]*semver.Constraints
	deb    map[string]debversion.Version
	pep    map[string]pep440.Version
}

// newVersionCache creates an empty cache for the given scheme. An empty
// scheme means semver.
func newVersionCache(scheme types.VersionScheme) *versionCache {
	if scheme == "" {
		scheme = types.VersionSchemeSemver
	}
	return &versionCache{
		scheme: scheme,
		sem:    map[string]*semver.Version{},
		ranges: map[string]*semver.Constraints{},
		deb:    map[string]debversion.Version{},
		pep:    map[string]pep440.Version{},
	}
}

// semverVersion parses a strict semver version, caching the result.
func (c *versionCache) semverVersion(value string) (*semver.Version, error) {
	if parsed, ok := c.sem[value]; ok {
		return parsed, nil
	}
	parsed, err := semver.StrictNewVersion(value)
	if err != nil {
		return nil, err
	}
	c.sem[value] = parsed
	return parsed, nil
}

// semverRange parses a range expression, caching the result.
func (c *versionCache) semverRange(value string) (*semver.Constraints, error) {
	key := normalizeRange(value)
	if parsed, ok := c.ranges[key]; ok {
		return parsed, nil
	}
	parsed, err := semver.NewConstraint(key)
	if err != nil {
		return nil, err
	}
	c.ranges[key] = parsed
	return parsed, nil
}

// debVersion returns a parsed Debian version, caching the result.
func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

// pepVersion returns a parsed PEP 440 version, caching the result.
func (c *versionCache) pepVersion(value string) (pep440.Version, error) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

// parse checks that value is a valid version under the cache's scheme.
func (c *versionCache) parse(value string) error {
	var err error
	switch c.scheme {
	case types.VersionSchemeSemver:
		_, err = c.semverVersion(value)
	case types.VersionSchemeDebian:
		_, err = c.debVersion(value)
	case types.VersionSchemePep440:
		_, err = c.pepVersion(value)
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported version scheme: %s", c.scheme))
	}
	return err
}

// compare returns -1, 0, or 1 comparing two version strings using the
// cache's scheme. Returns 0 on parse errors.
func (c *versionCache) compare(a string, b string) int {
	switch c.scheme {
	case types.VersionSchemeSemver:
		v1, err := c.semverVersion(a)
		if err != nil {
			return 0
		}
		v2, err := c.semverVersion(b)
		if err != nil {
			return 0
		}
		return v1.Compare(v2)
	case types.VersionSchemeDebian:
		v1, err := c.debVersion(a)
		if err != nil {
			return 0
		}
		v2, err := c.debVersion(b)
		if err != nil {
			return 0
		}
		return v1.Compare(v2)
	case types.VersionSchemePep440:
		v1, err := c.pepVersion(a)
		if err != nil {
			return 0
		}
		v2, err := c.pepVersion(b)
		if err != nil {
			return 0
		}
		return v1.Compare(v2)
	default:
		return 0
	}
}

// satisfies reports whether a semver version lies inside a range.
func (c *versionCache) satisfies(version string, rng string) (bool, error) {
	v, err := c.semverVersion(version)
	if err != nil {
		return false, err
	}
	constraint, err := c.semverRange(rng)
	if err != nil {
		return false, err
	}
	return constraint.Check(v), nil
}

// sortDescending returns a copy of values ordered newest first.
// Unparseable versions sort after parseable ones, lexicographically.
func (c *versionCache) sortDescending(values []string) []string {
	ordered := append([]string(nil), values...)
	sort.SliceStable(ordered, func(i, j int) bool {
		errI := c.parse(ordered[i])
		errJ := c.parse(ordered[j])
		switch {
		case errI != nil && errJ != nil:
			return ordered[i] < ordered[j]
		case errI != nil:
			return false
		case errJ != nil:
			return true
		}
		return c.compare(ordered[i], ordered[j]) > 0
	})
	return ordered
}

// matchingVersions filters available semver versions to those inside rng,
// newest first.
func matchingVersions(available []string, rng string, cache *versionCache) ([]string, error) {
	var out []string
	for _, version := range available {
		ok, err := cache.satisfies(version, rng)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, version)
		}
	}
	return cache.sortDescending(out), nil
}

// BestCompatibleVersion selects the highest version from available that
// lies inside rng.
func BestCompatibleVersion(module string, rng string, available []string) (string, error) {
	if len(available) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no available versions for %s", module))
	}
	cache := newVersionCache(types.VersionSchemeSemver)
	candidates, err := matchingVersions(available, rng, cache)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version range for %s", module)).
			WithCause(err)
	}
	if len(candidates) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no compatible version for %s", module))
	}
	return candidates[0], nil
}

// LatestVersion returns the newest of the given versions under scheme.
func LatestVersion(scheme types.VersionScheme, versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	return newVersionCache(scheme).sortDescending(versions)[0]
}

// SortVersionsDescending orders versions newest first under scheme.
func SortVersionsDescending(scheme types.VersionScheme, versions []string) []string {
	return newVersionCache(scheme).sortDescending(versions)
}
