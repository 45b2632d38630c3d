package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// IndexGenerator aggregates a document set into a registry index. The
// output depends only on the documents, so regenerating an unchanged tree
// yields identical bytes.
type IndexGenerator struct {
	Generator string
}

func NewIndexGenerator(generator string) IndexGenerator {
	return IndexGenerator{Generator: generator}
}

func (g IndexGenerator) Generate(ctx context.Context, set types.DocumentSet) types.RegistryIndex {
	cache := newVersionCache(types.VersionSchemeSemver)
	byName := set.ModuleVersions()

	index := types.RegistryIndex{
		APIVersion: types.APIVersion,
		Kind:       types.KindModuleRegistry,
		Metadata: types.RegistryMetadata{
			Generator: g.Generator,
			Documents: len(set.Modules) + len(set.Components),
		},
		Summary: types.RegistrySummary{
			ByClassification: map[types.Classification]int{},
			ContractTypes:    map[string]int{},
		},
	}
	for _, name := range set.ModuleNames() {
		index.Modules = append(index.Modules, moduleEntry(name, byName[name], cache))
	}
	index.Components = componentEntries(set)

	index.Summary.Modules = len(index.Modules)
	index.Summary.ModuleVersions = len(set.Modules)
	index.Summary.Components = len(index.Components)
	for _, entry := range index.Components {
		index.Summary.ByClassification[entry.Classification]++
	}
	contracts := contractTypes(set)
	index.Summary.Contracts = len(contracts)
	for _, contractType := range contracts {
		index.Summary.ContractTypes[contractType]++
	}
	index.Metadata.Digest = registryDigest(set)

	log.Ctx(ctx).Debug().
		Int("modules", index.Summary.Modules).
		Int("components", index.Summary.Components).
		Str("digest", index.Metadata.Digest).
		Msg("registry index generated")
	return index
}

func moduleEntry(name string, versions []types.Module, cache *versionCache) types.ModuleEntry {
	ordered := newestFirst(versions, cache)
	entry := types.ModuleEntry{Name: name}
	if len(ordered) == 0 {
		return entry
	}
	latest := ordered[0]
	entry.LatestVersion = latest.Metadata.Version
	entry.Description = latest.Metadata.Description
	entry.Owner = latest.Metadata.Owner

	supported := supportedRange(latest, cache)
	entry.AvailableVersions = []string{}
	entry.SupportedVersions = []string{}
	for _, module := range ordered {
		version := module.Metadata.Version
		entry.AvailableVersions = append(entry.AvailableVersions, version)
		if module.Compatibility.Deprecated {
			entry.DeprecatedVersions = append(entry.DeprecatedVersions, version)
			continue
		}
		if inRange(version, supported, cache) {
			entry.SupportedVersions = append(entry.SupportedVersions, version)
		}
	}
	return entry
}

// supportedRange is the latest version's compatibility.supported range,
// or its major version line when none is declared.
func supportedRange(latest types.Module, cache *versionCache) string {
	if latest.Compatibility.Supported != "" {
		if _, err := cache.semverRange(latest.Compatibility.Supported); err == nil {
			return latest.Compatibility.Supported
		}
	}
	parsed, err := cache.semverVersion(latest.Metadata.Version)
	if err != nil {
		return ExactRange(latest.Metadata.Version)
	}
	return fmt.Sprintf(">=%d.0.0-0, <%d.0.0-0", parsed.Major(), parsed.Major()+1)
}

type componentAccumulator struct {
	entry    types.ComponentEntry
	versions map[string]struct{}
	fromDoc  bool
}

// componentEntries merges component documents with the component refs of
// module versions; documents win for module, classification and scheme.
func componentEntries(set types.DocumentSet) []types.ComponentEntry {
	acc := map[string]*componentAccumulator{}
	get := func(name string) *componentAccumulator {
		if entry, ok := acc[name]; ok {
			return entry
		}
		entry := &componentAccumulator{
			entry:    types.ComponentEntry{Name: name, VersionScheme: types.VersionSchemeSemver},
			versions: map[string]struct{}{},
		}
		acc[name] = entry
		return entry
	}
	for _, component := range set.Components {
		entry := get(component.Metadata.Name)
		entry.versions[component.Metadata.Version] = struct{}{}
		if !entry.fromDoc {
			entry.entry.Module = component.Metadata.Module
			entry.entry.Classification = component.Classification()
			entry.entry.VersionScheme = component.Scheme()
			entry.fromDoc = true
		}
	}
	for _, module := range set.Modules {
		for _, ref := range module.Components.All() {
			entry := get(ref.Name)
			entry.versions[ref.Version] = struct{}{}
			if entry.entry.Module == "" {
				entry.entry.Module = module.Metadata.Name
				entry.entry.Classification = ref.Classification
			}
		}
	}

	names := make([]string, 0, len(acc))
	for name := range acc {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]types.ComponentEntry, 0, len(names))
	for _, name := range names {
		entry := acc[name].entry
		versions := make([]string, 0, len(acc[name].versions))
		for version := range acc[name].versions {
			versions = append(versions, version)
		}
		entry.AvailableVersions = SortVersionsDescending(entry.VersionScheme, versions)
		if len(entry.AvailableVersions) > 0 {
			entry.LatestVersion = entry.AvailableVersions[0]
		}
		out = append(out, entry)
	}
	return out
}

// contractTypes maps every distinct contract name to its type. Module
// declarations take precedence over component ones.
func contractTypes(set types.DocumentSet) map[string]string {
	out := map[string]string{}
	for _, module := range set.Modules {
		for _, contract := range module.Contracts {
			out[contract.Name] = contract.Type
		}
	}
	for _, component := range set.Components {
		for _, contract := range component.Contracts {
			if _, ok := out[contract.Name]; !ok {
				out[contract.Name] = contract.Type
			}
		}
	}
	return out
}

func registryDigest(set types.DocumentSet) string {
	var lines []string
	for _, module := range set.Modules {
		lines = append(lines, "module "+module.Ref())
		for _, ref := range module.Components.All() {
			lines = append(lines, fmt.Sprintf("module %s component %s@%s", module.Ref(), ref.Name, ref.Version))
		}
		for _, contract := range module.Contracts {
			lines = append(lines, fmt.Sprintf("module %s contract %s@%s", module.Ref(), contract.Name, contract.Version))
		}
	}
	for _, component := range set.Components {
		lines = append(lines, "component "+component.Ref())
	}
	sort.Strings(lines)
	return digestLines(lines)
}
