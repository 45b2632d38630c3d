package types

const APIVersion = "registry.forge.dev/v1"

type DocumentKind string

const (
	KindModule                  DocumentKind = "Module"
	KindPrimaryComponent        DocumentKind = "PrimaryComponent"
	KindInterfaceComponent      DocumentKind = "InterfaceComponent"
	KindIntegrationComponent    DocumentKind = "IntegrationComponent"
	KindInfrastructureComponent DocumentKind = "InfrastructureComponent"
	KindApplication             DocumentKind = "Application"
	KindModuleRegistry          DocumentKind = "ModuleRegistry"
	KindApplicationLock         DocumentKind = "ApplicationLock"
)

// Classification is the role a component plays inside its module.
type Classification string

const (
	ClassificationPrimary        Classification = "primary"
	ClassificationInterface      Classification = "interface"
	ClassificationIntegration    Classification = "integration"
	ClassificationInfrastructure Classification = "infrastructure"
)

// Classifications lists every classification in display order.
var Classifications = []Classification{
	ClassificationPrimary,
	ClassificationInterface,
	ClassificationIntegration,
	ClassificationInfrastructure,
}

// ClassificationForKind maps a component document kind to its
// classification. The second return is false for non-component kinds.
func ClassificationForKind(kind DocumentKind) (Classification, bool) {
	switch kind {
	case KindPrimaryComponent:
		return ClassificationPrimary, true
	case KindInterfaceComponent:
		return ClassificationInterface, true
	case KindIntegrationComponent:
		return ClassificationIntegration, true
	case KindInfrastructureComponent:
		return ClassificationInfrastructure, true
	default:
		return "", false
	}
}

// KindForClassification is the inverse of ClassificationForKind.
func KindForClassification(c Classification) DocumentKind {
	switch c {
	case ClassificationPrimary:
		return KindPrimaryComponent
	case ClassificationInterface:
		return KindInterfaceComponent
	case ClassificationIntegration:
		return KindIntegrationComponent
	case ClassificationInfrastructure:
		return KindInfrastructureComponent
	default:
		return ""
	}
}

type VersionScheme string

const (
	VersionSchemeSemver VersionScheme = "semver"
	VersionSchemePep440 VersionScheme = "pep440"
	VersionSchemeDebian VersionScheme = "debian"
)

type DataClassification string

const (
	DataPublic       DataClassification = "public"
	DataInternal     DataClassification = "internal"
	DataConfidential DataClassification = "confidential"
	DataRestricted   DataClassification = "restricted"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)
