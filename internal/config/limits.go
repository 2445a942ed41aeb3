package config

// Validation limits for domain models.
const (
	// MaxNameLength is the maximum length for project and user display names
	MaxNameLength = 255

	// MaxPropertyKeyLength is the maximum length for a key in a properties map
	MaxPropertyKeyLength = 255

	// MaxPropertyValueLength is the maximum length for a value in a properties map
	MaxPropertyValueLength = 4096

	// MaxTagsPerResource is the maximum number of tags on a project or user
	MaxTagsPerResource = 50

	// MaxProvidersPerType is the maximum number of providers referenced by a project type
	MaxProvidersPerType = 25
)
