package config

const (
	// MaxFolderNameLength is the maximum length for folder names (after trimming).
	MaxFolderNameLength = 100

	// MaxFileNameLength is the maximum length for file display names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFileNameLength = 255

	// MaxUserNameLength is the maximum length for account display names.
	MaxUserNameLength = 100

	// MinPasswordLength is the minimum accepted password length on registration.
	MinPasswordLength = 8

	// MinSearchLength is the shortest accepted search term.
	MinSearchLength = 2

	// SearchResultLimit caps folder and file search results.
	SearchResultLimit = 50

	// DescendantDepthLimit bounds the subtree walk used to refuse cyclic moves.
	DescendantDepthLimit = 10

	// PathDepthLimit bounds the ancestor walk used to build breadcrumbs.
	PathDepthLimit = 20

	// MaxUploadFiles is the number of files accepted by a single upload request.
	MaxUploadFiles = 10

	// DefaultPageSize and MaxPageSize apply to paginated file listings.
	DefaultPageSize = 20
	MaxPageSize     = 100
)
