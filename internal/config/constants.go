package config

const (
	// DefaultDatabasePath is the default path for the conversion history database
	DefaultDatabasePath = "./kindle-enex.db"

	// DefaultOutputDir is where generated .enex files go unless configured
	DefaultOutputDir = "./enex"

	// DefaultApplication is written into the application attribute of exports
	DefaultApplication = "kindle-enex"

	// DefaultMaxInputBytes caps the size of a single highlights paste (10 MB)
	DefaultMaxInputBytes = 10 * 1024 * 1024
)
