package http

import (
	"github.com/mrlokans/kindle-enex/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Converter Converter
	Database  *database.Database

	// Optional background cleanup trigger, nil when the task queue is off
	Cleanup CleanupTrigger

	// Flash messages after form posts; nil renders results inline
	SessionManager *SessionManager

	// CSRF protection for the paste form; empty disables it
	CSRFSecret    []byte
	SecureCookies bool

	// Largest accepted highlights paste in bytes; 0 means no limit
	MaxInputBytes int64

	// Application info
	Version string
}
