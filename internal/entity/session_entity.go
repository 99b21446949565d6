package entity

import "time"

// Session is a point-in-time snapshot of the authentication state. The
// session service hands out copies; mutating a snapshot has no effect.
type Session struct {
	CurrentUser     *UserProfile
	IsAuthenticated bool
	Loading         bool
	Error           string
	// TokenExpiresAt is an informational hint parsed from the token's
	// claims. Zero when unknown. Validity is always decided by the server.
	TokenExpiresAt time.Time
}
