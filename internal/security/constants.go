package security

import "time"

const (
	// ProviderGoogle is the only federated sign-in provider.
	ProviderGoogle = "google"

	// Session keys
	SessionKeyEmail    = "userEmail"
	SessionKeyUserID   = "google_userID"
	SessionKeyReturnTo = "returnTo"

	DefaultSessionMaxAge = 7 * 24 * time.Hour
	MaxSessionSizeBytes  = 64 * 1024

	// GoogleEmailScope is the only scope requested from Google.
	GoogleEmailScope = "https://www.googleapis.com/auth/userinfo.email"

	// AdminPath is where pages redirect unauthenticated users.
	AdminPath = "/admin"
)
