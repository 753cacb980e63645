package security

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	gothGoogle "github.com/markbates/goth/providers/google"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/logger"
)

// InitializeGoth configures the gothic session store and the Google provider.
// Sign-in stays unavailable, not fatal, when credentials are missing.
func InitializeGoth(settings *conf.Settings) {
	log := GetLogger()

	store := NewSessionStore(settings)
	gothic.Store = store

	if !settings.GoogleAuthConfigured() {
		goth.ClearProviders()
		log.Warn("google sign-in is not configured, the dashboard cannot be reached")
		return
	}

	google := gothGoogle.New(
		settings.Security.GoogleAuth.ClientID,
		settings.Security.GoogleAuth.ClientSecret,
		settings.CallbackURL(ProviderGoogle),
		GoogleEmailScope,
	)
	google.SetPrompt("select_account")
	goth.UseProviders(google)

	log.Info("google sign-in enabled",
		logger.String("callback", settings.CallbackURL(ProviderGoogle)))
}

// NewSessionStore returns the cookie store backing admin sessions. Keys are
// derived from the session secret.
func NewSessionStore(settings *conf.Settings) *sessions.CookieStore {
	secret := settings.Security.SessionSecret
	store := sessions.NewCookieStore(
		createSessionKey(secret),
		createSessionKey(secret+"encryption"),
	)

	maxAge := settings.Security.SessionMaxAge
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Security.Host,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   settings.Security.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	for _, codec := range store.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxLength(MaxSessionSizeBytes)
		}
	}
	return store
}

// createSessionKey creates a 32 byte key from a seed string, sized for
// AES-256 and HMAC-SHA256.
func createSessionKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}
