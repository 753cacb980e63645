package security

import (
	"context"
	"strings"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// Screen is what the admin page shows a visitor.
type Screen string

const (
	ScreenAuth      Screen = "auth"      // not signed in
	ScreenDenied    Screen = "denied"    // signed in but not an admin
	ScreenDashboard Screen = "dashboard" // signed in admin
)

// Authorizer decides which admin screen a signed-in email may see.
type Authorizer struct {
	svc           *bureau.Service
	initialAdmins []string
	metrics       *metrics.HTTPMetrics
}

// NewAuthorizer returns an authorizer backed by the site settings of svc.
// initialAdmins seed the allow-list when no settings exist yet. m may be nil.
func NewAuthorizer(svc *bureau.Service, initialAdmins []string, m *metrics.HTTPMetrics) *Authorizer {
	return &Authorizer{svc: svc, initialAdmins: initialAdmins, metrics: m}
}

// Seed creates the settings row from the configured initial admins. It is a
// no-op when none are configured or the row already exists.
func (a *Authorizer) Seed(ctx context.Context) error {
	if len(a.initialAdmins) == 0 {
		return nil
	}
	_, created, err := a.svc.Bootstrap(ctx, a.initialAdmins)
	if err != nil {
		return err
	}
	if created {
		GetLogger().Info("admin allow-list seeded from configuration",
			logger.Int("admins", len(a.initialAdmins)))
	}
	return nil
}

// Resolve maps an email to a screen. The first sign-in on a fresh install
// becomes the sole admin.
func (a *Authorizer) Resolve(ctx context.Context, email string) (Screen, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ScreenAuth, nil
	}

	admins := append([]string{email}, a.initialAdmins...)
	settings, created, err := a.svc.Bootstrap(ctx, admins)
	if err != nil {
		a.metrics.RecordAuth("failed")
		return ScreenAuth, err
	}
	if created {
		GetLogger().Info("first sign-in claimed the dashboard", logger.String("email", email))
	}

	if !bureau.IsAdmin(settings, email) {
		a.metrics.RecordAuth(string(ScreenDenied))
		GetLogger().Warn("sign-in denied, not on the admin allow-list", logger.String("email", email))
		return ScreenDenied, nil
	}
	a.metrics.RecordAuth(string(ScreenDashboard))
	return ScreenDashboard, nil
}
