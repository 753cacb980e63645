package bureau

import (
	"context"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
)

// DefaultMarquee is the banner text written when the site is bootstrapped.
const DefaultMarquee = "/// SYSTEM STATUS: OPERATIONAL /// CLASSIFIED DOCUMENTS ///"

// DefaultSiteSettings returns the settings used before any row exists.
func DefaultSiteSettings() *datastore.SiteSettings {
	return &datastore.SiteSettings{
		ID:             datastore.SettingsID,
		AllowedAdmins:  datastore.StringList{},
		MarqueeMessage: DefaultMarquee,
		SiteStatus:     datastore.SiteOperational,
	}
}

// SettingsInput is the dashboard settings form.
type SettingsInput struct {
	AllowedAdmins  []string             `json:"allowedAdmins"`
	MarqueeMessage string               `json:"marqueeMessage"`
	SiteStatus     datastore.SiteStatus `json:"siteStatus"`
}

// SiteSettings returns the stored settings, or the defaults when the site has
// not been bootstrapped yet.
func (s *Service) SiteSettings(ctx context.Context) (*datastore.SiteSettings, error) {
	settings, err := s.store.GetSettings(ctx)
	if errors.IsNotFound(err) {
		return DefaultSiteSettings(), nil
	}
	return settings, err
}

// UpdateSiteSettings validates and stores the settings form.
func (s *Service) UpdateSiteSettings(ctx context.Context, in SettingsInput) (*datastore.SiteSettings, error) {
	if in.SiteStatus == "" {
		in.SiteStatus = datastore.SiteOperational
	}
	if !in.SiteStatus.Valid() {
		return nil, invalidValue("siteStatus", in.SiteStatus, datastore.SiteStatuses)
	}
	admins, err := normalizeAdmins(in.AllowedAdmins)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, invalid("allowedAdmins", MsgAdminRequired)
	}

	current, err := s.SiteSettings(ctx)
	if err != nil {
		return nil, err
	}
	current.AllowedAdmins = admins
	current.MarqueeMessage = strings.TrimSpace(in.MarqueeMessage)
	current.SiteStatus = in.SiteStatus

	if err := s.store.SaveSettings(ctx, current); err != nil {
		return nil, err
	}
	GetLogger().Info("site settings updated",
		logger.String("site_status", string(current.SiteStatus)),
		logger.Int("admins", len(admins)))
	return current, nil
}

// Bootstrap creates the settings row with the given admins when none exists.
// It returns the stored settings and whether this call created them.
func (s *Service) Bootstrap(ctx context.Context, admins []string) (*datastore.SiteSettings, bool, error) {
	normalized, err := normalizeAdmins(admins)
	if err != nil {
		return nil, false, err
	}
	defaults := DefaultSiteSettings()
	defaults.AllowedAdmins = normalized

	settings, created, err := s.store.EnsureSettings(ctx, defaults)
	if err != nil {
		return nil, false, err
	}
	if created {
		GetLogger().Info("site settings bootstrapped", logger.Strings("admins", normalized))
	}
	return settings, created, nil
}

// AddAdmin grants dashboard access to email.
func (s *Service) AddAdmin(ctx context.Context, email string) (*datastore.SiteSettings, error) {
	e, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	settings, created, err := s.Bootstrap(ctx, []string{e})
	if err != nil || created {
		return settings, err
	}
	if settings.AllowedAdmins.Contains(e) {
		return settings, nil
	}
	settings.AllowedAdmins = append(settings.AllowedAdmins, e)
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// RemoveAdmin revokes dashboard access. The last admin cannot be removed.
func (s *Service) RemoveAdmin(ctx context.Context, email string) (*datastore.SiteSettings, error) {
	e, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	remaining := slices.DeleteFunc(slices.Clone(settings.AllowedAdmins), func(a string) bool {
		return strings.EqualFold(a, e)
	})
	if len(remaining) == len(settings.AllowedAdmins) {
		return nil, errors.NotFound("allowedAdmins", e)
	}
	if len(remaining) == 0 {
		return nil, invalid("allowedAdmins", MsgAdminRequired)
	}
	settings.AllowedAdmins = remaining
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// IsAdmin reports whether email is on the allow-list. Comparison ignores
// case and surrounding whitespace.
func IsAdmin(settings *datastore.SiteSettings, email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if settings == nil || e == "" {
		return false
	}
	return slices.ContainsFunc(settings.AllowedAdmins, func(a string) bool {
		return strings.ToLower(strings.TrimSpace(a)) == e
	})
}

func normalizeAdmins(admins []string) (datastore.StringList, error) {
	out := make(datastore.StringList, 0, len(admins))
	for _, a := range admins {
		if strings.TrimSpace(a) == "" {
			continue
		}
		e, err := normalizeEmail(a)
		if err != nil {
			return nil, err
		}
		if !out.Contains(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
