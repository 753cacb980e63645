package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
)

// PublicSettings is the part of the site settings every visitor sees.
type PublicSettings struct {
	MarqueeMessage string               `json:"marqueeMessage"`
	SiteStatus     datastore.SiteStatus `json:"siteStatus"`
	BannerColor    string               `json:"bannerColor,omitempty"`
}

func (c *Controller) initSettingsRoutes() {
	c.Group.GET("/settings", c.GetPublicSettings)
	c.Group.GET("/settings/admin", c.GetSettings, c.authMiddleware)
	c.Group.PUT("/settings", c.UpdateSettings, c.authMiddleware)
}

// GetPublicSettings handles GET /settings
func (c *Controller) GetPublicSettings(ctx echo.Context) error {
	settings, err := c.svc.SiteSettings(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, PublicSettings{
		MarqueeMessage: settings.MarqueeMessage,
		SiteStatus:     settings.SiteStatus,
		BannerColor:    bureau.BannerColor(settings.SiteStatus),
	})
}

// GetSettings handles GET /settings/admin, including the admin allow-list.
func (c *Controller) GetSettings(ctx echo.Context) error {
	settings, err := c.svc.SiteSettings(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /settings
func (c *Controller) UpdateSettings(ctx echo.Context) error {
	var in bureau.SettingsInput
	if err := ctx.Bind(&in); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	settings, err := c.svc.UpdateSiteSettings(ctx.Request().Context(), in)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, settings)
}
