package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/security"
)

// SpecimenRequest is the body of specimen writes. LinkedNotes lists the field
// notes that should reference the specimen; omitting it leaves links alone.
type SpecimenRequest struct {
	bureau.SpecimenInput
	LinkedNotes []string `json:"linkedNotes"`
}

func (c *Controller) initSpecimenRoutes() {
	c.Group.GET("/specimens", c.ListSpecimens)
	c.Group.GET("/specimens/:id", c.GetSpecimen)
	c.Group.GET("/specimens/:id/dossier", c.GetDossier)
	c.Group.POST("/specimens", c.SaveSpecimen, c.authMiddleware)
	c.Group.PUT("/specimens/:id", c.SaveSpecimen, c.authMiddleware)
	c.Group.DELETE("/specimens/:id", c.DeleteSpecimen, c.authMiddleware)
}

// ListSpecimens handles GET /specimens?status=&threat=&sort=
func (c *Controller) ListSpecimens(ctx echo.Context) error {
	filter := bureau.GalleryFilter{
		Status: datastore.Status(ctx.QueryParam("status")),
		Threat: datastore.ThreatLevel(ctx.QueryParam("threat")),
		Sort:   ctx.QueryParam("sort"),
	}
	specimens, err := c.svc.Gallery(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, specimens)
}

// GetSpecimen handles GET /specimens/:id
func (c *Controller) GetSpecimen(ctx echo.Context) error {
	specimen, err := c.svc.GetSpecimen(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, specimen)
}

// GetDossier handles GET /specimens/:id/dossier
func (c *Controller) GetDossier(ctx echo.Context) error {
	dossier, err := c.svc.Dossier(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dossier)
}

// SaveSpecimen handles POST /specimens and PUT /specimens/:id
func (c *Controller) SaveSpecimen(ctx echo.Context) error {
	var req SpecimenRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	// the path decides between create and update
	req.ID = ctx.Param("id")

	res, err := c.svc.SaveSpecimen(ctx.Request().Context(), actor(ctx), req.SpecimenInput, req.LinkedNotes)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}

	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}

// DeleteSpecimen handles DELETE /specimens/:id?confirm=
func (c *Controller) DeleteSpecimen(ctx echo.Context) error {
	if err := c.svc.DeleteSpecimen(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("confirm")); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func adminEmail(ctx echo.Context) string {
	return security.AdminEmail(ctx)
}
