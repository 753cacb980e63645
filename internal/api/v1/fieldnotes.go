package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
)

func (c *Controller) initFieldNoteRoutes() {
	c.Group.GET("/fieldnotes", c.ListFieldNotes)
	c.Group.GET("/fieldnotes/:id", c.GetFieldNote)
	c.Group.POST("/fieldnotes", c.SaveFieldNote, c.authMiddleware)
	c.Group.PUT("/fieldnotes/:id", c.SaveFieldNote, c.authMiddleware)
	c.Group.DELETE("/fieldnotes/:id", c.DeleteFieldNote, c.authMiddleware)
}

// ListFieldNotes handles GET /fieldnotes?category=&sort=
func (c *Controller) ListFieldNotes(ctx echo.Context) error {
	notes, err := c.svc.FieldNotes(ctx.Request().Context(), bureau.NoteFilter{
		Category: datastore.NoteCategory(ctx.QueryParam("category")),
		Sort:     ctx.QueryParam("sort"),
	})
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, notes)
}

// GetFieldNote handles GET /fieldnotes/:id
func (c *Controller) GetFieldNote(ctx echo.Context) error {
	note, err := c.svc.GetFieldNote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, note)
}

// SaveFieldNote handles POST /fieldnotes and PUT /fieldnotes/:id
func (c *Controller) SaveFieldNote(ctx echo.Context) error {
	var in bureau.FieldNoteInput
	if err := ctx.Bind(&in); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	in.ID = ctx.Param("id")

	note, err := c.svc.SaveFieldNote(ctx.Request().Context(), actor(ctx), in)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	if in.ID == "" {
		return ctx.JSON(http.StatusCreated, note)
	}
	return ctx.JSON(http.StatusOK, note)
}

// DeleteFieldNote handles DELETE /fieldnotes/:id
func (c *Controller) DeleteFieldNote(ctx echo.Context) error {
	if err := c.svc.DeleteFieldNote(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
