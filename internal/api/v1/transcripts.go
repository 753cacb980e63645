package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
)

func (c *Controller) initTranscriptRoutes() {
	c.Group.GET("/transcripts", c.ListTranscripts)
	c.Group.GET("/transcripts/:id", c.GetTranscript)
	c.Group.POST("/transcripts", c.SaveTranscript, c.authMiddleware)
	c.Group.PUT("/transcripts/:id", c.SaveTranscript, c.authMiddleware)
	c.Group.DELETE("/transcripts/:id", c.DeleteTranscript, c.authMiddleware)
}

// ListTranscripts handles GET /transcripts
func (c *Controller) ListTranscripts(ctx echo.Context) error {
	transcripts, err := c.svc.Transcripts(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, transcripts)
}

// GetTranscript handles GET /transcripts/:id
func (c *Controller) GetTranscript(ctx echo.Context) error {
	tr, err := c.svc.GetTranscript(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, tr)
}

// SaveTranscript handles POST /transcripts and PUT /transcripts/:id
func (c *Controller) SaveTranscript(ctx echo.Context) error {
	var in bureau.TranscriptInput
	if err := ctx.Bind(&in); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	in.ID = ctx.Param("id")

	tr, err := c.svc.SaveTranscript(ctx.Request().Context(), actor(ctx), in)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	if in.ID == "" {
		return ctx.JSON(http.StatusCreated, tr)
	}
	return ctx.JSON(http.StatusOK, tr)
}

// DeleteTranscript handles DELETE /transcripts/:id
func (c *Controller) DeleteTranscript(ctx echo.Context) error {
	if err := c.svc.DeleteTranscript(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
