package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/relations"
	"github.com/peepybureau/bpi/internal/security"
	"github.com/peepybureau/bpi/internal/workspace"
)

// deepLinkTimeout bounds how long opening a deep link waits for the
// workspace snapshots.
const deepLinkTimeout = 10 * time.Second

// TagsResponse is returned by the tag endpoints.
type TagsResponse struct {
	Changed bool            `json:"changed"`
	Tags    []relations.Tag `json:"tags"`
}

// OpenResponse is returned by POST /workspace/open.
type OpenResponse struct {
	Opened bool                `json:"opened"`
	Tab    workspace.Tab       `json:"tab,omitempty"`
	Draft  workspace.DraftView `json:"draft"`
}

func (c *Controller) initWorkspaceRoutes() {
	g := c.Group.Group("/workspace")
	g.GET("", c.GetWorkspace, c.authMiddleware)
	g.DELETE("", c.CloseWorkspace, c.authMiddleware)
	g.POST("/open", c.OpenWorkspaceLink, c.authMiddleware)
	g.POST("/tab/:tab", c.SwitchWorkspaceTab, c.authMiddleware)
	g.PUT("/form", c.SetWorkspaceForm, c.authMiddleware)
	g.POST("/cancel", c.CancelWorkspaceEdit, c.authMiddleware)
	g.POST("/tags/:field", c.AddWorkspaceTag, c.authMiddleware)
	g.DELETE("/tags/:field/:index", c.RemoveWorkspaceTag, c.authMiddleware)
	g.POST("/submit", c.SubmitWorkspace, c.authMiddleware)
}

// sessionKey identifies the caller's workspace: the session id, or the
// admin email when the request carries no session cookie.
func sessionKey(ctx echo.Context) string {
	if id := security.SessionID(ctx.Request()); id != "" {
		return id
	}
	return adminEmail(ctx)
}

func (c *Controller) workspaceFor(ctx echo.Context) *workspace.Workspace {
	return c.workspaces.GetOrOpen(c.ctx, sessionKey(ctx))
}

// GetWorkspace handles GET /workspace
func (c *Controller) GetWorkspace(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.workspaceFor(ctx).View())
}

// CloseWorkspace handles DELETE /workspace
func (c *Controller) CloseWorkspace(ctx echo.Context) error {
	c.workspaces.Close(sessionKey(ctx))
	return ctx.NoContent(http.StatusNoContent)
}

// OpenWorkspaceLink handles POST /workspace/open?edit=|editNote=|editTranscript=|newTranscriptFor=
func (c *Controller) OpenWorkspaceLink(ctx echo.Context) error {
	w := c.workspaceFor(ctx)

	waitCtx, cancel := context.WithTimeout(ctx.Request().Context(), deepLinkTimeout)
	defer cancel()

	tab, opened, err := w.OpenFromQuery(waitCtx, ctx.QueryParams())
	if err != nil {
		if waitCtx.Err() != nil {
			return c.HandleError(ctx, err, "Workspace is still loading.", http.StatusServiceUnavailable)
		}
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, OpenResponse{Opened: opened, Tab: tab, Draft: w.Draft()})
}

// SwitchWorkspaceTab handles POST /workspace/tab/:tab
func (c *Controller) SwitchWorkspaceTab(ctx echo.Context) error {
	w := c.workspaceFor(ctx)
	if err := w.SwitchTab(workspace.Tab(ctx.Param("tab"))); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, w.Draft())
}

// SetWorkspaceForm handles PUT /workspace/form
func (c *Controller) SetWorkspaceForm(ctx echo.Context) error {
	var form workspace.Form
	if err := ctx.Bind(&form); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	w := c.workspaceFor(ctx)
	w.SetForm(form)
	return ctx.JSON(http.StatusOK, w.Draft())
}

// CancelWorkspaceEdit handles POST /workspace/cancel
func (c *Controller) CancelWorkspaceEdit(ctx echo.Context) error {
	w := c.workspaceFor(ctx)
	w.CancelEdit()
	return ctx.JSON(http.StatusOK, w.Draft())
}

// AddWorkspaceTag handles POST /workspace/tags/:field
func (c *Controller) AddWorkspaceTag(ctx echo.Context) error {
	field, err := workspace.ParseField(ctx.Param("field"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	var entry workspace.TagEntry
	if err := ctx.Bind(&entry); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}

	w := c.workspaceFor(ctx)
	changed, err := w.AddTag(field, entry)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return c.tagsResponse(ctx, w, field, changed)
}

// RemoveWorkspaceTag handles DELETE /workspace/tags/:field/:index
func (c *Controller) RemoveWorkspaceTag(ctx echo.Context) error {
	field, err := workspace.ParseField(ctx.Param("field"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return c.HandleError(ctx, err, "Tag index must be a number.", http.StatusBadRequest)
	}

	w := c.workspaceFor(ctx)
	changed, err := w.RemoveTag(field, index)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return c.tagsResponse(ctx, w, field, changed)
}

func (c *Controller) tagsResponse(ctx echo.Context, w *workspace.Workspace, field workspace.Field, changed bool) error {
	tags, err := w.TagView(field)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, TagsResponse{Changed: changed, Tags: tags})
}

// SubmitWorkspace handles POST /workspace/submit. A JSON body replaces the
// form fields before saving.
func (c *Controller) SubmitWorkspace(ctx echo.Context) error {
	w := c.workspaceFor(ctx)

	if ctx.Request().ContentLength > 0 {
		var form workspace.Form
		if err := ctx.Bind(&form); err != nil {
			return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
		}
		w.SetForm(form)
	}

	res, err := w.Submit(ctx.Request().Context(), actor(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}
