package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/imageupload"
)

// UploadResponse is returned by POST /uploads.
type UploadResponse struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

func (c *Controller) initUploadRoutes() {
	c.Group.POST("/uploads", c.UploadImage, c.authMiddleware, c.rateLimiter(c.ratePerMinute(), "upload"))
}

func (c *Controller) maxUploadSize() int64 {
	if c.Settings == nil || c.Settings.Images.MaxUploadSize <= 0 {
		return imageupload.DefaultMaxSize
	}
	return c.Settings.Images.MaxUploadSize
}

// UploadImage handles POST /uploads with a multipart "image" file.
func (c *Controller) UploadImage(ctx echo.Context) error {
	if c.uploader == nil {
		return c.handleServiceError(ctx, imageupload.ErrNotConfigured)
	}

	header, err := ctx.FormFile("image")
	if err != nil {
		return c.HandleError(ctx, err, imageupload.MsgNoImage, http.StatusBadRequest)
	}
	f, err := header.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Could not read the uploaded file.", http.StatusBadRequest)
	}
	defer f.Close() //nolint:errcheck // multipart file, nothing to flush

	// one byte over the limit is enough for validation to reject it
	data, err := io.ReadAll(io.LimitReader(f, c.maxUploadSize()+1))
	if err != nil {
		return c.HandleError(ctx, err, "Could not read the uploaded file.", http.StatusBadRequest)
	}

	url, err := c.uploader.Upload(ctx.Request().Context(), imageupload.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{URL: url, Provider: c.uploader.Name()})
}
