// Package imageupload stores uploaded images and returns their public URL.
// There is no delete path: dropping an image from a record only drops the
// reference.
package imageupload

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// ErrNotConfigured is returned by New when no backend is configured or its
// credentials are missing. Callers disable the upload affordance.
var ErrNotConfigured = errors.NewStd("image upload is not configured")

// DefaultMaxSize caps uploads when images.maxuploadsize is unset.
const DefaultMaxSize = 10 << 20

// MsgNoImage is returned when a request carries no image.
const MsgNoImage = "no image provided"

// Image is one uploaded file.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// allowedTypes maps accepted sniffed content types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Validate checks size and content, replacing ContentType with the sniffed
// type. The client supplied type is never trusted.
func (img *Image) Validate(maxSize int64) error {
	if len(img.Data) == 0 {
		return errors.ValidationError(MsgNoImage)
	}
	if maxSize > 0 && int64(len(img.Data)) > maxSize {
		return errors.New(fmt.Errorf("image exceeds maximum upload size of %d bytes", maxSize)).
			Component("imageupload").
			Category(errors.CategoryValidation).
			Context("size", len(img.Data)).
			Build()
	}
	sniffed := http.DetectContentType(img.Data)
	if _, ok := allowedTypes[sniffed]; !ok {
		return errors.New(fmt.Errorf("unsupported image type %s", sniffed)).
			Component("imageupload").
			Category(errors.CategoryValidation).
			Context("declared_type", img.ContentType).
			Build()
	}
	img.ContentType = sniffed
	return nil
}

// Extension returns the file extension for the validated content type.
func (img *Image) Extension() string {
	if ext, ok := allowedTypes[img.ContentType]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(img.Filename))
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
	Name() string
}

// New returns the uploader selected by images.provider, wrapped with
// validation and metrics.
func New(ctx context.Context, settings *conf.Settings, m *metrics.ImageUploadMetrics) (Uploader, error) {
	img := settings.Images

	var (
		backend Uploader
		err     error
	)
	switch img.Provider {
	case conf.ImageProviderImgBB:
		backend, err = NewImgBB(img.ImgBB)
	case conf.ImageProviderS3:
		backend, err = NewS3(ctx, img.S3)
	case conf.ImageProviderLocal:
		backend, err = NewLocal(img.Local)
	default:
		err = ErrNotConfigured
	}
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			GetLogger().Warn("image uploads disabled", logger.String("provider", img.Provider))
		}
		return nil, err
	}

	GetLogger().Info("image upload backend ready", logger.String("provider", backend.Name()))
	return &instrumented{backend: backend, metrics: m, maxSize: img.MaxUploadSize}, nil
}

// instrumented validates before delegating and records every attempt.
type instrumented struct {
	backend Uploader
	metrics *metrics.ImageUploadMetrics
	maxSize int64
}

func (u *instrumented) Name() string { return u.backend.Name() }

func (u *instrumented) Upload(ctx context.Context, img Image) (string, error) {
	if err := img.Validate(u.maxSize); err != nil {
		return "", err
	}

	start := time.Now()
	url, err := u.backend.Upload(ctx, img)
	elapsed := time.Since(start)
	u.metrics.ObserveUpload(u.backend.Name(), len(img.Data), elapsed, err)

	if err != nil {
		GetLogger().Error("image upload failed",
			logger.String("provider", u.backend.Name()),
			logger.Int("size", len(img.Data)),
			logger.Error(err))
		return "", err
	}

	GetLogger().Info("image uploaded",
		logger.String("provider", u.backend.Name()),
		logger.Int("size", len(img.Data)),
		logger.Duration("elapsed", elapsed))
	return url, nil
}

// uploadError wraps a backend failure.
func uploadError(err error, provider string) error {
	return errors.New(err).
		Component("imageupload").
		Category(errors.CategoryImageUpload).
		Context("provider", provider).
		Build()
}

// objectName returns a collision free name under yyyy/mm.
func objectName(now time.Time, id string, img *Image) string {
	return fmt.Sprintf("%04d/%02d/%s%s", now.Year(), int(now.Month()), id, img.Extension())
}
