package imageupload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
)

const (
	defaultImgBBEndpoint = "https://api.imgbb.com/1/upload"
	defaultImgBBTimeout  = 30 * time.Second
	// maxImgBBResponse bounds the JSON body read from the API.
	maxImgBBResponse = 1 << 20
)

// ImgBB uploads through the imgbb HTTP API.
type ImgBB struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewImgBB returns ErrNotConfigured when the API key is missing.
func NewImgBB(cfg conf.ImgBBSettings) (*ImgBB, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultImgBBEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultImgBBTimeout
	}
	return &ImgBB{apiKey: cfg.APIKey, endpoint: endpoint, client: &http.Client{Timeout: timeout}}, nil
}

func (u *ImgBB) Name() string { return conf.ImageProviderImgBB }

// Client exposes the HTTP client so tests can intercept it.
func (u *ImgBB) Client() *http.Client { return u.client }

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as multipart form fields image and key.
func (u *ImgBB) Upload(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	filename := img.Filename
	if filename == "" {
		filename = "upload" + img.Extension()
	}
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return "", uploadError(err, u.Name())
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", uploadError(err, u.Name())
	}
	if err := form.WriteField("key", u.apiKey); err != nil {
		return "", uploadError(err, u.Name())
	}
	if err := form.Close(); err != nil {
		return "", uploadError(err, u.Name())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", uploadError(err, u.Name())
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", errors.New(fmt.Errorf("imgbb request failed: %w", err)).
			Component("imageupload").
			Category(errors.CategoryNetwork).
			Context("provider", u.Name()).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Newf("failed to upload image").
			Component("imageupload").
			Category(errors.CategoryImageUpload).
			Context("provider", u.Name()).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var parsed imgbbResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxImgBBResponse)).Decode(&parsed); err != nil {
		return "", uploadError(fmt.Errorf("invalid imgbb response: %w", err), u.Name())
	}
	if !parsed.Success {
		msg := parsed.Error.Message
		if msg == "" {
			msg = "image upload failed"
		}
		return "", uploadError(errors.NewStd(msg), u.Name())
	}
	if parsed.Data.URL == "" {
		return "", uploadError(errors.NewStd("imgbb response did not include a url"), u.Name())
	}
	return parsed.Data.URL, nil
}
