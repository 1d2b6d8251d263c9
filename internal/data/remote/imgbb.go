package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultImgbbEndpoint = "https://api.imgbb.com/1/upload"

var ErrUploadRejected = errors.New("image upload rejected")

// Imgbb uploads images to imgbb.com.
type Imgbb struct {
	key      string
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// NewImgbb returns an uploader for key. An empty endpoint uses the public
// API.
func NewImgbb(key, endpoint string, hc *http.Client, timeout time.Duration) *Imgbb {
	if endpoint == "" {
		endpoint = DefaultImgbbEndpoint
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Imgbb{key: key, endpoint: endpoint, http: hc, timeout: timeout}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload sends the base64 payload of a data URL ("data:image/png;base64,...")
// as the form field "image" and returns the hosted URL. A bare base64 string
// is sent as is.
func (u *Imgbb) Upload(ctx context.Context, dataURL string) (string, error) {
	payload := dataURL
	if i := strings.IndexByte(dataURL, ','); i >= 0 {
		payload = dataURL[i+1:]
	}
	if payload == "" {
		return "", fmt.Errorf("%w: empty image", ErrUploadRejected)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("image", payload); err != nil {
		return "", fmt.Errorf("imgbb: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("imgbb: build form: %w", err)
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	endpoint := u.endpoint + "?key=" + url.QueryEscape(u.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("imgbb: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgbb: %w", err)
	}
	defer resp.Body.Close()

	var out imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("imgbb: decode response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("%w: status %d", ErrUploadRejected, resp.StatusCode)
	}
	return out.Data.URL, nil
}
