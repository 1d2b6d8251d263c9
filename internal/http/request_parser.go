package http

// Utilities for parsing and validating request data shared by the page,
// chat and API handlers.

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes bounds chat uploads; a phone photo fits comfortably.
const MaxBodyBytes = 10 << 20

var (
	ErrInvalidID  = errors.New("invalid id")
	ErrNotImage   = errors.New("uploaded file is not an image")
	ErrBodyTooBig = errors.New("request body too large")
)

// RequestBodyParser reads a request body once and understands JSON,
// url-encoded forms and multipart forms with file fields.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	files       map[string]string
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most MaxBodyBytes from r.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if p.err == nil && len(p.body) > MaxBodyBytes {
		p.err = ErrBodyTooBig
	}
	return p
}

// Parse decodes the body according to its content type.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	mediaType, params, _ := mime.ParseMediaType(p.contentType)
	if mediaType == "multipart/form-data" {
		p.err = p.parseMultipart(params["boundary"])
		return p.err
	}

	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

func (p *RequestBodyParser) parseMultipart(boundary string) error {
	if boundary == "" {
		return errors.New("multipart body without boundary")
	}
	form, err := multipart.NewReader(bytes.NewReader(p.body), boundary).ReadForm(MaxBodyBytes)
	if err != nil {
		return fmt.Errorf("read multipart form: %w", err)
	}
	defer func() { _ = form.RemoveAll() }()

	p.formData = url.Values(form.Value)
	p.files = make(map[string]string, len(form.File))
	for field, headers := range form.File {
		if len(headers) == 0 || headers[0].Size == 0 {
			continue
		}
		dataURL, err := fileDataURL(headers[0])
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
		p.files[field] = dataURL
	}
	return nil
}

// fileDataURL turns an uploaded image into the data URL form the chat
// accepts from the camera.
func fileDataURL(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	ctype := http.DetectContentType(raw)
	if !strings.HasPrefix(ctype, "image/") {
		return "", ErrNotImage
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// Get returns a trimmed, sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// File returns an uploaded image field as a data URL.
func (p *RequestBodyParser) File(key string) (string, bool) {
	v, ok := p.files[key]
	return v, ok
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims and drops control characters except tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// ParseID parses a positive identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// ParseIDParam reads a positive identifier from a chi route parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	return ParseID(chi.URLParam(r, name))
}

// ParseSplitQuery reads the optional ?split= filter. Absent means all
// splits and yields 0.
func ParseSplitQuery(query url.Values) (int64, error) {
	v := strings.TrimSpace(query.Get("split"))
	if v == "" {
		return 0, nil
	}
	return ParseID(v)
}
