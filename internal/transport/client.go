// Package transport posts the front and back document images to the OCR
// service and normalizes every failure into a user-facing message.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

const (
	// ProcessPath is the OCR endpoint, relative to the base URL.
	ProcessPath = "/api/ocr/process"

	// FieldFront and FieldBack are the multipart field names.
	FieldFront = "frontImage"
	FieldBack  = "backImage"

	defaultTimeout  = 60 * time.Second
	maxResponseSize = 1 << 20
)

// Config holds everything a Client needs. Nothing is read from process-wide state.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Messages   Messages
	Logger     *observability.Logger

	// UploadProgress, if set, is called once per request with the encoded
	// body size; the returned writer receives every byte as it is sent.
	UploadProgress func(total int64) io.Writer
}

// Client submits document images to the OCR service. A Client makes exactly
// one HTTP attempt per Submit; it never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	messages   Messages
	logger     *observability.Logger
	progress   func(total int64) io.Writer
}

type errorPayload struct {
	Error string `json:"error"`
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("invalid OCR base URL %q", cfg.BaseURL), err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, domain.ConfigError(fmt.Sprintf("OCR base URL must be absolute http(s), got %q", cfg.BaseURL), nil)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(base.String(), "/") + ProcessPath,
		httpClient: httpClient,
		messages:   cfg.Messages.withDefaults(),
		logger:     observability.OrNop(cfg.Logger).WithComponent("transport"),
		progress:   cfg.UploadProgress,
	}, nil
}

// Endpoint returns the full URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit posts both images and returns the decoded result. Any failure is a
// *Error whose Message is ready for display.
func (c *Client) Submit(ctx context.Context, front, back *upload.File) (*domain.OcrResult, error) {
	if front == nil || back == nil {
		return nil, c.messages.fallback(0, domain.ValidationError("both front and back images are required", nil))
	}

	body, contentType, err := encodeForm(front, back)
	if err != nil {
		return nil, c.messages.fallback(0, err)
	}
	size := int64(body.Len())

	var reader io.Reader = body
	if c.progress != nil {
		if w := c.progress(size); w != nil {
			reader = io.TeeReader(body, w)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, reader)
	if err != nil {
		return nil, c.messages.fallback(0, fmt.Errorf("create request: %w", err))
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("front", front.Name).
		Str("back", back.Name).
		Int64("body_bytes", size).
		Msg("Submitting images for OCR")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := c.messages.classifyNoResponse(err)
		c.logger.Warn().
			Err(err).
			Bool("canceled", isCanceled(err)).
			Dur("elapsed", time.Since(start)).
			Msg("OCR request got no response")
		return nil, terr
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		// The status line arrived, so this is not a network failure.
		readErr := fmt.Errorf("read response body: %w", err)
		terr := c.messages.fallback(resp.StatusCode, readErr)
		if !success {
			terr = c.messages.classifyResponse(resp.StatusCode, errorPayload{})
			terr.Err = readErr
		}
		c.logger.Warn().
			Err(err).
			Int("status", resp.StatusCode).
			Str("kind", string(terr.Kind)).
			Msg("Failed to read OCR response")
		return nil, terr
	}

	if !success {
		var payload errorPayload
		_ = json.Unmarshal(respBody, &payload)
		terr := c.messages.classifyResponse(resp.StatusCode, payload)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("kind", string(terr.Kind)).
			Str("message", terr.Message).
			Dur("elapsed", time.Since(start)).
			Msg("OCR request rejected")
		return nil, terr
	}

	var result *domain.OcrResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Malformed OCR response")
		return nil, c.messages.fallback(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if result == nil {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Empty OCR response")
		return nil, c.messages.fallback(resp.StatusCode, domain.TransportError("OCR service returned no result", nil))
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("OCR response received")

	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeForm writes the two-part multipart body. Each part carries the file's
// declared name and content type.
func encodeForm(front, back *upload.File) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, p := range []struct {
		field string
		file  *upload.File
	}{
		{FieldFront, front},
		{FieldBack, back},
	} {
		if err := writeFilePart(writer, p.field, p.file); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f *upload.File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	contentType := f.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}
