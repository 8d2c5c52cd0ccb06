package transport_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/mockocr"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/transport"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

func images() (*upload.File, *upload.File) {
	return upload.NewFile("front.jpg", "image/jpeg", []byte("front-bytes")),
		upload.NewFile("back.png", "image/png", []byte("back"))
}

func newClient(t *testing.T, baseURL string) *transport.Client {
	t.Helper()
	c, err := transport.NewClient(transport.Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestClient_SubmitSuccess(t *testing.T) {
	mock := mockocr.New(nil)
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	front, back := images()
	res, err := newClient(t, srv.URL+"/").Submit(context.Background(), front, back)
	require.NoError(t, err)
	assert.Equal(t, mockocr.SampleResult, *res)
	assert.Equal(t, 1, mock.Requests())

	parts := mock.LastParts()
	require.Len(t, parts, 2)
	assert.Equal(t, mockocr.Part{Field: "frontImage", Filename: "front.jpg", ContentType: "image/jpeg", Size: 11}, parts[0])
	assert.Equal(t, mockocr.Part{Field: "backImage", Filename: "back.png", ContentType: "image/png", Size: 4}, parts[1])
}

func TestClient_ErrorMapping(t *testing.T) {
	msgs := transport.DefaultMessages()

	tests := []struct {
		name     string
		failure  mockocr.Failure
		wantKind transport.Kind
		wantMsg  string
	}{
		{
			name:     "server message wins over status",
			failure:  mockocr.Failure{Status: http.StatusBadRequest, Message: "bad image"},
			wantKind: transport.KindServerMessage,
			wantMsg:  "bad image",
		},
		{
			name:     "server message on 500",
			failure:  mockocr.Failure{Status: http.StatusInternalServerError, Message: "tesseract crashed"},
			wantKind: transport.KindServerMessage,
			wantMsg:  "tesseract crashed",
		},
		{
			name:     "bare 400",
			failure:  mockocr.Failure{Status: http.StatusBadRequest},
			wantKind: transport.KindBadRequest,
			wantMsg:  msgs.BadRequest,
		},
		{
			name:     "bare 413 is a client error",
			failure:  mockocr.Failure{Status: http.StatusRequestEntityTooLarge},
			wantKind: transport.KindBadRequest,
			wantMsg:  msgs.BadRequest,
		},
		{
			name:     "bare 500",
			failure:  mockocr.Failure{Status: http.StatusInternalServerError},
			wantKind: transport.KindServerError,
			wantMsg:  msgs.ServerError,
		},
		{
			name:     "bare 503",
			failure:  mockocr.Failure{Status: http.StatusServiceUnavailable},
			wantKind: transport.KindServerError,
			wantMsg:  msgs.ServerError,
		},
		{
			name:     "unexpected 3xx",
			failure:  mockocr.Failure{Status: http.StatusNotModified},
			wantKind: transport.KindUnknown,
			wantMsg:  msgs.Fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := mockocr.New(nil)
			mock.FailWith(tt.failure)
			srv := httptest.NewServer(mock.Routes())
			defer srv.Close()

			front, back := images()
			res, err := newClient(t, srv.URL).Submit(context.Background(), front, back)
			assert.Nil(t, res)

			var terr *transport.Error
			require.True(t, errors.As(err, &terr), "expected *transport.Error, got %v", err)
			assert.Equal(t, tt.wantKind, terr.Kind)
			assert.Equal(t, tt.wantMsg, terr.Message)
			assert.Equal(t, tt.failure.Status, terr.StatusCode)
			assert.Equal(t, tt.wantMsg, transport.UserMessage(err))
			assert.Equal(t, 1, mock.Requests(), "exactly one attempt")
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	front, back := images()
	_, err = newClient(t, "http://"+addr).Submit(context.Background(), front, back)

	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, transport.KindNetworkFailure, terr.Kind)
	assert.Equal(t, transport.DefaultMessages().NetworkFailure, terr.Message)
	assert.Zero(t, terr.StatusCode)
	assert.Error(t, terr.Unwrap())
}

func TestClient_Timeout(t *testing.T) {
	mock := mockocr.New(nil)
	mock.SetDelay(2 * time.Second)
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	c, err := transport.NewClient(transport.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	front, back := images()
	_, err = c.Submit(context.Background(), front, back)

	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, transport.KindNetworkFailure, terr.Kind)
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	front, back := images()
	_, err := newClient(t, srv.URL).Submit(context.Background(), front, back)

	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, transport.KindUnknown, terr.Kind)
	assert.Equal(t, transport.DefaultMessages().Fallback, terr.Message)
}

func TestClient_NullOrEmptySuccessBody(t *testing.T) {
	for _, body := range []string{"null", "", "  "} {
		t.Run("body "+strconv.Quote(body), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			front, back := images()
			res, err := newClient(t, srv.URL).Submit(context.Background(), front, back)
			assert.Nil(t, res)

			var terr *transport.Error
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, transport.KindUnknown, terr.Kind)
			assert.Equal(t, transport.DefaultMessages().Fallback, terr.Message)
		})
	}
}

// truncatingServer sends a status line and part of a body, then drops the
// connection.
func truncatingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		conn, buf, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
		fmt.Fprint(buf, "Content-Type: application/json\r\nContent-Length: 100\r\n\r\n")
		fmt.Fprint(buf, `{"error":"tru`)
		_ = buf.Flush()
	}))
}

func TestClient_TruncatedResponseBody(t *testing.T) {
	msgs := transport.DefaultMessages()

	tests := []struct {
		name     string
		status   int
		wantKind transport.Kind
		wantMsg  string
	}{
		{"server error keeps its status class", http.StatusInternalServerError, transport.KindServerError, msgs.ServerError},
		{"client error keeps its status class", http.StatusBadRequest, transport.KindBadRequest, msgs.BadRequest},
		{"success falls back", http.StatusOK, transport.KindUnknown, msgs.Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := truncatingServer(t, tt.status)
			defer srv.Close()

			front, back := images()
			res, err := newClient(t, srv.URL).Submit(context.Background(), front, back)
			assert.Nil(t, res)

			var terr *transport.Error
			require.True(t, errors.As(err, &terr), "expected *transport.Error, got %v", err)
			assert.Equal(t, tt.wantKind, terr.Kind)
			assert.Equal(t, tt.wantMsg, terr.Message)
			assert.Equal(t, tt.status, terr.StatusCode)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestClient_CustomMessages(t *testing.T) {
	mock := mockocr.New(nil)
	mock.FailWith(mockocr.Failure{Status: http.StatusBadGateway})
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	c, err := transport.NewClient(transport.Config{
		BaseURL:  srv.URL,
		Messages: transport.Messages{ServerError: "backend down"},
	})
	require.NoError(t, err)

	front, back := images()
	_, err = c.Submit(context.Background(), front, back)
	assert.Equal(t, "backend down", transport.UserMessage(err))
}

func TestClient_UploadProgress(t *testing.T) {
	srv := httptest.NewServer(mockocr.New(nil).Routes())
	defer srv.Close()

	var (
		total    int64
		progress bytes.Buffer
	)
	c, err := transport.NewClient(transport.Config{
		BaseURL: srv.URL,
		UploadProgress: func(n int64) io.Writer {
			total = n
			return &progress
		},
	})
	require.NoError(t, err)

	front, back := images()
	_, err = c.Submit(context.Background(), front, back)
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.Equal(t, total, int64(progress.Len()))
	assert.Contains(t, progress.String(), `name="frontImage"; filename="front.jpg"`)
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:5000", "ftp://example.com", "http://"} {
		t.Run(base, func(t *testing.T) {
			_, err := transport.NewClient(transport.Config{BaseURL: base})
			var de *domain.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.ErrorTypeConfig, de.Type)
		})
	}
}

func TestNewClient_Endpoint(t *testing.T) {
	c := newClient(t, "http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000/api/ocr/process", c.Endpoint())
}

func TestUserMessage_ForeignError(t *testing.T) {
	assert.Equal(t, transport.DefaultMessages().Fallback, transport.UserMessage(errors.New("boom")))
}
