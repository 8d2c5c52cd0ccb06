package workflow

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/mockocr"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/transport"
)

func httpController(t *testing.T, baseURL string) *Controller {
	t.Helper()
	client, err := transport.NewClient(transport.Config{BaseURL: baseURL})
	require.NoError(t, err)
	return NewController(client, Options{})
}

func TestWorkflow_EndToEndSuccess(t *testing.T) {
	mock := mockocr.New(nil)
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	c := httpController(t, srv.URL)
	selectBoth(t, c)
	require.NoError(t, c.Submit(context.Background()))

	s := c.State()
	assert.Equal(t, PhaseSuccess, s.Phase)
	require.NotNil(t, s.Result)
	assert.Equal(t, mockocr.SampleResult, *s.Result)
	assert.Equal(t, 1, mock.Requests())
}

func TestWorkflow_ServerMessageSurfaces(t *testing.T) {
	mock := mockocr.New(nil)
	mock.FailWith(mockocr.Failure{Status: http.StatusBadRequest, Message: "bad image"})
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	c := httpController(t, srv.URL)
	selectBoth(t, c)
	require.Error(t, c.Submit(context.Background()))

	s := c.State()
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, "bad image", s.ErrorMessage)
	assert.Nil(t, s.Result)
}

func TestWorkflow_NetworkFailureSurfaces(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := httpController(t, "http://"+addr)
	selectBoth(t, c)
	require.Error(t, c.Submit(context.Background()))

	s := c.State()
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, transport.DefaultMessages().NetworkFailure, s.ErrorMessage)
	assert.Nil(t, s.Result)
}

func TestWorkflow_IncompleteSelectionSendsNothing(t *testing.T) {
	mock := mockocr.New(nil)
	srv := httptest.NewServer(mock.Routes())
	defer srv.Close()

	c := httpController(t, srv.URL)
	require.NoError(t, c.Select("back", jpeg("back.jpg")))
	assert.ErrorIs(t, c.Submit(context.Background()), ErrIncompleteSelection)
	assert.Zero(t, mock.Requests())
}
