package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/mockocr"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/transport"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/webui"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/workflow"
)

var (
	mockFailStatus  int
	mockFailMessage string
	mockDelay       time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser upload UI",
	RunE:  runServe,
}

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a stand-in OCR backend for local development",
	RunE:  runMockServer,
}

func init() {
	mockServerCmd.Flags().IntVar(&mockFailStatus, "fail-status", 0, "answer every request with this HTTP status")
	mockServerCmd.Flags().StringVar(&mockFailMessage, "fail-message", "", "error message sent with --fail-status")
	mockServerCmd.Flags().DurationVar(&mockDelay, "delay", 0, "wait this long before answering")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithOperation("serve")
	client, err := transport.NewClient(newClientConfig(log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := workflow.NewController(client, workflow.Options{
		Validator: upload.NewValidator(cfg.UploadPolicy()),
		Logger:    log,
	})
	server, err := webui.NewServer(ctrl, log, webui.Config{
		MaxFileSize: cfg.Upload.MaxFileSize,
		BaseContext: ctx,
	})
	if err != nil {
		return err
	}

	log.Info().Str("ocr_endpoint", client.Endpoint()).Msg("Web UI configured")
	printer.Info("Open http://%s in your browser", cfg.ServerAddr())
	return listenAndServe(log, cfg.ServerAddr(), server.Routes())
}

func runMockServer(cmd *cobra.Command, args []string) error {
	log := logger.WithOperation("mock-server")
	mock := mockocr.New(log)
	if mockFailStatus != 0 {
		mock.FailWith(mockocr.Failure{Status: mockFailStatus, Message: mockFailMessage})
	}
	mock.SetDelay(mockDelay)

	printer.Info("Mock OCR backend at http://%s%s", cfg.MockAddr(), transport.ProcessPath)
	return listenAndServe(log, cfg.MockAddr(), mock.Routes())
}

// listenAndServe runs handler until SIGINT/SIGTERM, then shuts down gracefully.
func listenAndServe(logger *observability.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
			return err
		}
		return nil
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}
