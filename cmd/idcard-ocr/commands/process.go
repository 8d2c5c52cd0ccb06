package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/cmd/idcard-ocr/ui"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/transport"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/workflow"
)

var (
	frontPath    string
	backPath     string
	jsonOutput   bool
	showProgress bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Send front and back images to the OCR service",
	Example: `  idcard-ocr process --front front.jpg --back back.png
  idcard-ocr process --front front.jpg --back back.png --json`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&frontPath, "front", "f", "", "front side image (JPEG or PNG)")
	processCmd.Flags().StringVarP(&backPath, "back", "b", "", "back side image (JPEG or PNG)")
	processCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	processCmd.Flags().BoolVar(&showProgress, "progress", false, "show an upload progress bar")
	_ = processCmd.MarkFlagRequired("front")
	_ = processCmd.MarkFlagRequired("back")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	log := logger.WithOperation("process")

	var bar *ui.UploadBar
	clientCfg := newClientConfig(log)
	if showProgress && !jsonOutput {
		clientCfg.UploadProgress = func(total int64) io.Writer {
			bar = ui.NewUploadBar(total, "Uploading")
			return bar
		}
	}
	client, err := transport.NewClient(clientCfg)
	if err != nil {
		return err
	}

	ctrl := workflow.NewController(client, workflow.Options{
		Validator: upload.NewValidator(cfg.UploadPolicy()),
		Logger:    log,
	})

	for _, sel := range []struct {
		side domain.Side
		path string
	}{
		{domain.SideFront, frontPath},
		{domain.SideBack, backPath},
	} {
		if err := selectPath(out, ctrl, sel.side, sel.path); err != nil {
			return err
		}
	}

	if !jsonOutput && !showProgress {
		spin := ui.NewSpinner("Processing images...")
		unsubscribe := ctrl.Subscribe(func(s workflow.State) {
			if s.Loading {
				spin.Start()
			} else {
				spin.Stop()
			}
		})
		defer unsubscribe()
	}

	err = ctrl.Submit(ctx)
	if bar != nil {
		bar.Finish()
	}

	state := ctrl.State()
	if err != nil {
		msg := state.ErrorMessage
		if msg == "" {
			msg = transport.UserMessage(err)
		}
		if jsonOutput {
			payload := map[string]string{"error": msg}
			var terr *transport.Error
			if errors.As(err, &terr) {
				payload["kind"] = string(terr.Kind)
			}
			_ = writeJSONTo(out, payload)
		} else {
			printer.Error("%s", msg)
		}
		log.Debug().Err(err).Msg("Processing failed")
		return ErrReported
	}

	if jsonOutput {
		return writeJSONTo(out, state.Result)
	}
	printResult(printer, state.Result)
	return nil
}

// selectPath opens path and places it in side's slot, reporting rejections.
func selectPath(out io.Writer, ctrl *workflow.Controller, side domain.Side, path string) error {
	f, err := upload.OpenPath(path)
	if err != nil {
		return err
	}

	err = ctrl.Select(side, f)
	var rej *upload.Rejection
	if errors.As(err, &rej) {
		if jsonOutput {
			_ = writeJSONTo(out, map[string]string{"error": rej.UserMessage(), "side": string(side)})
		} else {
			printer.Error("%s image %s: %s", side, f.Name, rej.UserMessage())
		}
		return ErrReported
	}
	if err != nil {
		return err
	}

	if !jsonOutput {
		printer.Step("%s: %s (%s)", side, f.Name, formatSize(f.Size))
	}
	return nil
}

func newClientConfig(log *observability.Logger) transport.Config {
	return transport.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  log,
	}
}

func printResult(p *ui.Printer, res *domain.OcrResult) {
	p.Success("Extraction complete")
	p.Box("Extracted details", []ui.Field{
		{Label: "Name", Value: res.Name},
		{Label: "Aadhaar number", Value: res.IDNumber},
		{Label: "Date of birth", Value: res.DateOfBirth},
		{Label: "Address", Value: res.Address},
	})
}

func writeJSONTo(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
