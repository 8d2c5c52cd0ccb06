package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check whether images would be accepted for upload",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := upload.NewValidator(cfg.UploadPolicy())

	rejected := 0
	for _, path := range args {
		f, err := upload.OpenPath(path)
		if err != nil {
			printer.Error("%s: %v", path, err)
			rejected++
			continue
		}

		err = v.Validate(f)
		var rej *upload.Rejection
		switch {
		case err == nil:
			printer.Success("%s: accepted (%s, %s)", path, f.MIMEType, formatSize(f.Size))
		case errors.As(err, &rej):
			printer.Error("%s: %s", path, rej.UserMessage())
			logger.Debug().Str("path", path).Str("reason", string(rej.Reason)).Msg("Rejected")
			rejected++
		default:
			return err
		}
	}

	if rejected > 0 {
		printer.Warning("%d of %d file(s) rejected", rejected, len(args))
		return ErrReported
	}
	return nil
}
