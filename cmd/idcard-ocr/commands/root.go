// Package commands implements the idcard-ocr command tree.
package commands

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/cmd/idcard-ocr/ui"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/config"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
)

// ErrReported is returned when the failure has already been shown to the user.
var ErrReported = errors.New("reported")

var (
	cfgFile  string
	verbose  bool
	noColor  bool
	logLevel string

	cfg     *config.Config
	logger  *observability.Logger
	printer = ui.NewPrinter()
)

var rootCmd = &cobra.Command{
	Use:   "idcard-ocr",
	Short: "Upload ID card images for OCR extraction",
	Long: `idcard-ocr validates the front and back images of an identity card, sends
them to the OCR service and shows the extracted details. It can run once from
the command line, serve a small browser UI, or stand in for the OCR backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := cfg.Observability.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      cfg.Observability.LogFormat,
			Output:      os.Stderr,
			ServiceName: "idcard-ocr",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, off)")

	rootCmd.AddCommand(processCmd, validateCmd, serveCmd, mockServerCmd, versionCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	buildVersion = version
	return rootCmd.Execute()
}
