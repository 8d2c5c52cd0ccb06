package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "idcard-ocr %s\n", buildVersion)
		return nil
	},
}
