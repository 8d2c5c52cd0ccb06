package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/cmd/idcard-ocr/commands"
)

var version = "0.1.0"

func main() {
	if err := commands.Execute(version); err != nil {
		if !errors.Is(err, commands.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
