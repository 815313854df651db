package main

import (
	"os"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/cmd"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
