package main

import (
	"os"

	"github.com/armadaproject/ttbench/cmd/ttbench/cmd"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
)

func main() {
	err := cmd.RootCmd().Execute()
	os.Exit(ttbencherrors.ExitCodeFromError(err))
}
