package main

import (
	"os"

	"github.com/kbukum/httpdispatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
