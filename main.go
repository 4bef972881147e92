package main

import (
	"os"

	"github.com/vaultx/vaultx-term/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
