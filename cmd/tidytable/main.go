package main

import (
	"os"

	"tidytable/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
